package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_FileStore_MissingSnapshot(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "data"))

	snapshot, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.Nil(t, snapshot)
}

func TestUnit_FileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "data"))
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	count := 12

	movie := internal.MovieRecord{
		ID:          "a1",
		Title:       "小さな映画館",
		URL:         "https://eiga.com/movie/302/",
		ReleaseDate: "10月25日公開",
		ScrapedAt:   at,
	}
	movie.SetTheaterCount(&count)
	unknown := internal.MovieRecord{ID: "b2", Title: "未来の記憶", URL: "https://eiga.com/movie/304/", ReleaseDate: "10月20日", ScrapedAt: at}

	want := internal.NewSnapshot([]internal.MovieRecord{movie, unknown}, at)
	require.NoError(t, store.Save(t.Context(), want))

	got, err := store.Load(t.Context())
	require.NoError(t, err)
	require.NotNil(t, got)
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"updated_at"`)
	assert.Contains(t, string(raw), `"theater_count": 12`)
	assert.Contains(t, string(raw), "小さな映画館", "non-ASCII is written as-is")
	assert.NotContains(t, string(raw), `"theater_count": null`)
}

func TestUnit_FileStore_SaveReplaces(t *testing.T) {
	store := NewFileStore(t.TempDir())
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(t.Context(), internal.NewSnapshot([]internal.MovieRecord{{Title: "旧"}}, at)))
	require.NoError(t, store.Save(t.Context(), internal.NewSnapshot(nil, at.Add(time.Hour))))

	got, err := store.Load(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, got.Count)
	assert.NotNil(t, got.Movies)
	assert.Empty(t, got.Movies)
}

func TestUnit_FileStore_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, SnapshotFileName), []byte("{not json"), 0o644))

	_, err := NewFileStore(dir).Load(t.Context())
	require.ErrorIs(t, err, ErrCorruptSnapshot)
}
