package theatersearch

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnit_ValidateName(t *testing.T) {
	require.NoError(t, ValidateName("新宿ピカデリー"))
	require.NoError(t, ValidateName(" 港座 "))
	require.ErrorIs(t, ValidateName(""), ErrInvalidTheaterName)
	require.ErrorIs(t, ValidateName("  座  "), ErrInvalidTheaterName)
	require.ErrorIs(t, ValidateName(strings.Repeat("館", 101)), ErrInvalidTheaterName)
	require.NoError(t, ValidateName(strings.Repeat("館", 100)))
}

func TestUnit_SearchURL(t *testing.T) {
	tests := []struct {
		kind      Kind
		location  string
		wantBase  string
		wantQuery string
	}{
		{kind: KindGeneral, wantBase: searchBase, wantQuery: "新宿ピカデリー 映画館"},
		{kind: KindLocation, location: "東京", wantBase: searchBase, wantQuery: "新宿ピカデリー 映画館 東京"},
		{kind: KindLocation, wantBase: searchBase, wantQuery: "新宿ピカデリー 映画館"},
		{kind: KindSchedule, wantBase: searchBase, wantQuery: "新宿ピカデリー 映画館 上映スケジュール"},
		{kind: KindMaps, wantBase: mapsBase, wantQuery: "新宿ピカデリー 映画館 地図"},
		{kind: "unknown", wantBase: searchBase, wantQuery: "新宿ピカデリー 映画館"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+tt.location, func(t *testing.T) {
			raw := SearchURL("新宿ピカデリー", tt.kind, tt.location)
			assert.True(t, strings.HasPrefix(raw, tt.wantBase+"?q="), raw)
			assert.NotContains(t, raw, " ")
			assert.NotContains(t, raw, "+")

			u, err := url.Parse(raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, u.Query().Get("q"))
		})
	}
}

func TestUnit_Links(t *testing.T) {
	links, err := Links("みなと座", "横浜")
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Contains(t, links[0].Href, escape("みなと座 映画館 横浜"))
	assert.True(t, strings.HasPrefix(links[2].Href, mapsBase))

	_, err = Links("座", "")
	require.ErrorIs(t, err, ErrInvalidTheaterName)
}

func TestUnit_Suggest(t *testing.T) {
	assert.Equal(t, []string{"TOHOシネマズ", "109シネマズ", "ワーナー・マイカル・シネマズ"}, Suggest("シネマズ"))
	assert.Equal(t, []string{"MOVIX"}, Suggest("movix"))
	assert.Len(t, Suggest("シネマ"), 5)
	assert.Empty(t, Suggest("シ"))
}
