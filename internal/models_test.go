package internal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestUnit_MovieRecord_SetTheaterCount(t *testing.T) {
	tests := []struct {
		name        string
		count       *int
		wantLimited bool
	}{
		{name: "unknown", count: nil, wantLimited: false},
		{name: "zero", count: ptr(0), wantLimited: true},
		{name: "threshold", count: ptr(50), wantLimited: true},
		{name: "above threshold", count: ptr(51), wantLimited: false},
		{name: "wide release", count: ptr(320), wantLimited: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m MovieRecord
			m.SetTheaterCount(tt.count)
			assert.Equal(t, tt.wantLimited, m.IsLimitedRelease)
			if tt.count == nil {
				assert.Nil(t, m.TheaterCount)
				return
			}
			require.NotNil(t, m.TheaterCount)
			assert.Equal(t, *tt.count, *m.TheaterCount)
		})
	}
}

func TestUnit_MovieRecord_SetTheaterCount_ClearsPrevious(t *testing.T) {
	var m MovieRecord
	m.SetTheaterCount(ptr(12))
	require.True(t, m.IsLimitedRelease)

	m.SetTheaterCount(nil)
	assert.Nil(t, m.TheaterCount)
	assert.False(t, m.IsLimitedRelease)
}

func TestUnit_NewSnapshot(t *testing.T) {
	at := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	s := NewSnapshot(nil, at)
	assert.Equal(t, 0, s.Count)
	assert.NotNil(t, s.Movies)

	s = NewSnapshot([]MovieRecord{{Title: "A"}, {Title: "B"}}, at)
	assert.Equal(t, 2, s.Count)
	assert.Equal(t, at, s.UpdatedAt)
}
