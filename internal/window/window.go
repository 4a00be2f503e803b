package window

import (
	"errors"
	"fmt"
	"time"

	"github.com/drewfead/eiga-watcher/internal"
	"github.com/drewfead/eiga-watcher/internal/releasedate"
)

type Direction string

const (
	Past   Direction = "past"
	Future Direction = "future"
)

var (
	ErrInvalidDirection = errors.New("invalid window direction")
	ErrInvalidWindow    = errors.New("invalid window length")
)

// Within keeps the records whose release date falls inside the window of days around anchor,
// compared at day granularity in anchor's location. Past keeps dates from anchor-days through
// anchor; Future keeps dates up to anchor+days. Records whose date cannot be resolved are
// dropped. Order is preserved.
func Within(records []internal.MovieRecord, anchor time.Time, direction Direction, days int) ([]internal.MovieRecord, error) {
	if direction != Past && direction != Future {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: %d days", ErrInvalidWindow, days)
	}

	today := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), 0, 0, 0, 0, anchor.Location())
	earliest, latest := today.AddDate(0, 0, -days), today
	if direction == Future {
		latest = today.AddDate(0, 0, days)
	}

	kept := make([]internal.MovieRecord, 0, len(records))
	for _, r := range records {
		d, ok := releasedate.Normalize(r.ReleaseDate, anchor)
		if !ok {
			continue
		}
		if d.After(latest) {
			continue
		}
		if direction == Past && d.Before(earliest) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, nil
}
