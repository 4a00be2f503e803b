package diff

import (
	"fmt"

	"github.com/drewfead/eiga-watcher/internal"
)

// DetectNew returns the records of current whose title does not appear in previous, in current's
// order, along with their titles. Titles are compared exactly.
func DetectNew(current, previous []internal.MovieRecord) ([]internal.MovieRecord, []string) {
	seen := make(map[string]struct{}, len(previous))
	for _, m := range previous {
		seen[m.Title] = struct{}{}
	}

	movies := make([]internal.MovieRecord, 0)
	titles := make([]string, 0)
	for _, m := range current {
		if _, ok := seen[m.Title]; ok {
			continue
		}
		movies = append(movies, m)
		titles = append(titles, m.Title)
	}
	return movies, titles
}

func FormatSummary(current, previous, added int) string {
	return fmt.Sprintf("現在の公開予定映画: %d件\n前回の公開予定映画: %d件\n新着映画: %d件", current, previous, added)
}
