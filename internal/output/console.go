package output

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/drewfead/eiga-watcher/internal"
)

const (
	defaultMessageLimit = 10
	separator           = "=============================="
)

var _ internal.Notifier = (*Console)(nil)

// Console is a Notifier that writes the weekly message to a writer.
type Console struct {
	w     io.Writer
	limit int
}

type ConsoleOption func(*Console)

// ConsoleWithLimit caps the movies listed per section. Defaults to 10.
func ConsoleWithLimit(n int) ConsoleOption {
	return func(c *Console) {
		if n > 0 {
			c.limit = n
		}
	}
}

func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{w: w, limit: defaultMessageLimit}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) Notify(_ context.Context, report internal.WeeklyReport) error {
	if _, err := io.WriteString(c.w, WeeklyMessage(report, c.limit)); err != nil {
		return fmt.Errorf("failed to write weekly message: %w", err)
	}
	slog.Debug("weekly message written", "past_week", len(report.PastWeek), "next_week", len(report.NextWeek))
	return nil
}

// WeeklyMessage formats the past-week and next-week sections of a report, listing at most limit movies each.
func WeeklyMessage(report internal.WeeklyReport, limit int) string {
	var b strings.Builder
	b.WriteString("🎬 週刊映画情報\n")
	b.WriteString(separator + "\n\n")

	writeSection(&b, "【過去1週間以内に公開された映画】", report.PastWeek, limit)
	b.WriteString(separator + "\n\n")
	writeSection(&b, "【先1週間以内に公開予定の映画】", report.NextWeek, limit)
	return b.String()
}

func writeSection(b *strings.Builder, heading string, movies []internal.MovieRecord, limit int) {
	b.WriteString(heading + "\n")
	if len(movies) == 0 {
		b.WriteString("該当する映画はありません\n\n")
		return
	}
	for i, m := range movies[:min(len(movies), limit)] {
		fmt.Fprintf(b, "%d. %s%s\n", i+1, m.Title, TheaterNote(m))
		fmt.Fprintf(b, "   公開日: %s\n", m.ReleaseDate)
		fmt.Fprintf(b, "   %s\n\n", m.URL)
	}
	if rest := len(movies) - limit; rest > 0 {
		fmt.Fprintf(b, "...他 %d件\n\n", rest)
	}
}
