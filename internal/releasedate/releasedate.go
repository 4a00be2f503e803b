// Package releasedate resolves the Japanese release-date text shown on listing pages
// ("10月18日", "2026年1月5日(月)公開") to calendar dates.
package releasedate

import (
	"regexp"
	"strconv"
	"time"

	"golang.org/x/text/width"
)

var (
	fullDatePattern = regexp.MustCompile(`(\d{4})年\s*(\d{1,2})月\s*(\d{1,2})日`)
	monthDayPattern = regexp.MustCompile(`(\d{1,2})月\s*(\d{1,2})日`)
)

// Normalize returns midnight of the date described by text, in now's location.
//
// A date carrying an explicit year is used as is. A month/day date takes now's year,
// or the following year when its month is earlier than now's month (listings only show
// upcoming months without a year). Text with no date, or an impossible date such as
// 13月5日 or 2月30日, yields false.
func Normalize(text string, now time.Time) (time.Time, bool) {
	text = width.Fold.String(text)
	loc := now.Location()

	if m := fullDatePattern.FindStringSubmatch(text); m != nil {
		return calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), loc)
	}
	if m := monthDayPattern.FindStringSubmatch(text); m != nil {
		month, day := atoi(m[1]), atoi(m[2])
		year := now.Year()
		if month < int(now.Month()) {
			year++
		}
		return calendarDate(year, month, day, loc)
	}
	return time.Time{}, false
}

// calendarDate rejects dates time.Date would silently normalize (2月30日 -> 3月2日).
func calendarDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
