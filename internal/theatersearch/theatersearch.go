// Package theatersearch builds web search and map links for a movie theater by name.
package theatersearch

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/drewfead/eiga-watcher/internal"
)

type Kind string

const (
	KindGeneral  Kind = "general"
	KindLocation Kind = "location"
	KindSchedule Kind = "movie"
	KindMaps     Kind = "maps"
)

const (
	searchBase = "https://www.google.com/search"
	mapsBase   = "https://www.google.com/maps/search"

	minNameLength  = 2
	maxNameLength  = 100
	maxSuggestions = 5
)

var ErrInvalidTheaterName = errors.New("invalid theater name")

var queryTemplates = map[Kind]string{
	KindGeneral:  "%s 映画館",
	KindSchedule: "%s 映画館 上映スケジュール",
	KindMaps:     "%s 映画館 地図",
}

// ValidateName accepts names of 2 to 100 characters after trimming.
func ValidateName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < minNameLength || n > maxNameLength {
		return fmt.Errorf("%w: %q must be %d to %d characters", ErrInvalidTheaterName, name, minNameLength, maxNameLength)
	}
	return nil
}

// Query returns the search terms for a theater. A location query without a location
// falls back to a general one, as does an unknown kind.
func Query(name string, kind Kind, location string) string {
	name = strings.TrimSpace(name)
	if kind == KindLocation && location != "" {
		return fmt.Sprintf("%s 映画館 %s", name, location)
	}
	tmpl, ok := queryTemplates[kind]
	if !ok {
		tmpl = queryTemplates[KindGeneral]
	}
	return fmt.Sprintf(tmpl, name)
}

// SearchURL links to a Google search for the theater, or to Google Maps for KindMaps.
func SearchURL(name string, kind Kind, location string) string {
	base := searchBase
	if kind == KindMaps {
		base = mapsBase
	}
	return base + "?q=" + escape(Query(name, kind, location))
}

// escape encodes spaces as %20 rather than +.
func escape(q string) string {
	return strings.ReplaceAll(url.QueryEscape(q), "+", "%20")
}

// Links returns the general, schedule and map links for a theater.
func Links(name, location string) ([]internal.Link, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	general := KindGeneral
	if location != "" {
		general = KindLocation
	}
	return []internal.Link{
		{Href: SearchURL(name, general, location), Display: "検索"},
		{Href: SearchURL(name, KindSchedule, location), Display: "上映スケジュール"},
		{Href: SearchURL(name, KindMaps, location), Display: "地図"},
	}, nil
}

var chains = []string{
	"TOHOシネマズ",
	"イオンシネマ",
	"ユナイテッド・シネマ",
	"MOVIX",
	"シネマサンシャイン",
	"109シネマズ",
	"ワーナー・マイカル・シネマズ",
	"角川シネマ",
	"新宿ピカデリー",
	"渋谷シネマ",
	"有楽町スバル座",
	"丸の内TOEI",
}

// Suggest returns up to five theater chains whose name contains partial, ignoring case.
func Suggest(partial string) []string {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < minNameLength {
		return []string{}
	}
	needle := strings.ToLower(partial)
	out := []string{}
	for _, c := range chains {
		if strings.Contains(strings.ToLower(c), needle) {
			out = append(out, c)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}
