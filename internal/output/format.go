package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/drewfead/eiga-watcher/internal"
	"golang.org/x/text/width"
	"gopkg.in/yaml.v3"
)

var ErrUnknownFormat = errors.New("unknown output format")

// Format renders listings and weekly reports.
type Format interface {
	Name() string
	Movies(w io.Writer, movies []internal.MovieRecord) error
	Report(w io.Writer, report internal.WeeklyReport) error
	Links(w io.Writer, links []internal.Link) error
}

// ByName returns the format registered under name: dense, json or yaml.
func ByName(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "dense":
		return Dense(), nil
	case "json":
		return JSON(), nil
	case "yaml":
		return YAML(), nil
	}
	return nil, fmt.Errorf("%w: %q (valid: dense, json, yaml)", ErrUnknownFormat, name)
}

const (
	dateColumnWidth = 16
	reportPreview   = 5
)

const denseMoviesTemplate = `{{range .}}{{padDate .ReleaseDate}} | {{.Title}}{{theaterNote .}} | {{.URL}}
{{end}}`

const denseLinksTemplate = `{{range .}}{{.Display}}: {{.Href}}
{{end}}`

const denseReportTemplate = `{{.Summary}}

【過去1週間の映画】 {{len .PastWeek}}件
{{template "preview" .PastWeek}}
【先1週間の映画】 {{len .NextWeek}}件
{{template "preview" .NextWeek}}
{{- if .NewTitles}}
【新着映画】
{{range .NewTitles}}  + {{.}}
{{end}}{{end}}`

const densePreviewTemplate = `{{define "preview"}}{{range $i, $m := head . }}  {{inc $i}}. {{$m.Title}} ({{$m.ReleaseDate}}){{theaterNote $m}}
{{end}}{{with more .}}  ...他 {{.}}件
{{end}}{{end}}`

type denseFormat struct {
	movies *template.Template
	report *template.Template
	links  *template.Template
}

// Dense renders one line per movie, and a short preview of each section for reports.
func Dense() Format {
	funcs := template.FuncMap{
		"padDate":     padDate,
		"theaterNote": TheaterNote,
		"inc":         func(i int) int { return i + 1 },
		"head": func(movies []internal.MovieRecord) []internal.MovieRecord {
			return movies[:min(len(movies), reportPreview)]
		},
		"more": func(movies []internal.MovieRecord) int {
			return max(len(movies)-reportPreview, 0)
		},
	}
	return &denseFormat{
		movies: template.Must(template.New("movies").Funcs(funcs).Parse(denseMoviesTemplate)),
		report: template.Must(template.Must(template.New("report").Funcs(funcs).Parse(densePreviewTemplate)).Parse(denseReportTemplate)),
		links:  template.Must(template.New("links").Parse(denseLinksTemplate)),
	}
}

func (f *denseFormat) Name() string { return "dense" }

func (f *denseFormat) Movies(w io.Writer, movies []internal.MovieRecord) error {
	return execute(w, f.movies, movies)
}

func (f *denseFormat) Report(w io.Writer, report internal.WeeklyReport) error {
	return execute(w, f.report, report)
}

func (f *denseFormat) Links(w io.Writer, links []internal.Link) error {
	return execute(w, f.links, links)
}

func execute(w io.Writer, tmpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("%s template: %w", tmpl.Name(), err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// TheaterNote marks limited releases and otherwise shows the theater count when known.
func TheaterNote(m internal.MovieRecord) string {
	switch {
	case m.IsLimitedRelease && m.TheaterCount != nil && *m.TheaterCount > 0:
		return fmt.Sprintf(" ⚠️ 限定公開(%d館)", *m.TheaterCount)
	case m.IsLimitedRelease:
		return " ⚠️ 限定公開"
	case m.TheaterCount != nil && *m.TheaterCount > 0:
		return fmt.Sprintf(" (%d館)", *m.TheaterCount)
	}
	return ""
}

// padDate pads s to the date column, counting wide characters as two cells.
func padDate(s string) string {
	n := displayWidth(s)
	if n >= dateColumnWidth {
		return s
	}
	return s + strings.Repeat(" ", dateColumnWidth-n)
}

func displayWidth(s string) int {
	n := 0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			n += 2
		default:
			n++
		}
	}
	return n
}

type jsonFormat struct{}

func JSON() Format { return jsonFormat{} }

func (jsonFormat) Name() string { return "json" }

func (jsonFormat) Movies(w io.Writer, movies []internal.MovieRecord) error {
	if movies == nil {
		movies = []internal.MovieRecord{}
	}
	return encodeJSON(w, movies)
}

func (jsonFormat) Report(w io.Writer, report internal.WeeklyReport) error {
	return encodeJSON(w, report)
}

func (jsonFormat) Links(w io.Writer, links []internal.Link) error {
	return encodeJSON(w, links)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type yamlFormat struct{}

func YAML() Format { return yamlFormat{} }

func (yamlFormat) Name() string { return "yaml" }

func (yamlFormat) Movies(w io.Writer, movies []internal.MovieRecord) error {
	if movies == nil {
		movies = []internal.MovieRecord{}
	}
	return encodeYAML(w, movies)
}

func (yamlFormat) Report(w io.Writer, report internal.WeeklyReport) error {
	return encodeYAML(w, report)
}

func (yamlFormat) Links(w io.Writer, links []internal.Link) error {
	return encodeYAML(w, links)
}

func encodeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
