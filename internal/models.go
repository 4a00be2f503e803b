package internal

import "time"

const (
	// UndeterminedReleaseDate is recorded when a listing shows no release date.
	UndeterminedReleaseDate = "未定"
	// NowShowingReleaseDate is recorded by fallback extraction on now-showing pages.
	NowShowingReleaseDate = "公開中"
)

// LimitedReleaseThreshold is the largest theater count still classified as a limited release.
const LimitedReleaseThreshold = 50

type MovieRecord struct {
	ID               string    `json:"id" yaml:"id"`
	Title            string    `json:"title" yaml:"title"`
	URL              string    `json:"url" yaml:"url"`
	ReleaseDate      string    `json:"release_date" yaml:"release_date"`
	Thumbnail        string    `json:"thumbnail" yaml:"thumbnail"`
	ScrapedAt        time.Time `json:"scraped_at" yaml:"scraped_at"`
	TheaterCount     *int      `json:"theater_count,omitempty" yaml:"theater_count,omitempty"`
	IsLimitedRelease bool      `json:"is_limited_release" yaml:"is_limited_release"`
	Overview         string    `json:"overview,omitempty" yaml:"overview,omitempty"`
	Links            []Link    `json:"links,omitempty" yaml:"links,omitempty"`
}

// SetTheaterCount is the only writer of TheaterCount and IsLimitedRelease. A nil count means unknown.
func (m *MovieRecord) SetTheaterCount(count *int) {
	if count == nil {
		m.TheaterCount = nil
		m.IsLimitedRelease = false
		return
	}
	n := *count
	m.TheaterCount = &n
	m.IsLimitedRelease = n <= LimitedReleaseThreshold
}

type Link struct {
	Href    string `json:"href" yaml:"href"`
	Display string `json:"display" yaml:"display"`
}

// Snapshot is the persisted result of the previous run, used as the diff baseline.
type Snapshot struct {
	UpdatedAt time.Time     `json:"updated_at"`
	Count     int           `json:"count"`
	Movies    []MovieRecord `json:"movies"`
}

func NewSnapshot(movies []MovieRecord, at time.Time) Snapshot {
	if movies == nil {
		movies = []MovieRecord{}
	}
	return Snapshot{
		UpdatedAt: at,
		Count:     len(movies),
		Movies:    movies,
	}
}

type Section string

const (
	SectionThisWeek   Section = "this-week"
	SectionNowShowing Section = "now-showing"
	SectionComingSoon Section = "coming-soon"
	SectionSearch     Section = "search"
)

type Site string

const (
	SiteNone    Site = "none"
	SiteEigaCom Site = "eiga.com"
)

type ListMoviesRequest struct {
	Section Section `json:"section"`
	Keyword string  `json:"keyword,omitempty"`
}

type EnrichedMovie struct {
	Movie  MovieRecord       `json:"movie"`
	Audits []EnrichmentAudit `json:"audits"`
}

type EnrichmentResult uint8

const (
	EnrichmentResultSuccess EnrichmentResult = iota
	EnrichmentResultFailure
	EnrichmentResultPartialSuccess
)

type EnrichmentAudit struct {
	Result      EnrichmentResult `json:"result"`
	Details     string           `json:"details"`
	At          time.Time        `json:"at"`
	Annotations map[string]any   `json:"annotations"`
}

// WeeklyReport is the outcome of one weekly run.
type WeeklyReport struct {
	GeneratedAt   time.Time     `json:"generated_at" yaml:"generated_at"`
	PastWeek      []MovieRecord `json:"past_week" yaml:"past_week"`
	NextWeek      []MovieRecord `json:"next_week" yaml:"next_week"`
	Current       []MovieRecord `json:"current" yaml:"current"`
	New           []MovieRecord `json:"new" yaml:"new"`
	NewTitles     []string      `json:"new_titles" yaml:"new_titles"`
	PreviousCount int           `json:"previous_count" yaml:"previous_count"`
	Summary       string        `json:"summary" yaml:"summary"`
}
