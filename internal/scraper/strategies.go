package scraper

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/eiga-watcher/internal"
	"golang.org/x/net/html"
)

const (
	detailLinkSelector = "a[href*='/movie/']"
	// maxFallbackImages bounds how many images the fallback strategy inspects per page.
	maxFallbackImages = 100
	minAltLength      = 2
)

var (
	monthDayTextPattern = regexp.MustCompile(`\d{1,2}月\d{1,2}日`)
	dateHintSelector    = strings.Join([]string{
		"p[class*='published']", "span[class*='published']", "div[class*='published']",
		"p[class*='date']", "span[class*='date']", "div[class*='date']",
	}, ", ")
)

type headingListStrategy struct {
	heading string
	list    goquery.Matcher
}

// HeadingList finds the first heading matching heading, then the first list matching list that
// follows it in document order, and reads the list's items.
func HeadingList(heading, list string) Strategy {
	return &headingListStrategy{heading: heading, list: goquery.Single(list)}
}

func (s *headingListStrategy) Name() string { return "heading-list" }

func (s *headingListStrategy) Extract(doc *goquery.Document, b RecordBuilder) []internal.MovieRecord {
	heading := doc.Find(s.heading).First()
	if heading.Length() == 0 {
		return nil
	}
	list := followingMatch(heading.Get(0), s.list)
	if list == nil {
		return nil
	}
	return listItems(doc.FindNodes(list), b)
}

// followingMatch walks forward in document order from start and returns the first element matching m.
func followingMatch(start *html.Node, m goquery.Matcher) *html.Node {
	for n := nextInDocument(start); n != nil; n = nextInDocument(n) {
		if n.Type == html.ElementNode && m.Match(n) {
			return n
		}
	}
	return nil
}

func nextInDocument(n *html.Node) *html.Node {
	if n.FirstChild != nil {
		return n.FirstChild
	}
	for ; n != nil; n = n.Parent {
		if n.NextSibling != nil {
			return n.NextSibling
		}
	}
	return nil
}

type listStrategy struct {
	containers []string
}

// List reads the items of the first container found, trying containers in order.
func List(containers ...string) Strategy {
	return &listStrategy{containers: containers}
}

func (s *listStrategy) Name() string { return "list" }

func (s *listStrategy) Extract(doc *goquery.Document, b RecordBuilder) []internal.MovieRecord {
	for _, selector := range s.containers {
		if container := doc.Find(selector).First(); container.Length() > 0 {
			return listItems(container, b)
		}
	}
	return nil
}

// listItems reads the direct li children of container, or every nested li when it has none.
func listItems(container *goquery.Selection, b RecordBuilder) []internal.MovieRecord {
	items := container.ChildrenFiltered("li")
	if items.Length() == 0 {
		items = container.Find("li")
	}
	records := make([]internal.MovieRecord, 0, items.Length())
	items.Each(func(_ int, li *goquery.Selection) {
		if m, ok := listItem(li, b); ok {
			records = append(records, m)
		}
	})
	return records
}

// listItem takes the title from the alt text of the detail link's image. Items without it are dropped.
func listItem(li *goquery.Selection, b RecordBuilder) (internal.MovieRecord, bool) {
	link := li.Find(detailLinkSelector).First()
	if link.Length() == 0 {
		return internal.MovieRecord{}, false
	}
	href, _ := link.Attr("href")
	img := link.Find("img").First()
	title, ok := img.Attr("alt")
	if !ok || strings.TrimSpace(title) == "" {
		return internal.MovieRecord{}, false
	}
	thumbnail, _ := img.Attr("src")

	releaseDate := internal.UndeterminedReleaseDate
	if published := li.Find("p.published").First(); published.Length() > 0 {
		releaseDate = published.Text()
	}
	return b.Build(title, href, releaseDate, thumbnail)
}

type imageAltStrategy struct {
	missingDate string
}

// ImageAlt scans images whose nearest enclosing link points at a detail page. Records are
// deduplicated by detail URL, and missingDate is used when no date can be found near the image.
func ImageAlt(missingDate string) Strategy {
	return &imageAltStrategy{missingDate: missingDate}
}

func (s *imageAltStrategy) Name() string { return "image-alt" }

func (s *imageAltStrategy) Extract(doc *goquery.Document, b RecordBuilder) []internal.MovieRecord {
	seen := make(map[string]struct{})
	var records []internal.MovieRecord
	doc.Find("img[alt]").EachWithBreak(func(i int, img *goquery.Selection) bool {
		if i >= maxFallbackImages {
			return false
		}
		alt, _ := img.Attr("alt")
		if utf8.RuneCountInString(strings.TrimSpace(alt)) < minAltLength {
			return true
		}
		link := img.Closest("a")
		href, _ := link.Attr("href")
		if !strings.Contains(href, "/movie/") {
			return true
		}
		thumbnail, _ := img.Attr("src")

		m, ok := b.Build(alt, href, s.releaseDate(link), thumbnail)
		if !ok {
			return true
		}
		if _, dup := seen[m.URL]; dup {
			return true
		}
		seen[m.URL] = struct{}{}
		records = append(records, m)
		return true
	})
	return records
}

func (s *imageAltStrategy) releaseDate(link *goquery.Selection) string {
	container := link.ParentsFiltered("div").First()
	if container.Length() == 0 {
		container = link.ParentsFiltered("li").First()
	}
	if container.Length() == 0 {
		return s.missingDate
	}
	if hint := container.Find(dateHintSelector).First(); hint.Length() > 0 {
		if text := strings.TrimSpace(hint.Text()); text != "" {
			return text
		}
	}
	if match := monthDayTextPattern.FindString(container.Text()); match != "" {
		return match
	}
	return s.missingDate
}

type searchResultsStrategy struct{}

// SearchResults reads search result entries, taking the title from the first heading found
// (h3, then h2, then h4) or else the link text.
func SearchResults() Strategy {
	return searchResultsStrategy{}
}

func (searchResultsStrategy) Name() string { return "search-results" }

func (searchResultsStrategy) Extract(doc *goquery.Document, b RecordBuilder) []internal.MovieRecord {
	items := doc.Find("div.search-item")
	if items.Length() == 0 {
		items = doc.Find("li.movie-item")
	}
	var records []internal.MovieRecord
	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find(detailLinkSelector).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")

		title := ""
		for _, tag := range []string{"h3", "h2", "h4"} {
			if heading := item.Find(tag).First(); heading.Length() > 0 {
				title = heading.Text()
				break
			}
		}
		if title == "" {
			title = link.Text()
		}

		thumbnail, _ := item.Find("img").First().Attr("src")
		releaseDate := internal.UndeterminedReleaseDate
		if published := item.Find("p.published").First(); published.Length() > 0 {
			releaseDate = published.Text()
		}
		if m, ok := b.Build(title, href, releaseDate, thumbnail); ok {
			records = append(records, m)
		}
	})
	return records
}
