package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/drewfead/eiga-watcher/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func testBuilder(t *testing.T) RecordBuilder {
	t.Helper()
	b, err := NewRecordBuilder("https://eiga.com", scrapeTime)
	require.NoError(t, err)
	return b
}

func TestUnit_Chain_EmptyDocument(t *testing.T) {
	doc := parse(t, `<html><body><p>メンテナンス中</p></body></html>`)
	for section, chain := range Chains() {
		got := chain.Extract(doc, testBuilder(t))
		assert.NotNil(t, got, section)
		assert.Empty(t, got, section)
	}
}

func TestUnit_Chain_FallsBackWhenPrimaryEmpty(t *testing.T) {
	doc := parse(t, `
<h2 class="title-xlarge">今週公開の映画</h2>
<div class="card"><a href="/movie/10/"><img src="/img/10.jpg" alt="灯台守"></a><span class="date">10月24日</span></div>`)

	got := Chains()[internal.SectionThisWeek].Extract(doc, testBuilder(t))
	require.Len(t, got, 1)
	assert.Equal(t, "灯台守", got[0].Title)
	assert.Equal(t, "10月24日", got[0].ReleaseDate)
	assert.Equal(t, "https://eiga.com/img/10.jpg", got[0].Thumbnail)
}

func TestUnit_Chain_PrimaryWinsOverFallback(t *testing.T) {
	doc := parse(t, `
<ul class="slide-menu"><li><a href="/movie/1/"><img alt="一番目"></a></li></ul>
<div><a href="/movie/2/"><img alt="二番目"></a></div>`)

	got := Chains()[internal.SectionNowShowing].Extract(doc, testBuilder(t))
	assert.Equal(t, []string{"一番目"}, titlesOf(got))
}

func TestUnit_HeadingList(t *testing.T) {
	s := HeadingList("h2.title-xlarge, h2.margin-top20", "ul.slide-menu")

	t.Run("list after heading", func(t *testing.T) {
		doc := parse(t, `
<ul class="slide-menu"><li><a href="/movie/9/"><img alt="前のリスト"></a></li></ul>
<section><h2 class="margin-top20">今週公開</h2></section>
<div><ul class="slide-menu">
  <li><a href="/movie/1/"><img alt="後のリスト"></a><p class="published">10月24日公開</p></li>
  <li><a href="/movie/2/"><img alt="二本目"></a></li>
</ul></div>`)
		got := s.Extract(doc, testBuilder(t))
		assert.Equal(t, []string{"後のリスト", "二本目"}, titlesOf(got))
		assert.Equal(t, internal.UndeterminedReleaseDate, got[1].ReleaseDate)
	})

	t.Run("no heading", func(t *testing.T) {
		doc := parse(t, `<ul class="slide-menu"><li><a href="/movie/1/"><img alt="作品"></a></li></ul>`)
		assert.Empty(t, s.Extract(doc, testBuilder(t)))
	})

	t.Run("no list after heading", func(t *testing.T) {
		doc := parse(t, `<ul class="slide-menu"><li><a href="/movie/1/"><img alt="作品"></a></li></ul><h2 class="title-xlarge">今週</h2>`)
		assert.Empty(t, s.Extract(doc, testBuilder(t)))
	})
}

func TestUnit_List_DropsInvalidItems(t *testing.T) {
	doc := parse(t, `
<ul class="slide-menu">
  <li><a href="/movie/1/"><img alt="正しい作品"></a></li>
  <li><a href="/movie/2/"><img src="/x.jpg"></a><p class="title">altなし</p></li>
  <li><a href="/movie/3/"><img alt="   "></a></li>
  <li><a href="/news/4/"><img alt="ニュース"></a></li>
  <li><span>リンクなし</span></li>
</ul>`)
	got := List("ul.slide-menu").Extract(doc, testBuilder(t))
	assert.Equal(t, []string{"正しい作品"}, titlesOf(got))
}

func TestUnit_List_ContainerOrder(t *testing.T) {
	doc := parse(t, `<div class="movielist"><ul><li><a href="/movie/5/"><img alt="予定作品"></a></li></ul></div>`)
	got := List("ul.slide-menu", "div.movielist").Extract(doc, testBuilder(t))
	assert.Equal(t, []string{"予定作品"}, titlesOf(got))
}

func TestUnit_ImageAlt(t *testing.T) {
	s := ImageAlt(internal.NowShowingReleaseDate)

	doc := parse(t, `
<div class="a"><a href="/movie/1/"><img alt="日付クラス"></a><p class="movie-published">10月10日公開</p></div>
<div class="b"><a href="/movie/2/"><img alt="本文の日付"></a><span>公開日は10月11日です</span></div>
<li><a href="/movie/3/"><img alt="日付なし"></a></li>
<div class="c"><a href="/movie/1/"><img alt="重複"></a></div>
<div class="d"><a href="/movie/4/"><img alt="X"></a></div>
<div class="e"><a href="/special/5/"><img alt="特集"></a></div>
<div class="f"><img alt="リンクなし"></div>`)

	got := s.Extract(doc, testBuilder(t))
	require.Equal(t, []string{"日付クラス", "本文の日付", "日付なし"}, titlesOf(got))
	assert.Equal(t, "10月10日公開", got[0].ReleaseDate)
	assert.Equal(t, "10月11日", got[1].ReleaseDate)
	assert.Equal(t, internal.NowShowingReleaseDate, got[2].ReleaseDate)
}

func TestUnit_ImageAlt_InspectsBoundedImages(t *testing.T) {
	var b strings.Builder
	for i := range maxFallbackImages + 20 {
		fmt.Fprintf(&b, `<div><a href="/movie/%d/"><img alt="作品%d"></a></div>`, i, i)
	}
	got := ImageAlt(internal.UndeterminedReleaseDate).Extract(parse(t, b.String()), testBuilder(t))
	assert.Len(t, got, maxFallbackImages)
}

func TestUnit_SearchResults(t *testing.T) {
	doc := parse(t, `
<li class="movie-item"><a href="/movie/1/">リンク文字</a><h4>四番見出し</h4><h2>二番見出し</h2></li>
<li class="movie-item"><a href="/movie/2/">リンクだけ</a></li>
<li class="movie-item"><a href="/movie/3/"><img src="/3.jpg"></a></li>`)

	got := SearchResults().Extract(doc, testBuilder(t))
	assert.Equal(t, []string{"二番見出し", "リンクだけ"}, titlesOf(got))
	assert.Equal(t, internal.UndeterminedReleaseDate, got[0].ReleaseDate)
}

func TestUnit_SearchResults_PrefersSearchItems(t *testing.T) {
	doc := parse(t, `
<div class="search-item"><a href="/movie/1/"><h3>検索結果</h3></a></div>
<li class="movie-item"><a href="/movie/2/">別のパターン</a></li>`)
	got := SearchResults().Extract(doc, testBuilder(t))
	assert.Equal(t, []string{"検索結果"}, titlesOf(got))
}

func TestUnit_RecordBuilder(t *testing.T) {
	b := testBuilder(t)

	m, ok := b.Build("  作品  ", "/movie/1/", "", "")
	require.True(t, ok)
	assert.Equal(t, "作品", m.Title)
	assert.Equal(t, "https://eiga.com/movie/1/", m.URL)
	assert.Equal(t, internal.UndeterminedReleaseDate, m.ReleaseDate)
	assert.Empty(t, m.Thumbnail)

	_, ok = b.Build("", "/movie/1/", "", "")
	assert.False(t, ok)
	_, ok = b.Build("作品", "", "", "")
	assert.False(t, ok)

	other, _ := b.Build("別名", "/movie/1/", "", "")
	assert.Equal(t, m.ID, other.ID, "id derives from the detail URL")
}
