package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

const searchPage = `<html><body>
<div id="block-search-page"><div class="row"><div class="col">
  <div class="item">
    <a href="/dim-2020" title="Дім"><img src="/img/dim.jpg"></a>
    <div data-mark="7.9"></div>
    <div class="item__data">
      <div class="name" title=" Дім ">Дім</div>
      <a class="w--100" href="/dim-2020">Дім</a>
      <div class="info"><a class="info__item">2020</a></div>
    </div>
    <div class="last-episode">1 Сезон 8 Серія</div>
  </div>
  <div class="item">
    <a href="/dim-2" title="Дім 2"><img src="/img/dim2.jpg"></a>
    <div data-mark="6.1"></div>
    <div class="item__data">
      <div class="name" title="Дім 2">Дім 2</div>
      <a class="w--100" href="/dim-2">Дім 2</a>
      <div class="info"><a class="info__item">n/a</a></div>
    </div>
  </div>
  <div class="item"><div class="item__data"></div></div>
</div></div></div>
</body></html>`

func TestParseSearchResults(t *testing.T) {
	items := ParseSearchResults(mustDoc(t, searchPage))
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	first := items[0]
	if first.Title != "Дім" || first.URL != "/dim-2020" || first.Year != 2020 {
		t.Errorf("first = %+v", first)
	}
	if first.Season == nil || *first.Season != 1 {
		t.Errorf("first.Season = %v, want 1", first.Season)
	}
	if first.EpisodeCount == nil || *first.EpisodeCount != 8 {
		t.Errorf("first.EpisodeCount = %v, want 8", first.EpisodeCount)
	}

	second := items[1]
	if second.Year != 0 {
		t.Errorf("second.Year = %d, want 0 for unparsable year", second.Year)
	}
	if second.Season != nil || second.EpisodeCount != nil {
		t.Errorf("second should have no season label: %+v", second)
	}
}

func TestParseSearchListing(t *testing.T) {
	items := ParseSearchListing(mustDoc(t, searchPage), "https://catalog.test")
	if len(items) != 2 {
		t.Fatalf("got %d listings, want 2", len(items))
	}
	want := Listing{Title: "Дім", Path: "https://catalog.test/dim-2020", Img: "https://catalog.test/img/dim.jpg", Rating: "7.9"}
	if items[0] != want {
		t.Errorf("items[0] = %+v, want %+v", items[0], want)
	}
}

func TestParseLastEpisodeLabel(t *testing.T) {
	tests := []struct {
		label      string
		wantSeason int
		wantEps    int
		wantNil    bool
	}{
		{"2 сезон 10 серія", 2, 10, false},
		{"  3 СЕЗОН 1 СЕРІЯ ", 3, 1, false},
		{"3сезон12серія", 3, 12, false},
		{"Фільм", 0, 0, true},
		{"", 0, 0, true},
	}
	for _, tt := range tests {
		s, e := ParseLastEpisodeLabel(tt.label)
		if tt.wantNil {
			if s != nil || e != nil {
				t.Errorf("ParseLastEpisodeLabel(%q) = %v, %v; want nil", tt.label, s, e)
			}
			continue
		}
		if s == nil || e == nil || *s != tt.wantSeason || *e != tt.wantEps {
			t.Errorf("ParseLastEpisodeLabel(%q) = %v, %v", tt.label, s, e)
		}
	}
}

func TestMediaKind_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want MediaKind
	}{
		{`"tv"`, MediaSeries},
		{`"Series"`, MediaSeries},
		{`"film"`, MediaMovie},
		{`"movie"`, MediaMovie},
		{`"anime"`, MediaKind("anime")},
	}
	for _, tt := range tests {
		var got struct {
			Kind MediaKind `json:"media_kind"`
		}
		if err := json.Unmarshal([]byte(`{"media_kind":`+tt.in+`}`), &got); err != nil {
			t.Fatalf("Unmarshal(%s) error = %v", tt.in, err)
		}
		if got.Kind != tt.want {
			t.Errorf("Unmarshal(%s) = %q, want %q", tt.in, got.Kind, tt.want)
		}
	}
}

func TestSearchURL(t *testing.T) {
	tests := []struct {
		title string
		kind  MediaKind
		want  string
	}{
		{"Дім", MediaSeries, "https://h.test/search?query=%D0%94%D1%96%D0%BC&type=t"},
		{"Mr. Robot", MediaSeries, "https://h.test/search?query=Mr:+Robot&type=t"},
		{"Up", MediaMovie, "https://h.test/search?query=Up&type=m"},
	}
	for _, tt := range tests {
		if got := SearchURL("https://h.test/", tt.title, tt.kind); got != tt.want {
			t.Errorf("SearchURL(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}

func TestLegacySearchURL(t *testing.T) {
	if got := LegacySearchURL("https://h.test", "Lost", 2, MediaSeries); got != "https://h.test/search?query=Lost&type=t" {
		t.Errorf("ascii title got season appended: %q", got)
	}
	if got := LegacySearchURL("https://h.test", "Дім", 2, ""); got != "https://h.test/search?query=%D0%94%D1%96%D0%BC+2" {
		t.Errorf("non-ascii title = %q", got)
	}
}

func TestParseEpisodeSelector(t *testing.T) {
	doc := mustDoc(t, `<select id="select-series">
		<option data-series-number="1" value="/embed/1">1</option>
		<option data-series-number="2" value="/embed/2">2</option>
		<option data-series-number="10-11" value="/embed/10">10-11</option>
		<option data-series-number="x" value="/embed/x">bad</option>
		<option data-series-number="5" value="">empty</option>
	</select>`)

	got := ParseEpisodeSelector(doc, "https://h.test")
	want := EpisodeEmbeds{
		1:  "https://h.test/embed/1",
		2:  "https://h.test/embed/2",
		10: "https://h.test/embed/10",
		11: "https://h.test/embed/10",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("episode %d = %q, want %q", k, got[k], v)
		}
	}
	if n := got.Numbers(); fmt.Sprint(n) != "[1 2 10 11]" {
		t.Errorf("Numbers() = %v", n)
	}
}

func TestParseEpisodeSelector_RejectsHugeRange(t *testing.T) {
	doc := mustDoc(t, `<select id="select-series">
		<option data-series-number="1" value="/embed/1">1</option>
		<option data-series-number="2-30000000" value="/embed/2">broken</option>
		<option data-series-number="3-1003" value="/embed/3">wide</option>
	</select>`)

	got := ParseEpisodeSelector(doc, "https://h.test")
	if len(got) != 1002 {
		t.Fatalf("len = %d, want 1002", len(got))
	}
	if got[1] != "https://h.test/embed/1" || got[1003] != "https://h.test/embed/3" {
		t.Errorf("embeds 1, 1003 = %q, %q", got[1], got[1003])
	}
	if _, ok := got[2]; ok {
		t.Error("oversized range should be skipped")
	}
}

func TestParseMovieEmbed(t *testing.T) {
	doc := mustDoc(t, `<div class="video-holder"><iframe id="embed" src="/embed/movie/42"></iframe></div>`)
	u, ok := ParseMovieEmbed(doc, "https://h.test")
	if !ok || u != "https://h.test/embed/movie/42" {
		t.Errorf("ParseMovieEmbed() = %q, %v", u, ok)
	}
	if _, ok := ParseMovieEmbed(mustDoc(t, `<div></div>`), "https://h.test"); ok {
		t.Errorf("expected no embed on empty page")
	}
}

const seriesPage = `<html><head>
<script type="application/ld+json">
{
  "@type": "TVSeason",
  "name": "Дім. Сезон 1",
  "description": "Перший рядок
другий рядок",
  "url": "https://h.test/dim/season-1",
  "partOfTVSeries": {
    "name": "Дім",
    "actor": [{"name": "Актор Один"}, {"name": "Актор Два"}],
    "containsSeason": [
      {"seasonNumber": 2, "url": "https://h.test/dim/season-2"},
      {"seasonNumber": "1", "url": "https://h.test/dim/season-1"}
    ]
  }
}
</script></head>
<body><div class="original"> Home </div></body></html>`

func TestParseRecord_SeriesWithRawNewlines(t *testing.T) {
	rec, err := ParseRecord(mustDoc(t, seriesPage), TwoStageDecoder{})
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if rec.Kind != KindTVSeason || !rec.Kind.IsSeries() {
		t.Errorf("Kind = %q", rec.Kind)
	}
	if rec.OriginalName != "Home" {
		t.Errorf("OriginalName = %q, want Home", rec.OriginalName)
	}
	if rec.SeriesName != "Дім" {
		t.Errorf("SeriesName = %q", rec.SeriesName)
	}
	if rec.Description != "Перший рядок\nдругий рядок" {
		t.Errorf("Description = %q", rec.Description)
	}
	if len(rec.Actors) != 2 {
		t.Errorf("Actors = %v", rec.Actors)
	}
	if len(rec.Seasons) != 2 || rec.Seasons[0].Number != 1 || rec.Seasons[1].Number != 2 {
		t.Fatalf("Seasons = %+v, want ordered 1,2", rec.Seasons)
	}
	s2, ok := rec.Season(2)
	if !ok || s2.URL != "https://h.test/dim/season-2" {
		t.Errorf("Season(2) = %+v, %v", s2, ok)
	}
	if _, ok := rec.Season(3); ok {
		t.Errorf("Season(3) should be absent")
	}
}

const relaxedMoviePage = `<script type="application/ld+json">
{'@type': 'Movie', name: 'Вгору', url: 'https://h.test/up', actor: [{name: 'A'},],}
</script><div class="original">Up</div>`

func TestParseRecord_RelaxedFallback(t *testing.T) {
	rec, err := ParseRecord(mustDoc(t, relaxedMoviePage), DefaultDecoder())
	if err != nil {
		t.Fatalf("ParseRecord() error = %v", err)
	}
	if rec.Kind != KindMovie || rec.Name != "Вгору" || rec.OriginalName != "Up" {
		t.Errorf("rec = %+v", rec)
	}
}

func TestParseRecord_RelaxedDisabled(t *testing.T) {
	_, err := ParseRecord(mustDoc(t, relaxedMoviePage), TwoStageDecoder{Strict: StrictDecoder})
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Stage != "ld+json" {
		t.Errorf("Stage = %q", perr.Stage)
	}
}

func TestParseRecord_Missing(t *testing.T) {
	_, err := ParseRecord(mustDoc(t, `<html></html>`), DefaultDecoder())
	if !errors.Is(err, ErrNoStructuredData) {
		t.Errorf("expected ErrNoStructuredData, got %v", err)
	}
}

func TestParseRecord_UnsupportedType(t *testing.T) {
	doc := mustDoc(t, `<script type="application/ld+json">{"@type":"Person","name":"x"}</script>`)
	var perr *ParseError
	if _, err := ParseRecord(doc, DefaultDecoder()); !errors.As(err, &perr) {
		t.Errorf("expected *ParseError, got %v", err)
	}
}

func TestTwoStageDecoder_UsesPluggableRelaxed(t *testing.T) {
	called := false
	dec := TwoStageDecoder{Relaxed: DecoderFunc(func([]byte) (any, error) {
		called = true
		return map[string]any{"ok": true}, nil
	})}

	v, err := dec.Decode([]byte(`{"valid": 1}`))
	if err != nil || called {
		t.Fatalf("strict input should not reach relaxed decoder (err=%v)", err)
	}
	if objectOf(v)["valid"] != float64(1) {
		t.Errorf("strict result = %v", v)
	}

	v, err = dec.Decode([]byte(`{invalid`))
	if err != nil || !called {
		t.Fatalf("relaxed decoder not used: err=%v called=%v", err, called)
	}
	if objectOf(v)["ok"] != true {
		t.Errorf("relaxed result = %v", v)
	}
}

func TestRepairDescription(t *testing.T) {
	in := "{\"description\": \"a\r\nb \",\n  \"url\": \"u\"}"
	want := "{\"description\": \"a\\nb\",\n  \"url\": \"u\"}"
	if got := RepairDescription(in); got != want {
		t.Errorf("RepairDescription() = %q, want %q", got, want)
	}
	if got := RepairDescription(`{"name":"x"}`); got != `{"name":"x"}` {
		t.Errorf("unrelated input changed: %q", got)
	}
}

const seriesEmbedPage = `<html><script>
var x = 1;
window.SERIAL_DATA = {episode: 2, episodes: [
 {title: 'Серія 1', src: {ashdi: [{link: 'https://a/1', name: 'UA'}], videocdn: [{link: 'https://v/1', name: 'RU'}]}},
 {title: 'Серія 2', src: {ashdi: [{link: 'https://a/2', name: 'UA'}, {link: 'https://a/2b', name: 'UA2'}]}},
]};
</script></html>`

func TestParseSerialData_Series(t *testing.T) {
	data, err := ParseSerialData(mustDoc(t, seriesEmbedPage), DefaultDecoder())
	if err != nil {
		t.Fatalf("ParseSerialData() error = %v", err)
	}
	if data.IsMovie() {
		t.Errorf("series data reported as movie")
	}
	if data.Episode != 2 || len(data.Episodes) != 2 {
		t.Fatalf("data = %+v", data)
	}
	src, ok := data.EpisodeSources(2)
	if !ok || len(src["ashdi"]) != 2 || src["ashdi"][1].Name != "UA2" {
		t.Errorf("EpisodeSources(2) = %+v, %v", src, ok)
	}
	if _, ok := data.EpisodeSources(3); ok {
		t.Errorf("EpisodeSources(3) should be out of range")
	}
	if ids := data.Episodes[0].SourceIDs(); len(ids) != 2 || ids[0] != "ashdi" {
		t.Errorf("SourceIDs() = %v", ids)
	}
}

func TestParseSerialData_SourcesKeepPageOrder(t *testing.T) {
	doc := mustDoc(t, `<script>window.SERIAL_DATA = {"episode": 1, "episodes": [
		{"title": "1", "src": {"tortuga": [{"link": "https://t/1", "name": "UA"}], "ashdi": [{"link": "https://ashdi/1", "name": "UA"}], "moon": []}}
	]};</script>`)
	data, err := ParseSerialData(doc, DefaultDecoder())
	if err != nil {
		t.Fatalf("ParseSerialData() error = %v", err)
	}
	if ids := data.Episodes[0].SourceIDs(); fmt.Sprint(ids) != "[tortuga ashdi moon]" {
		t.Errorf("SourceIDs() = %v, want page order", ids)
	}
}

func TestParseSerialData_Movie(t *testing.T) {
	doc := mustDoc(t, `<script>window.SERIAL_DATA = {"episode": 1, "episodes": [{"title": "Серія HDVB", "src": [{"link": "https://m/1", "name": "Дубляж"}]}]}
</script>`)
	data, err := ParseSerialData(doc, DefaultDecoder())
	if err != nil {
		t.Fatalf("ParseSerialData() error = %v", err)
	}
	if !data.IsMovie() {
		t.Fatalf("expected movie shape")
	}
	if v := data.Episodes[0].Versions; len(v) != 1 || v[0].Link != "https://m/1" {
		t.Errorf("Versions = %+v", v)
	}
}

func TestParseSerialData_Missing(t *testing.T) {
	_, err := ParseSerialData(mustDoc(t, `<script>var a = 1;</script>`), DefaultDecoder())
	if !errors.Is(err, ErrNoStructuredData) {
		t.Errorf("expected ErrNoStructuredData, got %v", err)
	}
}

func TestHTTPFetcher_Non200YieldsEmptyDocument(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`<div class="item">blocked</div>`))
			return
		}
		_, _ = w.Write([]byte(`<div class="item">ok</div>`))
	}))
	defer server.Close()

	f := NewHTTPFetcher(5, zerolog.Nop(), WithUserAgent("serialgrab-test"), WithRateLimit(1000))

	doc, err := f.Fetch(context.Background(), server.URL+"/missing")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.Find("div.item").Length() != 0 {
		t.Errorf("non-200 response should produce an empty document")
	}

	doc, err = f.Fetch(context.Background(), server.URL+"/ok")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if doc.Find("div.item").Text() != "ok" {
		t.Errorf("unexpected body %q", doc.Find("div.item").Text())
	}
	if gotUA != "serialgrab-test" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestHTTPFetcher_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPFetcher(1, zerolog.Nop()).Fetch(context.Background(), url)
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if ferr.URL != url {
		t.Errorf("FetchError.URL = %q", ferr.URL)
	}
}

// pageFetcher serves canned documents by URL.
type pageFetcher map[string]string

func (p pageFetcher) Fetch(_ context.Context, url string) (*goquery.Document, error) {
	html, ok := p[url]
	if !ok {
		return EmptyDocument(), nil
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func TestClient_RecordAndEmbeds(t *testing.T) {
	host := "https://h.test"
	pages := pageFetcher{
		host + "/dim/season-1": seriesPage + `<select id="select-series"><option data-series-number="1-2" value="/e/1"></option></select>`,
		host + "/broken":       `<html></html>`,
	}
	c := NewClient(pages, host, nil, zerolog.Nop())

	rec, err := c.Record(context.Background(), "/dim/season-1")
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if rec.SeriesName != "Дім" {
		t.Errorf("SeriesName = %q", rec.SeriesName)
	}

	embeds, err := c.EpisodeEmbeds(context.Background(), "/dim/season-1")
	if err != nil {
		t.Fatalf("EpisodeEmbeds() error = %v", err)
	}
	if len(embeds) != 2 || embeds[2] != host+"/e/1" {
		t.Errorf("embeds = %v", embeds)
	}

	_, err = c.Record(context.Background(), "/broken")
	var perr *ParseError
	if !errors.As(err, &perr) || perr.URL != host+"/broken" {
		t.Errorf("expected ParseError with URL, got %v", err)
	}
}

func TestClient_SearchAllEmptyTitle(t *testing.T) {
	c := NewClient(pageFetcher{}, "https://h.test", nil, zerolog.Nop())
	items, err := c.SearchAll(context.Background(), "", MediaSeries)
	if err != nil || items != nil {
		t.Errorf("SearchAll(\"\") = %v, %v", items, err)
	}
}
