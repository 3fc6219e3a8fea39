package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RecordKind is the schema.org type of a catalog detail page.
type RecordKind string

const (
	KindMovie    RecordKind = "Movie"
	KindTVSeason RecordKind = "TVSeason"
	KindTVSeries RecordKind = "TVSeries"
)

// IsSeries reports whether the record describes a series or one of its seasons.
func (k RecordKind) IsSeries() bool {
	return k == KindTVSeason || k == KindTVSeries
}

// SeasonRef points at one season page of a series.
type SeasonRef struct {
	Number int
	URL    string
}

// Record is the structured data of a catalog detail page.
type Record struct {
	Kind         RecordKind
	Name         string
	URL          string
	OriginalName string
	Description  string
	Actors       []string
	// SeriesName is the parent series name for TVSeason pages.
	SeriesName string
	// Seasons is ordered by season number.
	Seasons []SeasonRef
}

// Season returns the season with the given number.
func (r *Record) Season(number int) (SeasonRef, bool) {
	for _, s := range r.Seasons {
		if s.Number == number {
			return s, true
		}
	}
	return SeasonRef{}, false
}

const (
	selectLDJSON   = `script[type="application/ld+json"]`
	selectOriginal = "div.original"
)

// descriptionPattern matches a description string that runs up to the "url" field.
// The catalog emits raw newlines inside it, which strict JSON rejects.
var descriptionPattern = regexp.MustCompile(`(?s)"description":\s*"(.+?)"(,?\s*\n\s*"url")`)

// RepairDescription escapes raw newlines inside the description field.
func RepairDescription(raw string) string {
	loc := descriptionPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return raw
	}
	desc := raw[loc[2]:loc[3]]
	tail := raw[loc[4]:loc[5]]
	desc = strings.ReplaceAll(desc, "\r", "")
	desc = strings.TrimSpace(strings.ReplaceAll(desc, "\n", `\n`))
	return raw[:loc[0]] + `"description": "` + desc + `"` + tail + raw[loc[1]:]
}

// ParseRecord reads the ld+json block of a detail page.
func ParseRecord(doc *goquery.Document, dec Decoder) (*Record, error) {
	script := doc.Find(selectLDJSON).First()
	if script.Length() == 0 {
		return nil, &ParseError{Stage: "ld+json", Err: ErrNoStructuredData}
	}
	raw := strings.TrimSpace(script.Text())
	if raw == "" {
		return nil, &ParseError{Stage: "ld+json", Err: ErrNoStructuredData}
	}

	v, err := dec.Decode([]byte(RepairDescription(raw)))
	if err != nil {
		return nil, &ParseError{Stage: "ld+json", Err: err}
	}
	obj := objectOf(v)
	if obj == nil {
		// Some pages wrap the record in an array.
		if l := listOf(v); len(l) > 0 {
			obj = objectOf(l[0])
		}
	}
	if obj == nil {
		return nil, &ParseError{Stage: "ld+json", Err: fmt.Errorf("unexpected top-level %T", v)}
	}

	rec := &Record{
		Kind:         RecordKind(stringOf(obj["@type"])),
		Name:         stringOf(obj["name"]),
		URL:          stringOf(obj["url"]),
		Description:  stringOf(obj["description"]),
		OriginalName: text(doc.Selection, selectOriginal),
	}
	switch rec.Kind {
	case KindMovie, KindTVSeason, KindTVSeries:
	default:
		return nil, &ParseError{Stage: "ld+json", Err: fmt.Errorf("unsupported @type %q", rec.Kind)}
	}

	for _, a := range listOf(obj["actor"]) {
		if name := stringOf(objectOf(a)["name"]); name != "" {
			rec.Actors = append(rec.Actors, name)
		}
	}

	seasons := obj["containsSeason"]
	if parent := objectOf(obj["partOfTVSeries"]); parent != nil {
		rec.SeriesName = stringOf(parent["name"])
		if seasons == nil {
			seasons = parent["containsSeason"]
		}
		if len(rec.Actors) == 0 {
			for _, a := range listOf(parent["actor"]) {
				if name := stringOf(objectOf(a)["name"]); name != "" {
					rec.Actors = append(rec.Actors, name)
				}
			}
		}
	}
	rec.Seasons = parseSeasonRefs(seasons)

	return rec, nil
}

func parseSeasonRefs(v any) []SeasonRef {
	byNumber := make(map[int]SeasonRef)
	for i, s := range listOf(v) {
		obj := objectOf(s)
		if obj == nil {
			continue
		}
		n, ok := intOf(obj["seasonNumber"])
		if !ok {
			n = i + 1
		}
		u := stringOf(obj["url"])
		if u == "" {
			continue
		}
		if _, dup := byNumber[n]; dup {
			continue
		}
		byNumber[n] = SeasonRef{Number: n, URL: u}
	}

	refs := make([]SeasonRef, 0, len(byNumber))
	for _, r := range byNumber {
		refs = append(refs, r)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Number < refs[j].Number })
	return refs
}
