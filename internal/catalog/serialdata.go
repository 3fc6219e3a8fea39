package catalog

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var serialDataPattern = regexp.MustCompile(`(?s)window\.SERIAL_DATA\s*=\s*({.*?})\s*(?:;|\n|$)`)

// SourceLink is one translator entry advertised by a player source.
type SourceLink struct {
	Link string
	Name string
}

// SerialEpisode is one entry of the player's episode list.
// Movies populate Versions; series populate Sources keyed by source id.
type SerialEpisode struct {
	Title    string
	Versions []SourceLink
	Sources  map[string][]SourceLink
	order    []string
}

// SerialData is the player configuration embedded in an embed page.
type SerialData struct {
	Episode  int
	Episodes []SerialEpisode
	movie    bool
}

// IsMovie reports whether the first episode lists versions rather than sources.
func (d *SerialData) IsMovie() bool { return d.movie }

// EpisodeSources returns the sources of the 1-based episode n.
func (d *SerialData) EpisodeSources(n int) (map[string][]SourceLink, bool) {
	if n < 1 || n > len(d.Episodes) {
		return nil, false
	}
	return d.Episodes[n-1].Sources, true
}

// SourceIDs returns the source ids of ep in page order.
func (ep SerialEpisode) SourceIDs() []string {
	if len(ep.order) == len(ep.Sources) {
		return ep.order
	}
	ids := make([]string, 0, len(ep.Sources))
	for id := range ep.Sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ParseSerialData finds the SERIAL_DATA assignment in the page scripts.
func ParseSerialData(doc *goquery.Document, dec Decoder) (*SerialData, error) {
	var blob string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := s.Text()
		if !strings.Contains(body, "window.SERIAL_DATA") {
			return true
		}
		if m := serialDataPattern.FindStringSubmatch(body); m != nil {
			blob = m[1]
			return false
		}
		return true
	})
	if blob == "" {
		return nil, &ParseError{Stage: "serial-data", Err: ErrNoStructuredData}
	}

	v, err := dec.Decode([]byte(blob))
	if err != nil {
		return nil, &ParseError{Stage: "serial-data", Err: err}
	}
	obj := objectOf(v)
	if obj == nil {
		return nil, &ParseError{Stage: "serial-data", Err: fmt.Errorf("unexpected top-level %T", v)}
	}

	data := &SerialData{}
	keys := keyPositions{blob: blob, pos: make(map[string]int)}
	data.Episode, _ = intOf(obj["episode"])
	for i, raw := range listOf(obj["episodes"]) {
		ep := objectOf(raw)
		if ep == nil {
			continue
		}
		out := SerialEpisode{Title: stringOf(ep["title"])}
		switch src := ep["src"].(type) {
		case []any:
			out.Versions = parseSourceLinks(src)
			if i == 0 {
				data.movie = true
			}
		case map[string]any:
			out.Sources = make(map[string][]SourceLink, len(src))
			for id, links := range src {
				out.Sources[id] = parseSourceLinks(listOf(links))
				out.order = append(out.order, id)
			}
			keys.sort(out.order)
		}
		data.Episodes = append(data.Episodes, out)
	}
	return data, nil
}

// keyPositions orders object keys by where they first appear in the raw
// blob, which decoding into a map forgets. Keys not found sort last by name.
type keyPositions struct {
	blob string
	pos  map[string]int
}

func (k keyPositions) position(key string) int {
	if p, ok := k.pos[key]; ok {
		return p
	}
	p := -1
	re := regexp.MustCompile(`(?:^|[^\w$])["']?` + regexp.QuoteMeta(key) + `["']?\s*:`)
	if loc := re.FindStringIndex(k.blob); loc != nil {
		p = loc[0]
	}
	k.pos[key] = p
	return p
}

func (k keyPositions) sort(keys []string) {
	sort.SliceStable(keys, func(i, j int) bool {
		pi, pj := k.position(keys[i]), k.position(keys[j])
		switch {
		case pi < 0 && pj < 0:
			return keys[i] < keys[j]
		case pi < 0 || pj < 0:
			return pj < 0
		default:
			return pi < pj
		}
	})
}

func parseSourceLinks(raw []any) []SourceLink {
	links := make([]SourceLink, 0, len(raw))
	for _, r := range raw {
		obj := objectOf(r)
		link := stringOf(obj["link"])
		if link == "" {
			continue
		}
		links = append(links, SourceLink{Link: link, Name: stringOf(obj["name"])})
	}
	return links
}
