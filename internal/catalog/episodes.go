package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// maxEpisodeSpan bounds how many episodes one selector option may cover.
const maxEpisodeSpan = 1000

const (
	selectEpisodeOptions = "select#select-series option[data-series-number]"
	selectMovieEmbed     = "div.video-holder iframe#embed"
)

// EpisodeEmbeds maps an episode number to its embed page URL.
type EpisodeEmbeds map[int]string

// Numbers returns the episode numbers in ascending order.
func (e EpisodeEmbeds) Numbers() []int {
	numbers := make([]int, 0, len(e))
	for n := range e {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers
}

// ParseEpisodeSelector reads the episode selector of a season page.
// A "10-11" option covers every episode in the inclusive range with one URL.
// Malformed options and implausibly wide ranges are skipped.
func ParseEpisodeSelector(doc *goquery.Document, host string) EpisodeEmbeds {
	embeds := make(EpisodeEmbeds)
	doc.Find(selectEpisodeOptions).Each(func(_ int, opt *goquery.Selection) {
		number := strings.TrimSpace(opt.AttrOr("data-series-number", ""))
		value := strings.TrimSpace(opt.AttrOr("value", ""))
		if number == "" || value == "" {
			return
		}
		first, last, err := parseEpisodeRange(number)
		if err != nil {
			return
		}
		u := joinHost(host, value)
		for n := first; n <= last; n++ {
			embeds[n] = u
		}
	})
	return embeds
}

func parseEpisodeRange(s string) (int, int, error) {
	lo, hi, isRange := strings.Cut(s, "-")
	first, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, err
	}
	if !isRange {
		return first, first, nil
	}
	last, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, err
	}
	if last < first {
		return 0, 0, fmt.Errorf("inverted range %q", s)
	}
	if last-first > maxEpisodeSpan {
		return 0, 0, fmt.Errorf("range %q spans more than %d episodes", s, maxEpisodeSpan)
	}
	return first, last, nil
}

// ParseMovieEmbed returns the absolute URL of a movie page's player frame.
func ParseMovieEmbed(doc *goquery.Document, host string) (string, bool) {
	src := attr(doc.Selection, selectMovieEmbed, "src")
	if src == "" {
		return "", false
	}
	return joinHost(host, src), true
}
