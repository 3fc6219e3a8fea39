package catalog

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	selectSearchRows = "div#block-search-page div.row div.col div.item"
	selectRowName    = "div.item__data div.name"
	selectRowURL     = "div.item__data a.w--100"
	selectRowYear    = "div.item__data div.info a.info__item"
	selectRowLabel   = "div.last-episode"
	selectListDesc   = "a[href][title]:not([class]):not([id])"
	selectListImg    = "img[src]"
	selectListRating = "div[data-mark]"
)

var lastEpisodePattern = regexp.MustCompile(`(\d+)\s*сезон\s*(\d+)\s*серія`)

// SearchItem is one row of a catalog search page.
type SearchItem struct {
	Title        string
	URL          string // site-relative
	Year         int    // 0 when absent
	Season       *int
	EpisodeCount *int
}

// Listing is a search row in the shape shown to browsing clients.
type Listing struct {
	Title  string
	Path   string
	Img    string
	Rating string
}

// ParseSearchResults extracts every result row of a search page.
// Rows without a title or URL are skipped.
func ParseSearchResults(doc *goquery.Document) []SearchItem {
	var items []SearchItem
	doc.Find(selectSearchRows).Each(func(_ int, row *goquery.Selection) {
		item := SearchItem{
			Title: attr(row, selectRowName, "title"),
			URL:   attr(row, selectRowURL, "href"),
		}
		if item.Title == "" || item.URL == "" {
			return
		}
		if y, err := strconv.Atoi(text(row, selectRowYear)); err == nil {
			item.Year = y
		}
		if label := row.Find(selectRowLabel).First(); label.Length() > 0 {
			item.Season, item.EpisodeCount = ParseLastEpisodeLabel(label.Text())
		}
		items = append(items, item)
	})
	return items
}

// ParseLastEpisodeLabel reads labels such as "2 сезон 8 серія".
func ParseLastEpisodeLabel(label string) (season, episodes *int) {
	m := lastEpisodePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(label)))
	if m == nil {
		return nil, nil
	}
	s, err1 := strconv.Atoi(m[1])
	e, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return nil, nil
	}
	return &s, &e
}

// ParseSearchListing extracts browse-style rows with absolute links.
func ParseSearchListing(doc *goquery.Document, host string) []Listing {
	var items []Listing
	doc.Find(selectSearchRows).Each(func(_ int, row *goquery.Selection) {
		desc := row.Find(selectListDesc).First()
		if desc.Length() == 0 {
			return
		}
		href, _ := desc.Attr("href")
		title, _ := desc.Attr("title")
		items = append(items, Listing{
			Title:  strings.TrimSpace(title),
			Path:   joinHost(host, strings.TrimSpace(href)),
			Img:    joinHost(host, attr(row, selectListImg, "src")),
			Rating: attr(row, selectListRating, "data-mark"),
		})
	})
	return items
}
