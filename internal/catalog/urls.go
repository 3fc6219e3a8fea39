package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// MediaKind is the kind of media a caller is looking for.
type MediaKind string

const (
	MediaMovie  MediaKind = "movie"
	MediaSeries MediaKind = "series"
)

// ParseMediaKind accepts "movie", "series" and the "tv" alias.
func ParseMediaKind(s string) (MediaKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "film":
		return MediaMovie, true
	case "series", "tv", "show":
		return MediaSeries, true
	default:
		return "", false
	}
}

// UnmarshalText accepts the aliases ParseMediaKind knows. Unknown values are
// kept as given so query validation can reject them.
func (k *MediaKind) UnmarshalText(text []byte) error {
	if kind, ok := ParseMediaKind(string(text)); ok {
		*k = kind
		return nil
	}
	*k = MediaKind(text)
	return nil
}

// searchType is the catalog's single-letter type filter.
func (k MediaKind) searchType() string {
	if k == MediaMovie {
		return "m"
	}
	return "t"
}

// SearchURL builds the catalog search URL for title.
// Dots are rewritten to colons after escaping; the catalog rejects them in queries.
func SearchURL(host, title string, kind MediaKind) string {
	q := strings.ReplaceAll(url.QueryEscape(title), ".", ":")
	return strings.TrimRight(host, "/") + "/search?query=" + q + "&type=" + kind.searchType()
}

// LegacySearchURL builds the older search URL. Non-ASCII titles get the season
// number appended so localized season pages rank first. An empty kind omits the type filter.
func LegacySearchURL(host, title string, season int, kind MediaKind) string {
	value := title
	if season > 0 && !isASCII(title) {
		value = title + " " + strconv.Itoa(season)
	}
	u := strings.TrimRight(host, "/") + "/search?query=" + url.QueryEscape(value)
	if kind != "" {
		u += "&type=" + kind.searchType()
	}
	return u
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
