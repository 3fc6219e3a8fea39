package extractor

import (
	"strconv"
	"strings"
)

// BestLink picks the highest-quality link of the first translator that has
// any links, walking groups in order.
func BestLink(groups []SourceGroup) (TranslatorLink, bool) {
	for _, g := range groups {
		for _, tr := range g.Translators {
			if len(tr.Links) == 0 {
				continue
			}
			best := tr.Links[0]
			for _, l := range tr.Links[1:] {
				if qualityHeight(l.Quality) > qualityHeight(best.Quality) {
					best = l
				}
			}
			return best, true
		}
	}
	return TranslatorLink{}, false
}

// qualityHeight reads "720p" as 720. Unknown labels rank lowest.
func qualityHeight(label string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.ToLower(strings.TrimSpace(label)), "p"))
	if err != nil {
		return -1
	}
	return n
}
