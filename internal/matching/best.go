package matching

import "github.com/serialgrab/serialgrab/internal/catalog"

// Match is a selected candidate and its score.
type Match struct {
	Item  catalog.SearchItem
	Score float64
}

// FindBestMatch scans candidates in order and keeps the highest score.
// Ties keep the earlier candidate. It returns false for an empty list or
// when the best score is below threshold.
func (s *Scorer) FindBestMatch(q SearchQuery, candidates []catalog.SearchItem, threshold float64) (Match, bool) {
	var best Match
	found := false
	for _, c := range candidates {
		score := s.Score(q, c)
		if score > best.Score {
			best = Match{Item: c, Score: score}
			found = true
		}
	}
	if !found || best.Score < threshold {
		return Match{}, false
	}
	return best, true
}
