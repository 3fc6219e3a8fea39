// Package matching ranks catalog search rows against a lookup query.
package matching

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"golang.org/x/text/unicode/norm"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/config"
)

// DefaultThreshold is the minimum score FindBestMatch accepts.
const DefaultThreshold = 0.3

// SearchQuery describes the media a caller wants to locate.
type SearchQuery struct {
	Title         string            `json:"title"`
	OriginalTitle string            `json:"original_title,omitempty"`
	Year          *int              `json:"year,omitempty"`
	Kind          catalog.MediaKind `json:"media_kind"`
	Season        *int              `json:"season_number,omitempty"`
	Episode       *int              `json:"episode_number,omitempty"`
	TotalEpisodes *int              `json:"total_episodes,omitempty"`
}

// Weights are the relative importance of each score dimension.
type Weights struct {
	Title   float64
	Year    float64
	Season  float64
	Episode float64
}

// DefaultWeights returns title 0.4, year 0.2, season 0.2, episode 0.1.
func DefaultWeights() Weights {
	return Weights{Title: 0.4, Year: 0.2, Season: 0.2, Episode: 0.1}
}

// WeightsFromConfig converts matching configuration.
func WeightsFromConfig(cfg config.MatchingConfig) Weights {
	return Weights{
		Title:   cfg.TitleWeight,
		Year:    cfg.YearWeight,
		Season:  cfg.SeasonWeight,
		Episode: cfg.EpisodeWeight,
	}
}

// Scorer computes a similarity in [0,1] between a query and a search row.
type Scorer struct {
	weights Weights
}

// NewScorer creates a scorer. Negative weights are clamped to zero.
func NewScorer(w Weights) *Scorer {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	return &Scorer{weights: Weights{
		Title:   clamp(w.Title),
		Year:    clamp(w.Year),
		Season:  clamp(w.Season),
		Episode: clamp(w.Episode),
	}}
}

// Score returns the weighted, normalized match score.
// Only dimensions the query specifies contribute to the normalization.
func (s *Scorer) Score(q SearchQuery, c catalog.SearchItem) float64 {
	title := TitleSimilarity(q.Title, c.Title)
	if q.OriginalTitle != "" {
		if orig := TitleSimilarity(q.OriginalTitle, c.Title); orig > title {
			title = orig
		}
	}

	score := title * s.weights.Title
	total := s.weights.Title

	if year, ok := positive(q.Year); ok {
		score += YearScore(year, c.Year) * s.weights.Year
		total += s.weights.Year
	}
	if season, ok := positive(q.Season); ok {
		score += SeasonScore(season, c.Season) * s.weights.Season
		total += s.weights.Season
	}
	if need, ok := positive(q.TotalEpisodes); ok {
		score += EpisodeScore(need, c.EpisodeCount) * s.weights.Episode
		total += s.weights.Episode
	}

	if total <= 0 {
		return title
	}
	return score / total
}

// TitleSimilarity compares two titles after NFC normalization and lowercasing.
// Equal titles score 1, containment either way scores at least 0.9, otherwise
// the score is the longest-matching-blocks ratio over runes.
func TitleSimilarity(a, b string) float64 {
	a, b = normalizeTitle(a), normalizeTitle(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	ratio := difflib.NewMatcher(runes(a), runes(b)).Ratio()
	if strings.Contains(a, b) || strings.Contains(b, a) {
		ratio = max(ratio, 0.9)
	}
	return ratio
}

// YearScore is 1 for the same year, 0.8 one year off, 0.5 two years off, else 0.
func YearScore(want, got int) float64 {
	if got <= 0 {
		return 0
	}
	d := want - got
	if d < 0 {
		d = -d
	}
	switch {
	case d == 0:
		return 1
	case d == 1:
		return 0.8
	case d == 2:
		return 0.5
	default:
		return 0
	}
}

// SeasonScore is 1 only when the row reports the wanted season.
func SeasonScore(want int, got *int) float64 {
	if got != nil && *got == want {
		return 1
	}
	return 0
}

// EpisodeScore is 1 when the row has at least the needed number of episodes.
func EpisodeScore(need int, got *int) float64 {
	if got != nil && need <= *got {
		return 1
	}
	return 0
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

func positive(p *int) (int, bool) {
	if p == nil || *p <= 0 {
		return 0, false
	}
	return *p, true
}
