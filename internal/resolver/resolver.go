// Package resolver turns a loose media query into a catalog detail record.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/matching"
)

var (
	// ErrNotFound means no catalog entry cleared the match threshold.
	// Callers treat it as an empty result, not a failure.
	ErrNotFound = errors.New("no matching catalog entry")
	// ErrInvalidQuery rejects a query before any network call.
	ErrInvalidQuery = errors.New("invalid query")
)

// Catalog is the subset of the catalog client the resolver needs.
type Catalog interface {
	FirstResult(ctx context.Context, title string, season int, kind catalog.MediaKind) (*catalog.SearchItem, error)
	SearchAll(ctx context.Context, title string, kind catalog.MediaKind) ([]catalog.SearchItem, error)
	Record(ctx context.Context, pageURL string) (*catalog.Record, error)
}

// Resolution is the winning search row and its detail record.
type Resolution struct {
	Match  matching.Match
	Record *catalog.Record
}

// Resolver matches queries against catalog search results.
type Resolver struct {
	catalog   Catalog
	scorer    *matching.Scorer
	threshold float64
	logger    zerolog.Logger
}

// New creates a resolver. A non-positive threshold selects matching.DefaultThreshold.
func New(c Catalog, scorer *matching.Scorer, threshold float64, logger zerolog.Logger) *Resolver {
	if threshold <= 0 {
		threshold = matching.DefaultThreshold
	}
	if scorer == nil {
		scorer = matching.NewScorer(matching.DefaultWeights())
	}
	return &Resolver{
		catalog:   c,
		scorer:    scorer,
		threshold: threshold,
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Validate rejects queries that cannot be resolved.
func Validate(q matching.SearchQuery) error {
	if strings.TrimSpace(q.Title) == "" && strings.TrimSpace(q.OriginalTitle) == "" {
		return fmt.Errorf("%w: title or original title is required", ErrInvalidQuery)
	}
	if q.Kind != catalog.MediaMovie && q.Kind != catalog.MediaSeries {
		return fmt.Errorf("%w: unknown media kind %q", ErrInvalidQuery, q.Kind)
	}
	for name, p := range map[string]*int{
		"year":           q.Year,
		"season_number":  q.Season,
		"episode_number": q.Episode,
		"total_episodes": q.TotalEpisodes,
	} {
		if p != nil && *p < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidQuery, name)
		}
	}
	return nil
}

// Resolve tries each title in order and takes the first search row of the
// first title that returns any.
func (r *Resolver) Resolve(ctx context.Context, titles []string, season int, kind catalog.MediaKind) (*catalog.Record, error) {
	for _, title := range titles {
		if strings.TrimSpace(title) == "" {
			continue
		}
		item, err := r.catalog.FirstResult(ctx, title, season, kind)
		if err != nil {
			return nil, err
		}
		if item == nil {
			continue
		}
		r.logger.Debug().Str("title", title).Str("url", item.URL).Msg("Took first search result")
		return r.catalog.Record(ctx, item.URL)
	}
	r.logger.Info().Strs("titles", titles).Msg("Film was not found")
	return nil, ErrNotFound
}

// Candidates searches by title, then by original title when the first search
// is empty, and de-duplicates rows by URL keeping the first occurrence.
func (r *Resolver) Candidates(ctx context.Context, q matching.SearchQuery) ([]catalog.SearchItem, error) {
	results, err := r.catalog.SearchAll(ctx, q.Title, q.Kind)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && q.OriginalTitle != "" && q.OriginalTitle != q.Title {
		more, err := r.catalog.SearchAll(ctx, q.OriginalTitle, q.Kind)
		if err != nil {
			return nil, err
		}
		results = append(results, more...)
	}
	return dedupeByURL(results), nil
}

// ResolveAll scores every candidate and fetches the record of the best one.
func (r *Resolver) ResolveAll(ctx context.Context, q matching.SearchQuery) (*Resolution, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}

	candidates, err := r.Candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	match, ok := r.scorer.FindBestMatch(q, candidates, r.threshold)
	if !ok {
		r.logger.Info().
			Str("title", q.Title).
			Str("original_title", q.OriginalTitle).
			Int("candidates", len(candidates)).
			Msg("No candidate cleared the match threshold")
		return nil, ErrNotFound
	}

	r.logger.Debug().
		Str("title", match.Item.Title).
		Str("url", match.Item.URL).
		Float64("score", match.Score).
		Msg("Selected catalog candidate")

	record, err := r.catalog.Record(ctx, match.Item.URL)
	if err != nil {
		return nil, err
	}
	return &Resolution{Match: match, Record: record}, nil
}

func dedupeByURL(items []catalog.SearchItem) []catalog.SearchItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]catalog.SearchItem, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.URL]; ok {
			continue
		}
		seen[it.URL] = struct{}{}
		out = append(out, it)
	}
	return out
}
