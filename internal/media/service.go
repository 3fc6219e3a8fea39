// Package media exposes search, media description, and stream resolution
// over the catalog and the metadata provider.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/extractor"
	"github.com/serialgrab/serialgrab/internal/matching"
	"github.com/serialgrab/serialgrab/internal/metadata"
	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
	"github.com/serialgrab/serialgrab/internal/reconcile"
	"github.com/serialgrab/serialgrab/internal/resolver"
)

// seasonFetchWorkers bounds concurrent season page fetches.
const seasonFetchWorkers = 4

// Catalog is the catalog access the service needs.
type Catalog interface {
	Listing(ctx context.Context, name string) ([]catalog.Listing, error)
	Record(ctx context.Context, pageURL string) (*catalog.Record, error)
	EpisodeEmbeds(ctx context.Context, seasonURL string) (catalog.EpisodeEmbeds, error)
	MovieEmbed(ctx context.Context, pageURL string) (string, bool, error)
	SerialData(ctx context.Context, embedURL string) (*catalog.SerialData, error)
}

// Resolver finds the catalog record for a query.
type Resolver interface {
	Resolve(ctx context.Context, titles []string, season int, kind catalog.MediaKind) (*catalog.Record, error)
	ResolveAll(ctx context.Context, q matching.SearchQuery) (*resolver.Resolution, error)
}

// Reconciler aligns catalog seasons with provider seasons.
type Reconciler interface {
	Reconcile(ctx context.Context, series reconcile.Series, seasons []reconcile.CatalogSeason) (*reconcile.Result, error)
}

// Extractor resolves the playable links of an embed page.
type Extractor interface {
	Extract(ctx context.Context, data *catalog.SerialData) ([]extractor.SourceGroup, error)
}

// Service implements the produced operations.
type Service struct {
	catalog    Catalog
	resolver   Resolver
	metadata   metadata.TMDBClient
	reconciler Reconciler
	extractor  Extractor
	logger     zerolog.Logger
}

// NewService wires the service.
func NewService(c Catalog, r Resolver, md metadata.TMDBClient, rec Reconciler, ex Extractor, logger zerolog.Logger) *Service {
	return &Service{
		catalog:    c,
		resolver:   r,
		metadata:   md,
		reconciler: rec,
		extractor:  ex,
		logger:     logger.With().Str("component", "media").Logger(),
	}
}

// Search lists catalog titles matching name.
func (s *Service) Search(ctx context.Context, name string) ([]SearchItem, error) {
	rows, err := s.catalog.Listing(ctx, name)
	if err != nil {
		return nil, err
	}
	items := make([]SearchItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, SearchItem{Title: r.Title, Path: r.Path, Img: r.Img, Rating: r.Rating})
	}
	s.logger.Info().Str("name", name).Int("items", len(items)).Msg("Found items")
	return items, nil
}

// GetMedia describes the catalog page at path.
func (s *Service) GetMedia(ctx context.Context, path string) (*Media, error) {
	rec, err := s.catalog.Record(ctx, path)
	if err != nil {
		return nil, err
	}
	if rec.Kind.IsSeries() {
		return s.seriesMedia(ctx, path, rec)
	}
	return s.movieMedia(ctx, path, rec)
}

func (s *Service) movieMedia(ctx context.Context, path string, rec *catalog.Record) (*Media, error) {
	m := &Media{
		Kind:        KindMovie,
		Title:       rec.Name,
		Description: rec.Description,
		Cast:        nonNil(rec.Actors),
	}

	hit, err := s.lookup(ctx, []string{rec.OriginalName, rec.Name}, tmdb.KindMovie)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		details, err := s.metadata.GetMovie(ctx, hit.ID)
		switch {
		case err == nil:
			m.TMDBID = details.ID
			m.Year = details.ReleaseDate
			m.Rating = details.VoteAverage
			m.PosterURL = details.PosterURL
			m.BackdropURL = details.BackdropURL
		case isSoftMetadataError(err):
			s.logger.Info().Err(err).Int("tmdb_id", hit.ID).Msg("Movie details unavailable")
		default:
			return nil, err
		}
	}

	embed, ok, err := s.catalog.MovieEmbed(ctx, path)
	if err != nil {
		return nil, err
	}
	if ok {
		m.EmbedURL = embed
	}
	return m, nil
}

func (s *Service) seriesMedia(ctx context.Context, path string, rec *catalog.Record) (*Media, error) {
	seriesName := rec.SeriesName
	if seriesName == "" {
		seriesName = rec.Name
	}
	m := &Media{
		Kind:  KindSeries,
		Title: seriesName,
		Cast:  nonNil(rec.Actors),
	}

	var series reconcile.Series
	hit, err := s.lookup(ctx, []string{rec.OriginalName, seriesName}, tmdb.KindTV)
	if err != nil {
		return nil, err
	}
	if hit != nil {
		details, err := s.metadata.GetSeries(ctx, hit.ID)
		switch {
		case err == nil:
			series = reconcile.SeriesFromProvider(details)
			m.TMDBID = details.ID
			m.Description = details.Overview
			m.Year = details.FirstAirDate
			m.Rating = details.VoteAverage
			m.PosterURL = details.PosterURL
			m.BackdropURL = details.BackdropURL
		case isSoftMetadataError(err):
			s.logger.Info().Err(err).Int("tmdb_id", hit.ID).Msg("Series details unavailable")
		default:
			return nil, err
		}
	}
	if m.Description == "" {
		m.Description = rec.Description
	}

	refs := rec.Seasons
	if len(refs) == 0 {
		// A season page without siblings stands for season 1.
		refs = []catalog.SeasonRef{{Number: 1, URL: path}}
	}
	seasons, err := s.catalogSeasons(ctx, refs)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.Reconcile(ctx, series, seasons)
	if err != nil {
		return nil, err
	}
	m.Strategy = res.Strategy
	m.Seasons = res.Seasons
	m.Warnings = res.Warnings
	return m, nil
}

// catalogSeasons fetches every season's episode embeds, each into its own slot.
func (s *Service) catalogSeasons(ctx context.Context, refs []catalog.SeasonRef) ([]reconcile.CatalogSeason, error) {
	out := make([]reconcile.CatalogSeason, len(refs))
	p := pool.New().WithErrors().WithMaxGoroutines(min(seasonFetchWorkers, len(refs)))
	for i, ref := range refs {
		p.Go(func() error {
			embeds, err := s.catalog.EpisodeEmbeds(ctx, ref.URL)
			if err != nil {
				return fmt.Errorf("season %d: %w", ref.Number, err)
			}
			out[i] = reconcile.CatalogSeason{Number: ref.Number, URL: ref.URL, Embeds: embeds}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// lookup searches the provider by name. A missing match or an unconfigured
// provider yields nil without error.
func (s *Service) lookup(ctx context.Context, names []string, kind tmdb.Kind) (*tmdb.SearchResult, error) {
	hit, err := s.metadata.SearchByNames(ctx, names, 0, kind)
	if err == nil {
		return hit, nil
	}
	if isSoftMetadataError(err) {
		s.logger.Info().Err(err).Strs("names", names).Str("kind", string(kind)).Msg("No provider match")
		return nil, nil
	}
	return nil, err
}

func isSoftMetadataError(err error) bool {
	return errors.Is(err, tmdb.ErrNotFound) || errors.Is(err, tmdb.ErrAPIKeyMissing)
}

// GetVideos extracts the grouped links of one embed page.
func (s *Service) GetVideos(ctx context.Context, embedPath string) ([]extractor.SourceGroup, error) {
	if embedPath == "" {
		s.logger.Warn().Msg("Embed path is empty")
		return []extractor.SourceGroup{}, nil
	}
	data, err := s.catalog.SerialData(ctx, embedPath)
	if err != nil {
		var perr *catalog.ParseError
		if errors.As(err, &perr) && errors.Is(err, catalog.ErrNoStructuredData) {
			s.logger.Info().Str("embed", embedPath).Msg("Embed page has no player data")
			return []extractor.SourceGroup{}, nil
		}
		return nil, err
	}
	groups, err := s.extractor.Extract(ctx, data)
	if errors.Is(err, extractor.ErrEpisodeOutOfRange) {
		s.logger.Info().Err(err).Str("embed", embedPath).Msg("Episode not in player data")
		return []extractor.SourceGroup{}, nil
	}
	return groups, err
}

// ResolveFilmStreams resolves a query to the grouped links of the requested
// episode, or of the movie. Finding nothing is an empty result.
func (s *Service) ResolveFilmStreams(ctx context.Context, q matching.SearchQuery) ([]extractor.SourceGroup, error) {
	res, err := s.resolver.ResolveAll(ctx, q)
	if errors.Is(err, resolver.ErrNotFound) {
		return []extractor.SourceGroup{}, nil
	}
	if err != nil {
		return nil, err
	}

	embeds, err := s.embeds(ctx, res.Record, valueOr(q.Season, 1))
	if err != nil {
		return nil, err
	}
	episode := valueOr(q.Episode, 1)
	embed, ok := embeds[episode]
	if !ok {
		s.logger.Info().Str("url", res.Record.URL).Int("episode", episode).Msg("Episode not found")
		return []extractor.SourceGroup{}, nil
	}
	return s.GetVideos(ctx, embed)
}

// SeasonLinks resolves titles through the first-result search and returns
// the best direct URL for every episode of season, in episode order and
// numbered as the catalog numbers them. Episodes without a link are skipped
// and episodes sharing one embed page are returned once, under the first
// number. season 0 means a movie.
func (s *Service) SeasonLinks(ctx context.Context, titles []string, season int, kind catalog.MediaKind) ([]EpisodeLink, error) {
	rec, err := s.resolver.Resolve(ctx, titles, season, kind)
	if errors.Is(err, resolver.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	embeds, err := s.embeds(ctx, rec, max(season, 1))
	if err != nil {
		return nil, err
	}
	var links []EpisodeLink
	seen := make(map[string]int)
	for _, n := range embeds.Numbers() {
		embed := embeds[n]
		if first, ok := seen[embed]; ok {
			s.logger.Debug().Int("season", season).Int("episode", n).Int("sharedWith", first).Msg("Episode shares an embed page")
			continue
		}
		seen[embed] = n

		groups, err := s.GetVideos(ctx, embed)
		if err != nil {
			s.logger.Warn().Err(err).Int("season", season).Int("episode", n).Msg("Episode extraction failed")
			continue
		}
		best, ok := extractor.BestLink(groups)
		if !ok {
			s.logger.Info().Int("season", season).Int("episode", n).Msg("No link for episode")
			continue
		}
		links = append(links, EpisodeLink{Number: n, URL: best.URL})
	}
	return links, nil
}

// embeds returns the episode embed map of season, or {1: movie embed} for a movie.
func (s *Service) embeds(ctx context.Context, rec *catalog.Record, season int) (catalog.EpisodeEmbeds, error) {
	if !rec.Kind.IsSeries() {
		embed, ok, err := s.catalog.MovieEmbed(ctx, rec.URL)
		if err != nil || !ok {
			return catalog.EpisodeEmbeds{}, err
		}
		return catalog.EpisodeEmbeds{1: embed}, nil
	}

	ref, ok := rec.Season(season)
	if !ok {
		if len(rec.Seasons) > 0 || season != 1 {
			s.logger.Info().Str("url", rec.URL).Int("season", season).Int("seasons", len(rec.Seasons)).Msg("Season not found")
			return catalog.EpisodeEmbeds{}, nil
		}
		ref = catalog.SeasonRef{Number: 1, URL: rec.URL}
	}
	return s.catalog.EpisodeEmbeds(ctx, ref.URL)
}

func valueOr(p *int, def int) int {
	if p == nil || *p <= 0 {
		return def
	}
	return *p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
