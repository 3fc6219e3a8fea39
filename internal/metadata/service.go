package metadata

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
)

// Service fronts the TMDB client with a cache for series and season lookups.
// Searches are never cached since their inputs vary per catalog page.
type Service struct {
	client  TMDBClient
	series  *Cache[*tmdb.NormalizedSeriesResult]
	seasons *Cache[*tmdb.NormalizedSeasonResult]
	movies  *Cache[*tmdb.NormalizedMovieResult]
	logger  zerolog.Logger
}

// NewService wraps client. A non-positive ttl disables caching.
func NewService(client TMDBClient, ttl time.Duration, logger zerolog.Logger) *Service {
	s := &Service{
		client: client,
		logger: logger.With().Str("component", "metadata").Logger(),
	}
	if ttl > 0 {
		cfg := CacheConfig{TTL: ttl, MaxItems: 500}
		s.series = NewCache[*tmdb.NormalizedSeriesResult](cfg)
		s.seasons = NewCache[*tmdb.NormalizedSeasonResult](cfg)
		s.movies = NewCache[*tmdb.NormalizedMovieResult](cfg)
	}
	return s
}

// Name returns the provider name.
func (s *Service) Name() string { return s.client.Name() }

// IsConfigured returns true if the provider has credentials.
func (s *Service) IsConfigured() bool { return s.client.IsConfigured() }

// GetMovie returns movie details, cached.
func (s *Service) GetMovie(ctx context.Context, id int) (*tmdb.NormalizedMovieResult, error) {
	return cached(s.movies, fmt.Sprintf("movie:%d", id), func() (*tmdb.NormalizedMovieResult, error) {
		return s.client.GetMovie(ctx, id)
	})
}

// GetSeries returns series details, cached.
func (s *Service) GetSeries(ctx context.Context, id int) (*tmdb.NormalizedSeriesResult, error) {
	return cached(s.series, fmt.Sprintf("tv:%d", id), func() (*tmdb.NormalizedSeriesResult, error) {
		return s.client.GetSeries(ctx, id)
	})
}

// GetSeasonDetails returns one season, cached.
func (s *Service) GetSeasonDetails(ctx context.Context, seriesID, seasonNumber int) (*tmdb.NormalizedSeasonResult, error) {
	key := fmt.Sprintf("tv:%d:season:%d", seriesID, seasonNumber)
	return cached(s.seasons, key, func() (*tmdb.NormalizedSeasonResult, error) {
		return s.client.GetSeasonDetails(ctx, seriesID, seasonNumber)
	})
}

// SeasonCount uses the cached series details when present.
func (s *Service) SeasonCount(ctx context.Context, seriesID int) (int, error) {
	if s.series != nil {
		if series, ok := s.series.Get(fmt.Sprintf("tv:%d", seriesID)); ok {
			return series.NumberOfSeasons, nil
		}
	}
	n, err := s.client.SeasonCount(ctx, seriesID)
	if err == nil {
		s.logger.Debug().Int("series", seriesID).Int("seasons", n).Msg("Resolved provider season count")
	}
	return n, err
}

// SearchByNames passes through to the client.
func (s *Service) SearchByNames(ctx context.Context, names []string, year int, kind tmdb.Kind) (*tmdb.SearchResult, error) {
	return s.client.SearchByNames(ctx, names, year, kind)
}

// LocalizedTitle resolves through the cached detail lookups.
func (s *Service) LocalizedTitle(ctx context.Context, id int, kind tmdb.Kind) (string, error) {
	if kind == tmdb.KindMovie {
		m, err := s.GetMovie(ctx, id)
		if err != nil {
			return "", err
		}
		return m.Title, nil
	}
	series, err := s.GetSeries(ctx, id)
	if err != nil {
		return "", err
	}
	return series.Title, nil
}

func cached[V any](c *Cache[V], key string, load func() (V, error)) (V, error) {
	if c == nil {
		return load()
	}
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := load()
	if err != nil {
		return v, err
	}
	c.Set(key, v)
	return v, nil
}
