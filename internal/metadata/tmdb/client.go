package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/serialgrab/serialgrab/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("TMDB API key is not configured")
	ErrNotFound      = errors.New("not found on TMDB")
	ErrAPIError      = errors.New("TMDB API error")
	ErrRateLimited   = errors.New("TMDB API rate limited")
	ErrUnavailable   = errors.New("TMDB unavailable")
)

// maxProbedSeasons bounds the fallback season probe.
const maxProbedSeasons = 10

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	breaker    *gobreaker.CircuitBreaker
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	if cfg.Language == "" {
		cfg.Language = "uk-UA"
	}
	c := &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
	if cfg.Breaker.Enabled {
		c.breaker = newBreaker(cfg.Breaker, c.logger)
	}
	return c
}

func newBreaker(cfg config.BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "tmdb",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	})
}

// Name returns the provider name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// GetMovie gets detailed movie info by TMDB ID.
func (c *Client) GetMovie(ctx context.Context, id int) (*NormalizedMovieResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var details MovieDetails
	if err := c.doRequest(ctx, fmt.Sprintf("/movie/%d", id), nil, &details); err != nil {
		return nil, err
	}

	result := c.toMovieResult(details.MovieResult)
	result.ImdbID = details.ImdbID

	c.logger.Debug().Int("id", id).Str("title", result.Title).Msg("Got movie details")
	return &result, nil
}

// GetSeries gets detailed series info by TMDB ID.
func (c *Client) GetSeries(ctx context.Context, id int) (*NormalizedSeriesResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	params := url.Values{}
	params.Set("append_to_response", "external_ids")

	var details TVDetails
	if err := c.doRequest(ctx, fmt.Sprintf("/tv/%d", id), params, &details); err != nil {
		return nil, err
	}

	result := c.toSeriesResult(details.TVResult)
	result.NumberOfSeasons = details.NumberOfSeasons
	if details.ExternalIDs != nil {
		result.ImdbID = details.ExternalIDs.ImdbID
		result.TvdbID = details.ExternalIDs.TvdbID
	}

	c.logger.Debug().
		Int("id", id).
		Str("title", result.Title).
		Int("seasons", result.NumberOfSeasons).
		Msg("Got series details")
	return &result, nil
}

// GetSeasonDetails gets a season with its episodes.
func (c *Client) GetSeasonDetails(ctx context.Context, seriesID, seasonNumber int) (*NormalizedSeasonResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	var details SeasonDetails
	endpoint := fmt.Sprintf("/tv/%d/season/%d", seriesID, seasonNumber)
	if err := c.doRequest(ctx, endpoint, nil, &details); err != nil {
		return nil, err
	}

	result := c.seasonDetailsToResult(details)
	return &result, nil
}

// SeasonCount returns how many seasons TMDB knows for a series.
// When the series lookup fails it probes seasons 1..10 and stops at the first gap.
func (c *Client) SeasonCount(ctx context.Context, seriesID int) (int, error) {
	series, err := c.GetSeries(ctx, seriesID)
	if err == nil {
		return series.NumberOfSeasons, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	c.logger.Warn().Err(err).Int("id", seriesID).Msg("Series lookup failed, probing seasons")

	count := 0
	for n := 1; n <= maxProbedSeasons; n++ {
		if _, perr := c.GetSeasonDetails(ctx, seriesID, n); perr != nil {
			if count == 0 && !errors.Is(perr, ErrNotFound) {
				return 0, fmt.Errorf("season probe: %w", perr)
			}
			break
		}
		count++
	}
	return count, nil
}

// SearchByNames searches each name variant in order and returns the first hit.
// Returns ErrNotFound when no variant matches.
func (c *Client) SearchByNames(ctx context.Context, names []string, year int, kind Kind) (*SearchResult, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	for _, query := range NameVariants(names) {
		params := url.Values{}
		params.Set("query", query)
		if year > 0 {
			params.Set("year", strconv.Itoa(year))
		}

		switch kind {
		case KindMovie:
			var resp SearchMoviesResponse
			if err := c.doRequest(ctx, "/search/movie", params, &resp); err != nil {
				return nil, err
			}
			if len(resp.Results) > 0 {
				m := c.toMovieResult(resp.Results[0])
				return &SearchResult{
					ID: m.ID, Kind: KindMovie, Title: m.Title, OriginalTitle: m.OriginalTitle,
					Year: m.Year, Overview: m.Overview, PosterURL: m.PosterURL,
					BackdropURL: m.BackdropURL, VoteAverage: m.VoteAverage,
				}, nil
			}
		default:
			var resp SearchTVResponse
			if err := c.doRequest(ctx, "/search/tv", params, &resp); err != nil {
				return nil, err
			}
			if len(resp.Results) > 0 {
				s := c.toSeriesResult(resp.Results[0])
				return &SearchResult{
					ID: s.ID, Kind: KindTV, Title: s.Title, OriginalTitle: s.OriginalTitle,
					Year: s.Year, Overview: s.Overview, PosterURL: s.PosterURL,
					BackdropURL: s.BackdropURL, VoteAverage: s.VoteAverage,
				}, nil
			}
		}
		c.logger.Debug().Str("query", query).Str("kind", string(kind)).Msg("No TMDB results for variant")
	}
	return nil, ErrNotFound
}

// LocalizedTitle returns the title in the configured language.
func (c *Client) LocalizedTitle(ctx context.Context, id int, kind Kind) (string, error) {
	if kind == KindMovie {
		m, err := c.GetMovie(ctx, id)
		if err != nil {
			return "", err
		}
		return m.Title, nil
	}
	s, err := c.GetSeries(ctx, id)
	if err != nil {
		return "", err
	}
	return s.Title, nil
}

// NameVariants expands catalog titles into search queries.
// "A [B]" yields A and B, "A / B" yields A and B; ? & ' " are dropped.
func NameVariants(names []string) []string {
	strip := strings.NewReplacer("?", "", "&", "", "'", "", `"`, "")
	seen := make(map[string]struct{})
	var out []string
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, name := range names {
		name = strip.Replace(name)
		if open := strings.Index(name, "["); open >= 0 {
			add(name[:open])
			inner := name[open+1:]
			if end := strings.LastIndex(inner, "]"); end >= 0 {
				inner = inner[:end]
			}
			add(inner)
			continue
		}
		if before, after, ok := strings.Cut(name, "/"); ok {
			add(before)
			add(after)
			continue
		}
		add(name)
	}
	return out
}

// GetImageURL returns the full image URL for a TMDB image path.
func (c *Client) GetImageURL(path string, size string) string {
	if path == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s%s", c.config.ImageBaseURL, size, path)
}

func (c *Client) imageURL(path *string, size string) string {
	if path == nil {
		return ""
	}
	return c.GetImageURL(*path, size)
}

// usesBearer reports whether the key is a v4 read access token.
func (c *Client) usesBearer() bool {
	return strings.Count(c.config.APIKey, ".") == 2 && len(c.config.APIKey) > 64
}

// doRequest performs an HTTP GET through the breaker and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, path string, params url.Values, result interface{}) error {
	if c.breaker == nil {
		return c.roundTrip(ctx, path, params, result)
	}
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.roundTrip(ctx, path, params, result)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("language", c.config.Language)
	if !c.usesBearer() {
		params.Set("api_key", c.config.APIKey)
	}
	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path
	reqURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.usesBearer() {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && resp.StatusCode != http.StatusNotFound {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			if resp.StatusCode >= 500 {
				return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
			}
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	y, _ := strconv.Atoi(date[:4])
	return y
}

func (c *Client) toMovieResult(movie MovieResult) NormalizedMovieResult {
	return NormalizedMovieResult{
		ID:            movie.ID,
		Title:         movie.Title,
		OriginalTitle: movie.OriginalTitle,
		Year:          yearOf(movie.ReleaseDate),
		ReleaseDate:   movie.ReleaseDate,
		Overview:      movie.Overview,
		PosterURL:     c.imageURL(movie.PosterPath, "w500"),
		BackdropURL:   c.imageURL(movie.BackdropPath, "original"),
		VoteAverage:   movie.VoteAverage,
	}
}

func (c *Client) toSeriesResult(tv TVResult) NormalizedSeriesResult {
	return NormalizedSeriesResult{
		ID:            tv.ID,
		Title:         tv.Name,
		OriginalTitle: tv.OriginalName,
		Year:          yearOf(tv.FirstAirDate),
		FirstAirDate:  tv.FirstAirDate,
		Overview:      tv.Overview,
		PosterURL:     c.imageURL(tv.PosterPath, "w500"),
		BackdropURL:   c.imageURL(tv.BackdropPath, "original"),
		VoteAverage:   tv.VoteAverage,
	}
}

func (c *Client) seasonDetailsToResult(details SeasonDetails) NormalizedSeasonResult {
	episodes := make([]NormalizedEpisodeResult, 0, len(details.Episodes))
	for _, ep := range details.Episodes {
		episodes = append(episodes, NormalizedEpisodeResult{
			ID:            strconv.Itoa(ep.ID),
			EpisodeNumber: ep.EpisodeNumber,
			SeasonNumber:  ep.SeasonNumber,
			Title:         ep.Name,
			Overview:      ep.Overview,
			AirDate:       ep.AirDate,
			StillURL:      c.imageURL(ep.StillPath, "w300"),
			VoteAverage:   ep.VoteAverage,
			VoteCount:     ep.VoteCount,
		})
	}

	return NormalizedSeasonResult{
		ID:           strconv.Itoa(details.ID),
		SeasonNumber: details.SeasonNumber,
		Name:         details.Name,
		Overview:     details.Overview,
		PosterURL:    c.imageURL(details.PosterPath, "w500"),
		AirDate:      details.AirDate,
		VoteAverage:  details.VoteAverage,
		Episodes:     episodes,
	}
}
