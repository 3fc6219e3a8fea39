// Package reconcile aligns catalog seasons with provider season metadata.
package reconcile

import (
	"context"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
)

// SeasonSource provides authoritative season structure.
type SeasonSource interface {
	SeasonCount(ctx context.Context, seriesID int) (int, error)
	GetSeasonDetails(ctx context.Context, seriesID, seasonNumber int) (*tmdb.NormalizedSeasonResult, error)
}

// Strategy names the branch the reconciler took.
type Strategy string

const (
	StrategyDirect    Strategy = "direct"
	StrategySplit     Strategy = "split"
	StrategyExtend    Strategy = "extend"
	StrategySynthetic Strategy = "synthetic"
)

// Origin records where a produced season's descriptors came from.
type Origin string

const (
	OriginProvider  Origin = "provider"
	OriginSplit     Origin = "split"
	OriginStub      Origin = "stub"
	OriginSynthetic Origin = "synthetic"
)

// Series is the series-level metadata used to fill stubbed seasons.
type Series struct {
	ID           int
	Overview     string
	PosterURL    string
	FirstAirDate string
	VoteAverage  float64
}

// SeriesFromProvider converts provider series details.
func SeriesFromProvider(s *tmdb.NormalizedSeriesResult) Series {
	if s == nil {
		return Series{}
	}
	return Series{
		ID:           s.ID,
		Overview:     s.Overview,
		PosterURL:    s.PosterURL,
		FirstAirDate: s.FirstAirDate,
		VoteAverage:  s.VoteAverage,
	}
}

// CatalogSeason is one season as the catalog lists it.
type CatalogSeason struct {
	Number int
	URL    string
	Embeds catalog.EpisodeEmbeds
}

// EpisodeCount is the number of episodes the catalog actually serves.
func (c CatalogSeason) EpisodeCount() int { return len(c.Embeds) }

// Episode is one reconciled episode.
type Episode struct {
	ID          string  `json:"id"`
	Number      int     `json:"episodeNumber"`
	Name        string  `json:"name"`
	Overview    string  `json:"overview"`
	AirDate     string  `json:"airDate"`
	StillURL    string  `json:"stillUrl,omitempty"`
	VoteAverage float64 `json:"voteAverage"`
	VoteCount   int     `json:"voteCount"`
	EmbedURL    string  `json:"embedUrl,omitempty"`
}

// Season is one reconciled season. len(Episodes) equals the catalog episode count.
type Season struct {
	ID          string    `json:"id"`
	Number      int       `json:"seasonNumber"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Overview    string    `json:"overview"`
	PosterURL   string    `json:"posterUrl,omitempty"`
	AirDate     string    `json:"airDate,omitempty"`
	VoteAverage float64   `json:"voteAverage"`
	Origin      Origin    `json:"origin"`
	Episodes    []Episode `json:"episodes"`
}

// Result is the reconciled season map in catalog order.
type Result struct {
	Strategy        Strategy `json:"strategy"`
	ProviderSeasons int      `json:"providerSeasons"`
	Seasons         []Season `json:"seasons"`
	Warnings        []string `json:"warnings,omitempty"`
}

// Season returns the reconciled season with the given number.
func (r *Result) Season(number int) (Season, bool) {
	for _, s := range r.Seasons {
		if s.Number == number {
			return s, true
		}
	}
	return Season{}, false
}

// TotalEpisodes sums episode counts across seasons.
func (r *Result) TotalEpisodes() int {
	n := 0
	for _, s := range r.Seasons {
		n += len(s.Episodes)
	}
	return n
}
