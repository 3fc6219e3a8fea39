package metadata

import (
	"context"

	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
)

// TMDBClient defines the TMDB operations the resolver pipeline uses.
type TMDBClient interface {
	Name() string
	IsConfigured() bool
	GetMovie(ctx context.Context, id int) (*tmdb.NormalizedMovieResult, error)
	GetSeries(ctx context.Context, id int) (*tmdb.NormalizedSeriesResult, error)
	GetSeasonDetails(ctx context.Context, seriesID, seasonNumber int) (*tmdb.NormalizedSeasonResult, error)
	SeasonCount(ctx context.Context, seriesID int) (int, error)
	SearchByNames(ctx context.Context, names []string, year int, kind tmdb.Kind) (*tmdb.SearchResult, error)
	LocalizedTitle(ctx context.Context, id int, kind tmdb.Kind) (string, error)
}

var _ TMDBClient = (*tmdb.Client)(nil)
var _ TMDBClient = (*Service)(nil)
