package metadata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
)

type countingClient struct {
	seriesCalls int
	seasonCalls int
	countCalls  int
	err         error
}

func (c *countingClient) Name() string       { return "fake" }
func (c *countingClient) IsConfigured() bool { return true }

func (c *countingClient) GetMovie(_ context.Context, id int) (*tmdb.NormalizedMovieResult, error) {
	return &tmdb.NormalizedMovieResult{ID: id, Title: "Фільм"}, nil
}

func (c *countingClient) GetSeries(_ context.Context, id int) (*tmdb.NormalizedSeriesResult, error) {
	c.seriesCalls++
	if c.err != nil {
		return nil, c.err
	}
	return &tmdb.NormalizedSeriesResult{ID: id, Title: "Серіал", NumberOfSeasons: 3}, nil
}

func (c *countingClient) GetSeasonDetails(_ context.Context, _, n int) (*tmdb.NormalizedSeasonResult, error) {
	c.seasonCalls++
	return &tmdb.NormalizedSeasonResult{SeasonNumber: n}, nil
}

func (c *countingClient) SeasonCount(context.Context, int) (int, error) {
	c.countCalls++
	return 2, nil
}

func (c *countingClient) SearchByNames(context.Context, []string, int, tmdb.Kind) (*tmdb.SearchResult, error) {
	return nil, tmdb.ErrNotFound
}

func (c *countingClient) LocalizedTitle(context.Context, int, tmdb.Kind) (string, error) {
	return "", nil
}

func TestService_CachesDetails(t *testing.T) {
	client := &countingClient{}
	svc := NewService(client, time.Hour, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.GetSeries(ctx, 7); err != nil {
			t.Fatalf("GetSeries() error = %v", err)
		}
		if _, err := svc.GetSeasonDetails(ctx, 7, 1); err != nil {
			t.Fatalf("GetSeasonDetails() error = %v", err)
		}
	}
	if client.seriesCalls != 1 || client.seasonCalls != 1 {
		t.Errorf("calls = %d series, %d season; want 1 each", client.seriesCalls, client.seasonCalls)
	}

	n, err := svc.SeasonCount(ctx, 7)
	if err != nil || n != 3 {
		t.Errorf("SeasonCount() = %d, %v; want cached 3", n, err)
	}
	if client.countCalls != 0 {
		t.Errorf("SeasonCount hit the client despite cached series")
	}

	title, err := svc.LocalizedTitle(ctx, 7, tmdb.KindTV)
	if err != nil || title != "Серіал" {
		t.Errorf("LocalizedTitle() = %q, %v", title, err)
	}
}

func TestService_DoesNotCacheErrors(t *testing.T) {
	client := &countingClient{err: tmdb.ErrUnavailable}
	svc := NewService(client, time.Hour, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := svc.GetSeries(context.Background(), 1); !errors.Is(err, tmdb.ErrUnavailable) {
			t.Fatalf("GetSeries() error = %v", err)
		}
	}
	if client.seriesCalls != 2 {
		t.Errorf("seriesCalls = %d, want 2", client.seriesCalls)
	}
}

func TestService_NoCache(t *testing.T) {
	client := &countingClient{}
	svc := NewService(client, 0, zerolog.Nop())
	_, _ = svc.GetSeries(context.Background(), 1)
	_, _ = svc.GetSeries(context.Background(), 1)
	if client.seriesCalls != 2 {
		t.Errorf("seriesCalls = %d, want 2 with caching disabled", client.seriesCalls)
	}
	if n, _ := svc.SeasonCount(context.Background(), 1); n != 2 {
		t.Errorf("SeasonCount() = %d, want client value 2", n)
	}
}
