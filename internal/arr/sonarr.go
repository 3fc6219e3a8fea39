package arr

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/config"
)

// Sonarr is a Sonarr API client.
type Sonarr struct {
	client
}

// NewSonarr creates a Sonarr client.
func NewSonarr(cfg config.ArrInstanceConfig, logger zerolog.Logger) *Sonarr {
	return &Sonarr{client: newClient(cfg, logger.With().Str("component", "sonarr").Logger())}
}

// IsConfigured reports whether URL and API key are set.
func (s *Sonarr) IsConfigured() bool { return s.configured() }

// MonitoredSeasons returns the monitored season numbers of a series, ascending.
func (s *Sonarr) MonitoredSeasons(ctx context.Context, seriesID int) ([]int, error) {
	var series struct {
		Seasons []struct {
			SeasonNumber int  `json:"seasonNumber"`
			Monitored    bool `json:"monitored"`
		} `json:"seasons"`
	}
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("series/%d", seriesID), nil, &series); err != nil {
		return nil, fmt.Errorf("sonarr series %d: %w", seriesID, err)
	}

	seasons := []int{}
	for _, season := range series.Seasons {
		if season.Monitored {
			seasons = append(seasons, season.SeasonNumber)
		}
	}
	sort.Ints(seasons)
	return seasons, nil
}

type sonarrImport struct {
	Path         string     `json:"path"`
	SeriesID     int        `json:"seriesId"`
	SeasonNumber int        `json:"seasonNumber"`
	Languages    []Language `json:"languages"`
}

// ManualImport asks Sonarr to import the files in folder for one season.
func (s *Sonarr) ManualImport(ctx context.Context, seriesID int, folder string, season int) error {
	payload := []sonarrImport{{Path: folder, SeriesID: seriesID, SeasonNumber: season, Languages: []Language{ukrainian}}}
	s.logger.Info().Int("series", seriesID).Int("season", season).Str("path", folder).Msg("Requesting manual import")
	if err := s.do(ctx, http.MethodPost, "manualimport", payload, nil); err != nil {
		return fmt.Errorf("sonarr manual import: %w", err)
	}
	return nil
}
