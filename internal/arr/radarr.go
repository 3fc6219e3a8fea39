package arr

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/config"
)

// Radarr is a Radarr API client.
type Radarr struct {
	client
}

// NewRadarr creates a Radarr client.
func NewRadarr(cfg config.ArrInstanceConfig, logger zerolog.Logger) *Radarr {
	return &Radarr{client: newClient(cfg, logger.With().Str("component", "radarr").Logger())}
}

// IsConfigured reports whether URL and API key are set.
func (r *Radarr) IsConfigured() bool { return r.configured() }

// Movie identifies the Radarr movie being imported.
type Movie struct {
	ID     int
	Title  string
	TMDBID int
}

type radarrMovie struct {
	ID                  int    `json:"id"`
	Title               string `json:"title"`
	TMDBID              int    `json:"tmdbId"`
	Path                string `json:"path"`
	Monitored           bool   `json:"monitored"`
	MinimumAvailability string `json:"minimumAvailability"`
	QualityProfileID    int    `json:"qualityProfileId"`
}

type radarrQuality struct {
	Quality struct {
		ID         int    `json:"id"`
		Name       string `json:"name"`
		Source     string `json:"source"`
		Resolution int    `json:"resolution"`
		Modifier   string `json:"modifier"`
	} `json:"quality"`
	Revision struct {
		Version  int  `json:"version"`
		Real     int  `json:"real"`
		IsRepack bool `json:"isRepack"`
	} `json:"revision"`
}

type radarrImport struct {
	Path      string        `json:"path"`
	MovieID   int           `json:"movieId"`
	Movie     radarrMovie   `json:"movie"`
	Quality   radarrQuality `json:"quality"`
	Languages []Language    `json:"languages"`
}

// webDL720 is the quality reported for grabbed files.
func webDL720() radarrQuality {
	var q radarrQuality
	q.Quality.ID = 1
	q.Quality.Name = "HD-720p"
	q.Quality.Source = "web"
	q.Quality.Resolution = 720
	q.Quality.Modifier = "none"
	q.Revision.Version = 1
	q.Revision.IsRepack = true
	return q
}

// ManualImport asks Radarr to import the files in folder for m.
func (r *Radarr) ManualImport(ctx context.Context, m Movie, folder string) error {
	payload := []radarrImport{{
		Path:    folder,
		MovieID: m.ID,
		Movie: radarrMovie{
			ID: m.ID, Title: m.Title, TMDBID: m.TMDBID, Path: folder,
			Monitored: true, MinimumAvailability: "released", QualityProfileID: 1,
		},
		Quality:   webDL720(),
		Languages: []Language{ukrainian},
	}}
	r.logger.Info().Int("movie", m.ID).Str("path", folder).Msg("Requesting manual import")
	if err := r.do(ctx, http.MethodPost, "manualimport", payload, nil); err != nil {
		return fmt.Errorf("radarr manual import: %w", err)
	}
	return nil
}
