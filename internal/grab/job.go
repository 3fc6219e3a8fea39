// Package grab downloads pending titles and hands them to Sonarr or Radarr.
package grab

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/arr"
	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/media"
	"github.com/serialgrab/serialgrab/internal/pending"
	"github.com/serialgrab/serialgrab/internal/retry"
)

// Store is the pending queue.
type Store interface {
	ListOlderThan(ctx context.Context, age time.Duration) ([]pending.Media, error)
	DeleteByIDs(ctx context.Context, m pending.Media) (int64, error)
}

// LinkFinder resolves titles to one direct URL per catalog episode.
type LinkFinder interface {
	SeasonLinks(ctx context.Context, titles []string, season int, kind catalog.MediaKind) ([]media.EpisodeLink, error)
}

// Downloader saves a URL to a file.
type Downloader interface {
	Download(ctx context.Context, url, outputPath string) error
}

// SeriesImporter triggers a Sonarr import.
type SeriesImporter interface {
	IsConfigured() bool
	MonitoredSeasons(ctx context.Context, seriesID int) ([]int, error)
	ManualImport(ctx context.Context, seriesID int, folder string, season int) error
}

// MovieImporter triggers a Radarr import.
type MovieImporter interface {
	IsConfigured() bool
	ManualImport(ctx context.Context, m arr.Movie, folder string) error
}

// Job processes pending titles once their grace delay has passed.
type Job struct {
	store      Store
	links      LinkFinder
	downloader Downloader
	sonarr     SeriesImporter
	radarr     MovieImporter
	dir        string
	delay      time.Duration
	retry      retry.Config
	logger     zerolog.Logger
}

// New creates the grab job. Files land under dir.
func New(store Store, links LinkFinder, dl Downloader, sonarr SeriesImporter, radarr MovieImporter, dir string, delay time.Duration, logger zerolog.Logger) *Job {
	return &Job{
		store:      store,
		links:      links,
		downloader: dl,
		sonarr:     sonarr,
		radarr:     radarr,
		dir:        dir,
		delay:      delay,
		retry:      retry.DefaultConfig(),
		logger:     logger.With().Str("component", "grab").Logger(),
	}
}

// Run grabs every due title. Each title leaves the queue after its attempt,
// successful or not.
func (j *Job) Run(ctx context.Context) error {
	items, err := j.store.ListOlderThan(ctx, j.delay)
	if err != nil {
		return fmt.Errorf("list pending: %w", err)
	}
	if len(items) == 0 {
		j.logger.Info().Msg("No media found to grab")
		return nil
	}

	var errs []error
	for _, m := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		j.logger.Info().Str("title", m.Title).Time("added", m.CreatedOn).Str("source", string(m.Source)).Msg("Grabbing")

		var err error
		switch m.Source {
		case pending.SourceSonarr:
			err = j.grabSeries(ctx, m)
		case pending.SourceRadarr:
			err = j.grabMovie(ctx, m)
		default:
			err = fmt.Errorf("unknown source %q", m.Source)
		}
		if err != nil {
			j.logger.Error().Err(err).Str("title", m.Title).Msg("Grab failed")
			errs = append(errs, fmt.Errorf("%s: %w", m.Title, err))
		}

		if _, err := j.store.DeleteByIDs(ctx, m); err != nil {
			errs = append(errs, fmt.Errorf("dequeue %s: %w", m.Title, err))
		}
	}
	return errors.Join(errs...)
}

func (j *Job) grabSeries(ctx context.Context, m pending.Media) error {
	name := safeName(m.Title)
	folder := filepath.Join(j.dir, name)
	for _, season := range j.seasons(ctx, m) {
		links, err := j.links.SeasonLinks(ctx, m.Titles(), season, catalog.MediaSeries)
		if err != nil {
			return fmt.Errorf("season %d: %w", season, err)
		}
		if len(links) == 0 {
			j.logger.Info().Str("title", m.Title).Int("season", season).Msg("No links found for season")
			continue
		}

		for _, link := range links {
			file := filepath.Join(folder, fmt.Sprintf("%s_S%02d_E%02d.mp4", name, season, link.Number))
			if err := j.download(ctx, link.URL, file); err != nil {
				return fmt.Errorf("season %d episode %d: %w", season, link.Number, err)
			}
		}

		if !j.sonarr.IsConfigured() {
			j.logger.Warn().Str("title", m.Title).Msg("Sonarr not configured, skipping import")
			continue
		}
		if err := j.sonarr.ManualImport(ctx, m.InternalID, absolute(folder), season); err != nil {
			return err
		}
	}
	return nil
}

// seasons prefers the seasons stored with the webhook and asks Sonarr
// when none were sent.
func (j *Job) seasons(ctx context.Context, m pending.Media) []int {
	if len(m.MonitoredSeasons) > 0 || !j.sonarr.IsConfigured() {
		return m.MonitoredSeasons
	}
	seasons, err := j.sonarr.MonitoredSeasons(ctx, m.InternalID)
	if err != nil {
		j.logger.Warn().Err(err).Str("title", m.Title).Msg("Failed to fetch monitored seasons")
		return nil
	}
	return seasons
}

func (j *Job) grabMovie(ctx context.Context, m pending.Media) error {
	links, err := j.links.SeasonLinks(ctx, m.Titles(), 0, catalog.MediaMovie)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		j.logger.Info().Str("title", m.Title).Msg("No links found for movie")
		return nil
	}

	title := m.LocalTitle
	if title == "" {
		title = m.Title
	}
	name := safeName(title)
	folder := filepath.Join(j.dir, name)
	if err := j.download(ctx, links[0].URL, filepath.Join(folder, name+".mp4")); err != nil {
		return err
	}

	if !j.radarr.IsConfigured() {
		j.logger.Warn().Str("title", m.Title).Msg("Radarr not configured, skipping import")
		return nil
	}
	return j.radarr.ManualImport(ctx, arr.Movie{ID: m.InternalID, Title: m.Title, TMDBID: m.TMDBID}, absolute(folder))
}

func (j *Job) download(ctx context.Context, url, file string) error {
	j.logger.Info().Str("file", file).Msg("Downloading")
	return retry.Do(ctx, "download "+filepath.Base(file), j.retry, j.logger, func() error {
		return j.downloader.Download(ctx, url, file)
	})
}

// safeName turns a title into a single path element.
func safeName(title string) string {
	r := strings.NewReplacer(" ", "_", "/", "_", `\`, "_")
	return r.Replace(strings.TrimSpace(title))
}

func absolute(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
