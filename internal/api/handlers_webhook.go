package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
	"github.com/serialgrab/serialgrab/internal/pending"
)

// arrEvent is the part of a Sonarr/Radarr webhook body we read.
type arrEvent struct {
	EventType string   `json:"eventType"`
	Series    *arrItem `json:"series"`
	Movie     *arrItem `json:"movie"`
}

type arrItem struct {
	ID     int    `json:"id"`
	Title  string `json:"title"`
	TMDBID int    `json:"tmdbId"`
	IMDBID string `json:"imdbId"`
	TVDBID int    `json:"tvdbId"`
}

// webhookResult tells the caller what happened to the event.
type webhookResult struct {
	Event  string `json:"event"`
	Action string `json:"action"` // added, duplicate, deleted, ignored
}

const (
	actionAdded     = "added"
	actionDuplicate = "duplicate"
	actionDeleted   = "deleted"
	actionIgnored   = "ignored"
)

func (s *Server) sonarrWebhook(c echo.Context) error {
	return s.webhook(c, pending.SourceSonarr)
}

func (s *Server) radarrWebhook(c echo.Context) error {
	return s.webhook(c, pending.SourceRadarr)
}

func (s *Server) webhook(c echo.Context, source pending.Source) error {
	var ev arrEvent
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid JSON received")
	}
	m := ev.media(source)
	log := zerolog.Ctx(c.Request().Context())
	log.Info().Str("source", string(source)).Str("event", ev.EventType).Str("title", m.Title).Msg("Webhook received")

	action, err := s.handleEvent(c, ev.EventType, m)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, webhookResult{Event: ev.EventType, Action: action})
}

func (s *Server) handleEvent(c echo.Context, event string, m pending.Media) (string, error) {
	ctx := c.Request().Context()
	log := zerolog.Ctx(ctx)

	switch event {
	case "SeriesAdd", "MovieAdded":
		if m.TMDBID == 0 {
			log.Warn().Str("title", m.Title).Msg("No TMDB ID, not queued")
			return actionIgnored, nil
		}
		m.MonitoredSeasons = s.monitoredSeasons(c, m)
		m.LocalTitle = s.localTitle(c, m)

		added, err := s.deps.Pending.Add(ctx, m)
		if err != nil {
			return "", echo.NewHTTPError(http.StatusInternalServerError, "failed to queue media").SetInternal(err)
		}
		if !added {
			log.Info().Str("title", m.Title).Msg("Already queued, skipping insert")
			return actionDuplicate, nil
		}
		log.Info().Str("title", m.Title).Int("tmdb", m.TMDBID).Str("imdb", m.IMDBID).Int("tvdb", m.TVDBID).Msg("Added")
		return actionAdded, nil

	case "Grab", "SeriesDelete", "MovieDelete":
		n, err := s.deps.Pending.DeleteByIDs(ctx, m)
		if errors.Is(err, pending.ErrNoIdentifier) {
			log.Warn().Str("title", m.Title).Msg("No valid ID provided")
			return actionIgnored, nil
		}
		if err != nil {
			return "", echo.NewHTTPError(http.StatusInternalServerError, "failed to dequeue media").SetInternal(err)
		}
		log.Info().Str("title", m.Title).Int64("rows", n).Msg("Deleted")
		return actionDeleted, nil

	default:
		return actionIgnored, nil
	}
}

func (s *Server) monitoredSeasons(c echo.Context, m pending.Media) []int {
	if m.Source != pending.SourceSonarr || m.InternalID == 0 || s.deps.Sonarr == nil || !s.deps.Sonarr.IsConfigured() {
		return nil
	}
	seasons, err := s.deps.Sonarr.MonitoredSeasons(c.Request().Context(), m.InternalID)
	if err != nil {
		// The grab job asks Sonarr again when no seasons are stored.
		zerolog.Ctx(c.Request().Context()).Warn().Err(err).Str("title", m.Title).Msg("Failed to fetch monitored seasons")
		return nil
	}
	return seasons
}

func (s *Server) localTitle(c echo.Context, m pending.Media) string {
	if s.deps.Titles == nil {
		return ""
	}
	kind := tmdb.KindTV
	if m.Source == pending.SourceRadarr {
		kind = tmdb.KindMovie
	}
	title, err := s.deps.Titles.LocalizedTitle(c.Request().Context(), m.TMDBID, kind)
	if err != nil || title == "" {
		zerolog.Ctx(c.Request().Context()).Warn().Err(err).Str("title", m.Title).Msg("No localized title found")
		return ""
	}
	return title
}

// GET /api/v1/pending
func (s *Server) listPending(c echo.Context) error {
	items, err := s.deps.Pending.List(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list pending media").SetInternal(err)
	}
	if items == nil {
		items = []pending.Media{}
	}
	return c.JSON(http.StatusOK, items)
}

func (ev arrEvent) media(source pending.Source) pending.Media {
	item := ev.Series
	if source == pending.SourceRadarr {
		item = ev.Movie
	}
	m := pending.Media{Source: source}
	if item == nil {
		return m
	}
	m.InternalID = item.ID
	m.Title = item.Title
	m.TMDBID = item.TMDBID
	m.IMDBID = item.IMDBID
	if source == pending.SourceSonarr {
		m.TVDBID = item.TVDBID
	}
	return m
}
