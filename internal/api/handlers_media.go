package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/serialgrab/serialgrab/internal/extractor"
	"github.com/serialgrab/serialgrab/internal/matching"
	"github.com/serialgrab/serialgrab/internal/media"
)

// GET /api/v1/search?q=
func (s *Server) search(c echo.Context) error {
	q := strings.TrimSpace(c.QueryParam("q"))
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	items, err := s.deps.Media.Search(c.Request().Context(), q)
	if err != nil {
		return lookupError(err)
	}
	if items == nil {
		items = []media.SearchItem{}
	}
	return c.JSON(http.StatusOK, items)
}

// GET /api/v1/media?path=
func (s *Server) getMedia(c echo.Context) error {
	path := strings.TrimSpace(c.QueryParam("path"))
	if path == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "path is required")
	}
	m, err := s.deps.Media.GetMedia(c.Request().Context(), path)
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, m)
}

// GET /api/v1/videos?path=
func (s *Server) getVideos(c echo.Context) error {
	groups, err := s.deps.Media.GetVideos(c.Request().Context(), strings.TrimSpace(c.QueryParam("path")))
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, nonNilGroups(groups))
}

// POST /api/v1/streams
func (s *Server) resolveStreams(c echo.Context) error {
	var q matching.SearchQuery
	if err := c.Bind(&q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	groups, err := s.deps.Media.ResolveFilmStreams(c.Request().Context(), q)
	if err != nil {
		return lookupError(err)
	}
	return c.JSON(http.StatusOK, nonNilGroups(groups))
}

func nonNilGroups(groups []extractor.SourceGroup) []extractor.SourceGroup {
	if groups == nil {
		return []extractor.SourceGroup{}
	}
	return groups
}
