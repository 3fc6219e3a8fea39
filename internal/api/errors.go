package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
	"github.com/serialgrab/serialgrab/internal/resolver"
)

// lookupError maps service errors onto HTTP statuses. Upstream failures
// are a 502 so clients can tell them from bad input.
func lookupError(err error) error {
	var (
		parseErr *catalog.ParseError
		fetchErr *catalog.FetchError
	)
	switch {
	case errors.Is(err, resolver.ErrInvalidQuery):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNoStructuredData):
		return echo.NewHTTPError(http.StatusNotFound, "media not found")
	case errors.As(err, &parseErr), errors.As(err, &fetchErr),
		errors.Is(err, tmdb.ErrUnavailable), errors.Is(err, tmdb.ErrRateLimited), errors.Is(err, tmdb.ErrAPIError):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
}
