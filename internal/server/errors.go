package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mahfuz-oronno/pathshala/internal/generate"
	"github.com/mahfuz-oronno/pathshala/internal/ingest"
)

// httpError maps service errors onto HTTP status codes. Content absence is
// the caller's problem to resolve (upload the chapter), bad documents are a
// client error, indexing failures are upstream faults.
func httpError(err error) error {
	var (
		noContent  *generate.NoContentError
		extraction *ingest.ExtractionError
		indexing   *ingest.IndexingError
	)
	switch {
	case errors.As(err, &noContent):
		return echo.NewHTTPError(http.StatusNotFound, noContent.Error())
	case errors.As(err, &extraction):
		return echo.NewHTTPError(http.StatusBadRequest, extraction.Error())
	case errors.As(err, &indexing):
		return echo.NewHTTPError(http.StatusBadGateway, indexing.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
