package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorDocument is the body of every locally produced error.
type ErrorDocument struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// handleError maps handler errors to JSON. Upstream failures never reach
// it: they are answered with 200 and a failure document.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	doc := ErrorDocument{Error: "Server error", Message: "Internal server error"}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound:
			code = he.Code
			doc = ErrorDocument{Error: "Not found", Message: "Endpoint not found"}
		case http.StatusMethodNotAllowed:
			code = he.Code
			doc = ErrorDocument{Error: "Method not allowed", Message: "Method not allowed"}
		case http.StatusBadRequest:
			code = he.Code
			doc = ErrorDocument{Error: "Bad request", Message: fmt.Sprint(he.Message)}
		default:
			if he.Code < http.StatusInternalServerError {
				code = he.Code
				doc = ErrorDocument{Error: http.StatusText(he.Code), Message: fmt.Sprint(he.Message)}
			}
		}
	}

	if code >= http.StatusInternalServerError {
		s.logger.Error().
			Err(err).
			Str("uri", c.Request().RequestURI).
			Msg("Local fault")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, doc)
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to write error response")
	}
}
