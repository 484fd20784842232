package api

import (
	"errors"
	"log/slog"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/detrin/sentinel/pkg/services"
)

func errorJSON(c *echo.Context, status int, message string) error {
	return c.JSON(status, &ErrorResponse{Error: message})
}

// mapServiceError writes the HTTP error response for a service-layer error.
// Sensitive detail (tokens, SQL text) never reaches a response body.
func mapServiceError(c *echo.Context, err error) error {
	var validErr *services.ValidationError
	if errors.As(err, &validErr) {
		return errorJSON(c, http.StatusBadRequest, validErr.Error())
	}
	if errors.Is(err, services.ErrNotFound) {
		return errorJSON(c, http.StatusNotFound, "Switch not found")
	}
	if errors.Is(err, services.ErrAuthenticationFailed) {
		return errorJSON(c, http.StatusUnauthorized, "Authentication failed")
	}

	// Unexpected error
	slog.Error("Unexpected service error", "error", err)
	return errorJSON(c, http.StatusInternalServerError, "Internal server error")
}
