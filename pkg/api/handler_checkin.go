package api

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"
)

// checkinHandler handles POST /checkin/:id.
// A missing or non-Bearer Authorization header is the only failure reported
// distinctly; beyond that point an unknown switch ID and a wrong token
// produce one identical response, so the endpoint cannot be used to probe
// for valid switch IDs.
func (s *Server) checkinHandler(c *echo.Context) error {
	token, ok := bearerToken(c.Request().Header.Get("Authorization"))
	if !ok {
		return errorJSON(c, http.StatusUnauthorized, "Missing or invalid Authorization header")
	}

	result, err := s.switchService.CheckIn(c.Request().Context(), c.Param("id"), token)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// bearerToken extracts the token from an Authorization header value.
func bearerToken(header string) (string, bool) {
	return strings.CutPrefix(header, "Bearer ")
}
