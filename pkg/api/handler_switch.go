package api

import (
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/detrin/sentinel/pkg/models"
)

// createSwitchHandler handles POST /switches. The response is the only
// place the switch's API token ever appears.
func (s *Server) createSwitchHandler(c *echo.Context) error {
	var req models.CreateSwitchRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "Invalid request body")
	}

	resp, err := s.switchService.CreateSwitch(c.Request().Context(), req)
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

// listSwitchesHandler handles GET /switches.
func (s *Server) listSwitchesHandler(c *echo.Context) error {
	switches, err := s.switchService.ListSwitches(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, switches)
}

// getSwitchHandler handles GET /switches/:id.
func (s *Server) getSwitchHandler(c *echo.Context) error {
	detail, err := s.switchService.GetSwitchDetail(c.Request().Context(), c.Param("id"))
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// deleteSwitchHandler handles DELETE /switches/:id.
func (s *Server) deleteSwitchHandler(c *echo.Context) error {
	if err := s.switchService.DeleteSwitch(c.Request().Context(), c.Param("id")); err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, &SuccessResponse{Success: true})
}
