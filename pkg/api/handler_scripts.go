package api

import (
	"log/slog"
	"net/http"
	"os"
	"strings"

	echo "github.com/labstack/echo/v5"
)

// listScriptsHandler handles GET /scripts. It returns the file names that
// script actions may reference, so operators can see what is deployed.
// Dotfiles and subdirectories are skipped.
func (s *Server) listScriptsHandler(c *echo.Context) error {
	entries, err := os.ReadDir(s.scriptsDir)
	if err != nil {
		slog.Error("Failed to list scripts", "dir", s.scriptsDir, "error", err)
		return c.JSON(http.StatusInternalServerError, []string{})
	}

	scripts := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.Type().IsRegular() && !strings.HasPrefix(name, ".") {
			scripts = append(scripts, name)
		}
	}
	return c.JSON(http.StatusOK, scripts)
}
