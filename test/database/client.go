// Package database provides shared helpers for integration tests that need
// a real PostgreSQL database.
package database

import (
	"testing"

	"github.com/detrin/sentinel/pkg/database"
	"github.com/detrin/sentinel/test/util"
)

// NewTestClient creates a fully migrated test database client.
// In CI (when CI_DATABASE_URL is set): connects to the external PostgreSQL
// service container. In local dev: uses a shared testcontainer.
// Each test gets its own schema; cleanup is registered automatically.
func NewTestClient(t *testing.T) *database.Client {
	db := util.SetupTestDatabase(t)
	return database.NewClientFromDB(db)
}
