package postgres_test

import (
	"os"
	"testing"

	"github.com/petermazzocco/project-journal/internal/store"
	"github.com/petermazzocco/project-journal/internal/store/postgres"
	"github.com/petermazzocco/project-journal/internal/store/storetest"
	"github.com/stretchr/testify/require"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// The contract runs against a real database only when TEST_DSN points at one.
// Every table is truncated between subtests.
func TestPostgresContract(t *testing.T) {
	dsn := os.Getenv("TEST_DSN")
	if dsn == "" {
		t.Skip("TEST_DSN not set")
	}
	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	st := postgres.New(db)
	require.NoError(t, st.Migrate())
	t.Cleanup(func() { _ = st.Close() })

	storetest.RunContract(t, func(t *testing.T) store.Store {
		require.NoError(t, db.Exec(
			"TRUNCATE project_team, updates, summaries, projects, employees, clients, users RESTART IDENTITY CASCADE",
		).Error)
		return st
	})
}
