package projections

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"example.com/florahub/services/plants/models"
)

// newProjectionDB opens a throwaway SQLite database with the read model
// schema migrated
func newProjectionDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "projections.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Plant{},
		&models.PlantTimelineEntry{},
		&models.RequestQueueEntry{},
	))

	return db
}
