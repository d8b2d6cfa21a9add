// Package testdb opens a throwaway SQLite database with the full schema and
// installs it as database.DB for the duration of a test.
package testdb

import (
	"path/filepath"
	"strings"
	"testing"

	"tutorlink_go/config"
	"tutorlink_go/database"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// New migrates every model into a fresh database file and swaps it in for
// database.DB. config.AppConfig gets test defaults unless already set by
// the caller. Both are restored on cleanup.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "tutorlink.db") + "?_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	models := database.AllModels()
	for _, m := range models {
		stmt := &gorm.Statement{DB: db}
		require.NoError(t, stmt.Parse(m))
		// SQLite has no ENUM; status columns fall back to text.
		for _, f := range stmt.Schema.Fields {
			if strings.HasPrefix(string(f.DataType), "enum(") {
				f.DataType = schema.String
			}
		}
	}
	require.NoError(t, db.AutoMigrate(models...))

	prevDB, prevCfg := database.DB, config.AppConfig
	database.DB = db
	if config.AppConfig == nil {
		config.AppConfig = &config.Config{AssessmentPassingPercentage: 70}
	}
	t.Cleanup(func() {
		database.DB, config.AppConfig = prevDB, prevCfg
		sqlDB.Close()
	})
	return db
}
