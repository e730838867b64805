package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver.

	"funnelscope/api/logger"
)

// NewSQLiteDB opens (creating if needed) a SQLite file for single-node deployments.
func NewSQLiteDB(path string) (*DBClient, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create sqlite directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening sqlite database: %w", err)
	}
	// SQLite serialises writers; one connection avoids SQLITE_BUSY under load.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to sqlite (ping failed): %w", err)
	}

	logger.Component("database").WithField("path", path).Info("opened SQLite database")
	return &DBClient{DB: db}, nil
}
