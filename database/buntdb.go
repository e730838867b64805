package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/buntdb"

	"funnelscope/api/logger"
)

type BuntClient struct {
	DB *buntdb.DB
}

// NewBuntDB opens an embedded buntdb file. ":memory:" keeps it in memory.
func NewBuntDB(path string) (*BuntClient, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create buntdb directory: %w", err)
		}
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening buntdb at %s: %w", path, err)
	}
	if err := db.Shrink(); err != nil {
		logger.Component("database").WithError(err).WithField("path", path).Warn("failed to shrink buntdb file")
	}

	logger.Component("database").WithField("path", path).Info("opened buntdb key-value store")
	return &BuntClient{DB: db}, nil
}

func (c *BuntClient) Close() {
	if c.DB == nil {
		return
	}
	if err := c.DB.Close(); err != nil {
		logger.Component("database").WithError(err).Error("error closing buntdb")
	}
}
