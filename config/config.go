// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"
	"github.com/joho/godotenv"

	"funnelscope/api/database"
	"funnelscope/api/logger"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMemory   = "memory"
	DriverBuntDB   = "buntdb"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Configuration struct {
	Port           string `env:"PORT" envDefault:"8080"`
	GinMode        string `env:"GIN_MODE" envDefault:"debug"`
	FrontendOrigin string `env:"FE_ORIGIN" envDefault:"http://localhost:3000"`

	StoreDriver string `env:"STORE_DRIVER" envDefault:"buntdb"`
	BuntDBPath  string `env:"BUNTDB_PATH" envDefault:"data/funnel.db"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"data/funnel.sqlite"`
	DatabaseURL string `env:"DATABASE_URL"`

	// ClickHouse archive; disabled unless host, port and database are all set.
	ClickHouseHost       string `env:"CLICKHOUSE_HOST"`
	ClickHouseNativePort int    `env:"CLICKHOUSE_NATIVE_PORT"`
	ClickHouseDBName     string `env:"CLICKHOUSE_DB_NAME"`
	ClickHouseUsername   string `env:"CLICKHOUSE_USERNAME"`
	ClickHousePassword   string `env:"CLICKHOUSE_PASSWORD"`

	StagesFile    string        `env:"FUNNEL_STAGES_FILE"`
	AbandonAfter  time.Duration `env:"ABANDONMENT_TIMEOUT" envDefault:"24h"`
	SweepInterval time.Duration `env:"ABANDONMENT_SWEEP_INTERVAL" envDefault:"5m"`

	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat     string `env:"LOG_FORMAT" envDefault:"text"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
}

// NewConfig loads the given .env files (".env" when none are given) and then
// parses the environment. Missing .env files are not an error.
func NewConfig(files ...string) (*Configuration, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Configuration{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) Validate() error {
	switch c.StoreDriver {
	case DriverMemory, DriverBuntDB, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q (memory, buntdb, postgres, sqlite)", c.StoreDriver)
	}
	if c.AbandonAfter <= 0 {
		return fmt.Errorf("ABANDONMENT_TIMEOUT must be positive, got %s", c.AbandonAfter)
	}
	if c.SweepInterval <= 0 {
		return fmt.Errorf("ABANDONMENT_SWEEP_INTERVAL must be positive, got %s", c.SweepInterval)
	}
	return nil
}

func (c *Configuration) LogConfig() *logger.LogConfig {
	cfg := logger.DefaultConfig()
	cfg.Level = c.LogLevel
	cfg.Format = c.LogFormat
	cfg.File = c.LogFile
	cfg.MaxSizeMB = c.LogMaxSizeMB
	cfg.MaxBackups = c.LogMaxBackups
	return cfg
}

func (c *Configuration) ClickHouse() database.ClickHouseOptions {
	return database.ClickHouseOptions{
		Host:     c.ClickHouseHost,
		Port:     c.ClickHouseNativePort,
		Database: c.ClickHouseDBName,
		Username: c.ClickHouseUsername,
		Password: c.ClickHousePassword,
	}
}
