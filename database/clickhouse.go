package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"funnelscope/api/logger"
)

// ClickHouseOptions holds the native-protocol connection settings.
type ClickHouseOptions struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

func (o ClickHouseOptions) Configured() bool {
	return o.Host != "" && o.Port != 0 && o.Database != ""
}

type ClickHouseClient struct {
	Conn clickhouse.Conn
}

func NewClickHouseDB(opts ClickHouseOptions) (*ClickHouseClient, error) {
	if !opts.Configured() {
		return nil, fmt.Errorf("CLICKHOUSE_HOST, CLICKHOUSE_NATIVE_PORT, or CLICKHOUSE_DB_NAME environment variables are not set")
	}

	options := &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", opts.Host, opts.Port)},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		ClientInfo: clickhouse.ClientInfo{
			Products: []struct {
				Name    string
				Version string
			}{{Name: "funnelscope-api", Version: "1.0.0"}},
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout: time.Second * 5,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse via Native TCP: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Component("database").WithField("addr", options.Addr[0]).Info("connected to ClickHouse via Native TCP")
	return &ClickHouseClient{Conn: conn}, nil
}

func (c *ClickHouseClient) Close() {
	if c.Conn != nil {
		c.Conn.Close()
		logger.Component("database").Info("ClickHouse connection closed")
	}
}
