// api/store/analytics_store.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"funnelscope/api/database"
	"funnelscope/api/logger"
	"funnelscope/api/models"
	"funnelscope/api/utils"
)

const sinkTimeout = 5 * time.Second

// AnalyticsStore archives raw funnel events and stage progressions in ClickHouse
// and serves the dashboard time series built on them.
type AnalyticsStore struct {
	DB  *database.ClickHouseClient
	log *logrus.Entry
}

func NewAnalyticsStore(chClient *database.ClickHouseClient) *AnalyticsStore {
	return &AnalyticsStore{
		DB:  chClient,
		log: logger.Component("analytics_store"),
	}
}

// EnsureSchema creates the archive tables when they do not exist.
func (s *AnalyticsStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS funnel_events (
			event_id String,
			event_name LowCardinality(String),
			user_id String,
			session_id String,
			timestamp DateTime64(3, 'UTC'),
			page_url String,
			metadata String,
			value Nullable(Float64),
			currency LowCardinality(String)
		) ENGINE = MergeTree ORDER BY (event_name, timestamp)`,
		`CREATE TABLE IF NOT EXISTS funnel_stage_progressions (
			user_id String,
			session_id String,
			stage_id LowCardinality(String),
			reached_at DateTime64(3, 'UTC'),
			total_value Float64,
			device_type LowCardinality(String),
			traffic_source LowCardinality(String)
		) ENGINE = MergeTree ORDER BY (stage_id, reached_at)`,
	}
	for _, stmt := range stmts {
		if err := s.DB.Conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create ClickHouse table: %w", err)
		}
	}
	return nil
}

func (s *AnalyticsStore) InsertFunnelEvents(ctx context.Context, events []models.FunnelEvent) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO funnel_events (
			event_id, event_name, user_id, session_id, timestamp, page_url, metadata, value, currency
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare batch insert: %w", err)
	}

	for _, event := range events {
		metadata, err := json.Marshal(event.Metadata)
		if err != nil {
			s.log.WithError(err).WithField("eventId", event.EventID).Warn("dropping unencodable event metadata")
			metadata = []byte("{}")
		}
		err = batch.Append(
			event.EventID,
			event.EventName,
			event.UserID,
			event.SessionID,
			event.Time(),
			event.PageURL,
			string(metadata),
			event.Value,
			event.Currency,
		)
		if err != nil {
			s.log.WithError(err).WithField("eventId", event.EventID).Error("error appending event to batch")
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}

	s.log.WithField("count", len(events)).Debug("archived funnel events")
	return nil
}

// OnStageReached records a stage progression. Failures are logged only.
func (s *AnalyticsStore) OnStageReached(ctx context.Context, p models.StageProgression) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkTimeout)
	defer cancel()

	err := s.DB.Conn.Exec(ctx, `
		INSERT INTO funnel_stage_progressions (
			user_id, session_id, stage_id, reached_at, total_value, device_type, traffic_source
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserProgress.UserID,
		p.UserProgress.SessionID,
		p.Stage.ID,
		time.UnixMilli(p.ReachedAt).UTC(),
		p.UserProgress.TotalValue,
		p.UserProgress.DeviceType,
		p.UserProgress.TrafficSource,
	)
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"userId": p.UserProgress.UserID,
			"stage":  p.Stage.ID,
		}).Warn("failed to record stage progression")
	}
}

func (s *AnalyticsStore) GetEventCountsOverTime(ctx context.Context, interval string, start, end time.Time, eventNameFilter string) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	args := []interface{}{start, end}
	selectCols := fmt.Sprintf("toStartOf%s(timestamp) AS time_bucket, count() AS total_events", interval)
	groupByCols := "time_bucket"
	whereClause := "WHERE timestamp >= ? AND timestamp <= ?"
	orderByCols := "time_bucket ASC"
	filtering := eventNameFilter != ""

	if filtering {
		selectCols += ", event_name"
		groupByCols += ", event_name"
		whereClause += " AND event_name = ?"
		args = append(args, eventNameFilter)
		orderByCols += ", event_name ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM funnel_events
		%s
		GROUP BY %s
		ORDER BY %s
	`, selectCols, whereClause, groupByCols, orderByCols)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts over time: %w", err)
	}
	defer rows.Close()

	results := []models.EventCountByTime{}
	for rows.Next() {
		var (
			bucket    time.Time
			count     uint64
			eventName string
			result    models.EventCountByTime
		)
		if filtering {
			if err := rows.Scan(&bucket, &count, &eventName); err != nil {
				s.log.WithError(err).Warn("error scanning event count row")
				continue
			}
			result.EventName = &eventName
		} else if err := rows.Scan(&bucket, &count); err != nil {
			s.log.WithError(err).Warn("error scanning event count row")
			continue
		}
		result.Time = bucket
		result.Count = count
		results = append(results, result)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during event counts over time query: %w", err)
	}
	return results, nil
}

// GetAverageEventValue averages the monetary value of archived events, optionally
// for one event name. Events without a value are ignored; no match yields 0.
func (s *AnalyticsStore) GetAverageEventValue(ctx context.Context, eventNameFilter string, start, end time.Time) (float64, error) {
	query := `SELECT avgOrNull(value) FROM funnel_events WHERE timestamp >= ? AND timestamp <= ?`
	args := []interface{}{start, end}

	if eventNameFilter != "" {
		query += ` AND event_name = ?`
		args = append(args, eventNameFilter)
	}

	var avgValue *float64
	err := s.DB.Conn.QueryRow(ctx, query, args...).Scan(&avgValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0.0, nil
		}
		return 0.0, fmt.Errorf("failed to query average event value: %w", err)
	}
	return finiteOrZero(avgValue), nil
}

// GetAverageMetadataParameter averages a numeric metadata key over events named eventName.
func (s *AnalyticsStore) GetAverageMetadataParameter(ctx context.Context, eventName, paramName string, start, end time.Time) (float64, error) {
	if paramName == "" {
		return 0.0, fmt.Errorf("parameter name for average calculation cannot be empty")
	}

	var avgValue *float64
	err := s.DB.Conn.QueryRow(ctx, `
		SELECT avgOrNull(JSONExtractFloat(metadata, ?))
		FROM funnel_events
		WHERE event_name = ? AND timestamp >= ? AND timestamp <= ? AND JSONHas(metadata, ?)
	`, paramName, eventName, start, end, paramName).Scan(&avgValue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0.0, nil
		}
		return 0.0, fmt.Errorf("failed to query average of metadata parameter '%s': %w", paramName, err)
	}
	return finiteOrZero(avgValue), nil
}

// finiteOrZero maps a missing or NaN average to 0, which JSON can encode.
func finiteOrZero(v *float64) float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0.0
	}
	return *v
}

func (s *AnalyticsStore) GetUniqueUsersOverTime(ctx context.Context, interval string, start, end time.Time) ([]models.EventCountByTime, error) {
	if !utils.IsValidInterval(interval) {
		return nil, fmt.Errorf("invalid interval: %s", interval)
	}

	query := fmt.Sprintf(`
		SELECT toStartOf%s(timestamp) AS time_bucket, uniq(user_id) AS unique_users
		FROM funnel_events
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY time_bucket
		ORDER BY time_bucket ASC
	`, interval)

	rows, err := s.DB.Conn.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query unique users over time: %w", err)
	}
	defer rows.Close()

	results := []models.EventCountByTime{}
	for rows.Next() {
		var bucket time.Time
		var uniqueUsers uint64
		if err := rows.Scan(&bucket, &uniqueUsers); err != nil {
			s.log.WithError(err).Warn("error scanning unique users row")
			continue
		}
		results = append(results, models.EventCountByTime{Time: bucket, Count: uniqueUsers})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for unique users: %w", err)
	}
	return results, nil
}

func (s *AnalyticsStore) GetTopPages(ctx context.Context, start, end time.Time, limit uint64) ([]models.TopPageResult, error) {
	if limit == 0 {
		limit = 10
	}

	rows, err := s.DB.Conn.Query(ctx, `
		SELECT page_url, count() AS view_count
		FROM funnel_events
		WHERE event_name = 'page_view' AND timestamp >= ? AND timestamp <= ?
		GROUP BY page_url
		ORDER BY view_count DESC
		LIMIT ?
	`, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top pages: %w", err)
	}
	defer rows.Close()

	results := []models.TopPageResult{}
	for rows.Next() {
		var pageURL string
		var count uint64
		if err := rows.Scan(&pageURL, &count); err != nil {
			s.log.WithError(err).Warn("error scanning top pages row")
			continue
		}
		results = append(results, models.TopPageResult{PageURL: pageURL, Count: count})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows for top pages: %w", err)
	}
	return results, nil
}
