// api/models/event.go
package models

import "time"

// FunnelEvent represents a single user interaction emitted by a page-view tracker,
// form handler or chat widget.
type FunnelEvent struct {
	EventID   string         `json:"eventId,omitempty"`
	EventName string         `json:"eventName" binding:"required"`
	Timestamp int64          `json:"timestamp" binding:"gte=0"`
	UserID    string         `json:"userId" binding:"required"`
	SessionID string         `json:"sessionId" binding:"required"`
	PageURL   string         `json:"pageUrl,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Value     *float64       `json:"value,omitempty"`
	Currency  string         `json:"currency,omitempty"`
}

// Time returns the event timestamp as a time.Time in UTC.
func (e FunnelEvent) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// MetadataString returns metadata[key] when it is a non-empty string.
func (e FunnelEvent) MetadataString(key string) string {
	if e.Metadata == nil {
		return ""
	}
	if s, ok := e.Metadata[key].(string); ok {
		return s
	}
	return ""
}

// StageProgression is fired whenever a user completes a new funnel stage.
type StageProgression struct {
	UserProgress FunnelProgress `json:"userProgress"`
	Stage        FunnelStage    `json:"stage"`
	ReachedAt    int64          `json:"reachedAt"`
}

type EventCountByTime struct {
	Time      time.Time `json:"time"`
	EventName *string   `json:"eventName,omitempty"`
	Count     uint64    `json:"count"`
}

type TopPageResult struct {
	PageURL string `json:"pageUrl"`
	Count   uint64 `json:"count"`
}
