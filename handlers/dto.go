package handlers

import "funnelscope/api/models"

// TrackEventRequest is the wire form of one tracked event. Timestamp is a pointer
// so that a missing timestamp is rejected while 0 stays a valid epoch.
type TrackEventRequest struct {
	EventID   string         `json:"eventId"`
	EventName string         `json:"eventName" binding:"required"`
	Timestamp *int64         `json:"timestamp" binding:"required,gte=0"`
	UserID    string         `json:"userId" binding:"required"`
	SessionID string         `json:"sessionId" binding:"required"`
	PageURL   string         `json:"pageUrl"`
	Metadata  map[string]any `json:"metadata"`
	Value     *float64       `json:"value"`
	Currency  string         `json:"currency"`
}

func (r TrackEventRequest) toEvent() models.FunnelEvent {
	return models.FunnelEvent{
		EventID:   r.EventID,
		EventName: r.EventName,
		Timestamp: *r.Timestamp,
		UserID:    r.UserID,
		SessionID: r.SessionID,
		PageURL:   r.PageURL,
		Metadata:  r.Metadata,
		Value:     r.Value,
		Currency:  r.Currency,
	}
}
