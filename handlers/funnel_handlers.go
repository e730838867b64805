// api/handlers/funnel_handlers.go
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"funnelscope/api/funnel"
	"funnelscope/api/logger"
	"funnelscope/api/models"
)

// EventArchive receives every accepted event batch for long-term storage.
type EventArchive interface {
	InsertFunnelEvents(ctx context.Context, events []models.FunnelEvent) error
}

type FunnelHandlers struct {
	Engine *funnel.Engine
	// Archive is nil when no ClickHouse archive is configured.
	Archive EventArchive
	log     *logrus.Entry
}

func NewFunnelHandlers(engine *funnel.Engine, archive EventArchive) *FunnelHandlers {
	return &FunnelHandlers{
		Engine:  engine,
		Archive: archive,
		log:     logger.Component("funnel_handlers"),
	}
}

// TrackEvents accepts a JSON array of events from page trackers, forms and the chat widget.
func (h *FunnelHandlers) TrackEvents(c *gin.Context) {
	var incoming []TrackEventRequest
	if err := c.ShouldBindJSON(&incoming); err != nil {
		h.log.WithError(err).Debug("rejected event batch")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if len(incoming) == 0 {
		c.JSON(http.StatusOK, gin.H{"accepted": 0})
		return
	}

	events := make([]models.FunnelEvent, 0, len(incoming))
	for _, req := range incoming {
		event := req.toEvent()
		if event.EventID == "" {
			event.EventID = uuid.New().String()
		}
		if event.Metadata == nil {
			event.Metadata = make(map[string]any)
		}
		if _, ok := event.Metadata["userAgent"]; !ok && c.Request.UserAgent() != "" {
			event.Metadata["userAgent"] = c.Request.UserAgent()
		}
		if _, ok := event.Metadata["ipAddress"]; !ok {
			event.Metadata["ipAddress"] = c.ClientIP()
		}
		events = append(events, event)
	}

	// The batch is all or nothing: nothing is tracked or archived unless every event is valid.
	for i, event := range events {
		if err := h.Engine.ValidateEvent(event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    fmt.Sprintf("Invalid event at index %d", i),
				"details":  err.Error(),
				"accepted": 0,
			})
			return
		}
	}

	accepted := make([]models.FunnelEvent, 0, len(events))
	for _, event := range events {
		if err := h.Engine.TrackEvent(c.Request.Context(), event); err != nil {
			h.log.WithError(err).Error("failed to track event")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record funnel events"})
			return
		}
		accepted = append(accepted, event)
	}

	if h.Archive != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()
		if err := h.Archive.InsertFunnelEvents(ctx, accepted); err != nil {
			h.log.WithError(err).WithField("count", len(accepted)).Warn("failed to archive funnel events")
		}
	}

	c.JSON(http.StatusOK, gin.H{"accepted": len(accepted)})
}

func (h *FunnelHandlers) GetStages(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.Stages())
}

func (h *FunnelHandlers) GetAnalytics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.GenerateAnalytics())
}

func (h *FunnelHandlers) GetOpportunities(c *gin.Context) {
	c.JSON(http.StatusOK, h.Engine.IdentifyOptimizationOpportunities())
}

func (h *FunnelHandlers) GetReport(c *gin.Context) {
	c.String(http.StatusOK, h.Engine.GenerateOptimizationReport())
}

func (h *FunnelHandlers) ExportData(c *gin.Context) {
	data, err := h.Engine.ExportData()
	if err != nil {
		h.log.WithError(err).Error("failed to export funnel data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export funnel data"})
		return
	}
	filename := fmt.Sprintf("funnel-export-%s.json", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *FunnelHandlers) ClearData(c *gin.Context) {
	if err := h.Engine.ClearData(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("failed to clear funnel data")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear funnel data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Funnel data cleared"})
}

func (h *FunnelHandlers) GetProgress(c *gin.Context) {
	userID := c.Param("userId")
	progress, ok := h.Engine.Progress(userID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No funnel progress for user"})
		return
	}
	c.JSON(http.StatusOK, progress)
}
