package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"funnelscope/api/logger"
	"funnelscope/api/store"
	"funnelscope/api/utils"
)

// StatsHandlers serve time series over the ClickHouse event archive.
type StatsHandlers struct {
	AnalyticsStore *store.AnalyticsStore
	log            *logrus.Entry
}

func NewStatsHandlers(s *store.AnalyticsStore) *StatsHandlers {
	return &StatsHandlers{
		AnalyticsStore: s,
		log:            logger.Component("stats_handlers"),
	}
}

func (h *StatsHandlers) available(c *gin.Context) bool {
	if h.AnalyticsStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Event archive is not configured"})
		return false
	}
	return true
}

func (h *StatsHandlers) GetEventCountsOverTime(c *gin.Context) {
	if !h.available(c) {
		return
	}
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}
	start, end, err := utils.ParseTimeRange(c.Query("start"), c.Query("end"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.AnalyticsStore.GetEventCountsOverTime(ctx, interval, start, end, c.Query("eventName"))
	if err != nil {
		h.log.WithError(err).Error("error getting event counts over time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve event statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetUniqueUsersOverTime(c *gin.Context) {
	if !h.available(c) {
		return
	}
	interval := c.Query("interval")
	if !utils.IsValidInterval(interval) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval query parameter is required (e.g., 'Day', 'Hour')"})
		return
	}
	start, end, err := utils.ParseTimeRange(c.Query("start"), c.Query("end"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.AnalyticsStore.GetUniqueUsersOverTime(ctx, interval, start, end)
	if err != nil {
		h.log.WithError(err).Error("error getting unique users over time")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve unique user statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetAverageEventValue(c *gin.Context) {
	if !h.available(c) {
		return
	}
	eventName := c.Query("eventName")
	start, end, err := utils.ParseTimeRange(c.Query("start"), c.Query("end"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	avgValue, err := h.AnalyticsStore.GetAverageEventValue(ctx, eventName, start, end)
	if err != nil {
		h.log.WithError(err).Error("error getting average event value")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve average event value statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"eventName":    eventName,
		"startDate":    start.Format(time.RFC3339),
		"endDate":      end.Format(time.RFC3339),
		"averageValue": avgValue,
	})
}

func (h *StatsHandlers) GetAverageMetadataParameter(c *gin.Context) {
	if !h.available(c) {
		return
	}
	eventName := c.Query("eventName")
	paramName := c.Query("paramName")
	if eventName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "eventName query parameter is required"})
		return
	}
	if paramName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "paramName query parameter is required (e.g., 'scrollDepth', 'budget')"})
		return
	}
	start, end, err := utils.ParseTimeRange(c.Query("start"), c.Query("end"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	avgValue, err := h.AnalyticsStore.GetAverageMetadataParameter(ctx, eventName, paramName, start, end)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"eventName": eventName,
			"paramName": paramName,
		}).Error("error getting average metadata parameter")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve average metadata parameter statistics"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"eventName":    eventName,
		"paramName":    paramName,
		"startDate":    start.Format(time.RFC3339),
		"endDate":      end.Format(time.RFC3339),
		"averageValue": avgValue,
	})
}

func (h *StatsHandlers) GetTopPages(c *gin.Context) {
	if !h.available(c) {
		return
	}
	start, end, err := utils.ParseTimeRange(c.Query("start"), c.Query("end"), time.Now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var limit uint64 = 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsed, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || parsed == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'limit' parameter. Must be a positive integer."})
			return
		}
		limit = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.AnalyticsStore.GetTopPages(ctx, start, end, limit)
	if err != nil {
		h.log.WithError(err).Error("error getting top pages")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve top page statistics"})
		return
	}
	c.JSON(http.StatusOK, results)
}
