package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"funnelscope/api/logger"
	"funnelscope/api/middleware"
)

// NewRouter wires the tracking, funnel dashboard and archive stats endpoints.
func NewRouter(funnelHandlers *FunnelHandlers, statsHandlers *StatsHandlers, allowedOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger.Component("http")))
	r.Use(middleware.CORSMiddleware(allowedOrigin))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/track", funnelHandlers.TrackEvents)

		funnelGroup := api.Group("/funnel")
		{
			funnelGroup.GET("/stages", funnelHandlers.GetStages)
			funnelGroup.GET("/analytics", funnelHandlers.GetAnalytics)
			funnelGroup.GET("/opportunities", funnelHandlers.GetOpportunities)
			funnelGroup.GET("/report", funnelHandlers.GetReport)
			funnelGroup.GET("/export", funnelHandlers.ExportData)
			funnelGroup.GET("/progress/:userId", funnelHandlers.GetProgress)
			funnelGroup.DELETE("/data", funnelHandlers.ClearData)
		}

		statsGroup := api.Group("/stats")
		{
			statsGroup.GET("/event-counts", statsHandlers.GetEventCountsOverTime)
			statsGroup.GET("/unique-users", statsHandlers.GetUniqueUsersOverTime)
			statsGroup.GET("/top-pages", statsHandlers.GetTopPages)
			statsGroup.GET("/average-value", statsHandlers.GetAverageEventValue)
			statsGroup.GET("/average-parameter", statsHandlers.GetAverageMetadataParameter)
		}
	}
	return r
}
