package api

import (
	"github.com/gin-gonic/gin"

	"github.com/felixlab/polysin/api/handlers"
)

// SetupRoutes initializes all API endpoints.
func SetupRoutes(router *gin.Engine, h *handlers.Handler) {
	api := router.Group("/api")
	{
		api.POST("/analyze", h.Analyze)
		api.GET("/brain", h.GetBrain)
		api.GET("/questions", h.GetQuestions)
		api.GET("/history", h.GetHistory)
		api.GET("/health", h.Health)
	}
	router.GET("/ws", h.HandleWebSocket)
}
