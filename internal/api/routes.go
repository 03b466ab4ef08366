package api

import (
	"homescout/server/internal/enrichment"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func SetupRoutes(router *gin.Engine, orchestrator *enrichment.Orchestrator, logger *logrus.Logger) {
	handler := NewHandler(orchestrator, logger)

	api := router.Group("/api")
	{
		api.POST("/search", handler.SubmitSearch)
		api.GET("/state", handler.GetState)
		api.POST("/results", handler.GetResults)
		api.GET("/defaults", handler.GetDefaults)
	}
}
