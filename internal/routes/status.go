package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/kermitt2/grobid-client-go/internal/handler"
)

func RegisterRoutes(router *gin.RouterGroup, statusHandler *handler.StatusHandler) {
	router.GET("/healthz", statusHandler.Healthz)

	run := router.Group("/run")
	{
		run.GET("/status", statusHandler.GetStatus)
		run.GET("/results", statusHandler.ListResults)
	}
}
