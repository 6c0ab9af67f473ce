package activity

import (
	"model-registry-api/internal/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, ledgerService *LedgerService) {
	ledgerController := &LedgerController{LedgerService: ledgerService}

	logGroup := r.Group("/api/logs")
	logGroup.Use(middlewares.AuthMiddleware())
	{
		logGroup.GET("", ledgerController.GetLogs)
		logGroup.GET("/export", ledgerController.ExportLogs)
	}
}
