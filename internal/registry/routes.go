package registry

import (
	"model-registry-api/internal/activity"
	"model-registry-api/internal/middlewares"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, registryService RegistryServicePort, files ArtifactStore, ledgerService *activity.LedgerService, publicDownloads bool) {
	registryController := &RegistryController{
		RegistryService: registryService,
		Files:           files,
	}
	ledgerController := &activity.LedgerController{LedgerService: ledgerService}

	modelGroup := r.Group("/api/models")
	modelGroup.Use(middlewares.AuthMiddleware())
	{
		modelGroup.POST("/upload", registryController.Upload)
		modelGroup.GET("", registryController.List)
		modelGroup.GET("/:modelId", registryController.Detail)
		modelGroup.POST("/:modelId/new-version", registryController.NewVersion)
		modelGroup.POST("/:modelId/rollback", registryController.Rollback)
		modelGroup.GET("/:modelId/logs", ledgerController.GetModelLogs)
	}

	// Download lives outside the authenticated group so deployments can opt
	// into serving artifacts publicly.
	downloadGroup := r.Group("/api/models/download")
	if !publicDownloads {
		downloadGroup.Use(middlewares.AuthMiddleware())
	}
	downloadGroup.GET("/:versionId", registryController.Download)
}
