package registry

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
)

type RegistryController struct {
	RegistryService RegistryServicePort
	Files           ArtifactStore
}

func currentUserID(c *gin.Context) (uint, bool) {
	userIDVal, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return 0, false
	}
	userIDFloat, ok := userIDVal.(float64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return 0, false
	}
	return uint(userIDFloat), true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, ErrDuplicateVersion), errors.Is(err, ErrNoPreviousVersion):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, ErrModelNotFound), errors.Is(err, ErrVersionNotFound), errors.Is(err, ErrFileMissing):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Upload registers a model (or a first re-upload under the same name) and
// activates the uploaded version.
func (rc *RegistryController) Upload(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var input UploadInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Model file is required"})
		return
	}

	filePath, err := rc.Files.Save(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store model file"})
		return
	}

	model, version, err := rc.RegistryService.UploadModel(input, filePath, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Model uploaded successfully",
		"model":   model,
		"version": version,
	})
}

// List returns every model with its active version. Supports ?search= on the
// model name.
func (rc *RegistryController) List(c *gin.Context) {
	rows, err := rc.RegistryService.ListActiveVersions(c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch models"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(rows),
		"data":    rows,
	})
}

func (rc *RegistryController) Detail(c *gin.Context) {
	modelID, ok := parseIDParam(c, "modelId")
	if !ok {
		return
	}

	detail, err := rc.RegistryService.GetModelDetail(modelID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    detail,
	})
}

func (rc *RegistryController) NewVersion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	modelID, ok := parseIDParam(c, "modelId")
	if !ok {
		return
	}

	var input NewVersionInput
	if err := c.ShouldBind(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Model file is required"})
		return
	}

	filePath, err := rc.Files.Save(fileHeader)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store model file"})
		return
	}

	version, err := rc.RegistryService.AddVersion(modelID, input, filePath, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "New version uploaded successfully",
		"version": version,
	})
}

func (rc *RegistryController) Rollback(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	modelID, ok := parseIDParam(c, "modelId")
	if !ok {
		return
	}

	version, err := rc.RegistryService.Rollback(modelID, userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Rolled back to version " + version.Version,
		"version": version,
	})
}

// Download streams the stored artifact for a version. When downloads are
// protected the auth middleware has already set userID; when public, the
// ledger row is written without one.
func (rc *RegistryController) Download(c *gin.Context) {
	versionID, ok := parseIDParam(c, "versionId")
	if !ok {
		return
	}

	version, err := rc.RegistryService.ResolveDownload(versionID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	var userID *uint
	if userIDVal, exists := c.Get("userID"); exists {
		if userIDFloat, isFloat := userIDVal.(float64); isFloat {
			id := uint(userIDFloat)
			userID = &id
		}
	}
	rc.RegistryService.RecordDownload(version, userID)

	c.FileAttachment(version.FilePath, filepath.Base(version.FilePath))
}
