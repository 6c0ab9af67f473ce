package activity

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type LedgerController struct {
	LedgerService LedgerQueryPort
}

func currentUserID(c *gin.Context) (uint, bool) {
	userIDVal, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user ID not found"})
		return 0, false
	}
	userID, ok := userIDVal.(float64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid user ID"})
		return 0, false
	}
	return uint(userID), true
}

// GetLogs returns the caller's ledger rows, newest first.
func (lc *LedgerController) GetLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	rows, err := lc.LedgerService.Query(LogFilter{UserID: &userID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(rows),
		"data":    rows,
	})
}

// GetModelLogs returns the caller's ledger rows for one model.
func (lc *LedgerController) GetModelLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	modelID64, err := strconv.ParseUint(c.Param("modelId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid model id"})
		return
	}
	modelID := uint(modelID64)

	rows, err := lc.LedgerService.Query(LogFilter{ModelID: &modelID, UserID: &userID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(rows),
		"data":    rows,
	})
}

// ExportLogs streams the caller's ledger as an Excel attachment.
func (lc *LedgerController) ExportLogs(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	f, err := lc.LedgerService.ExportXLSX(LogFilter{UserID: &userID})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="activity_logs.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := f.Write(c.Writer); err != nil {
		log.Printf("Failed to write export: %v", err)
	}
}
