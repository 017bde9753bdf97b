package handlers

import (
	"net/http"
	"strings"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ListFolders returns the caller's coach-thread folders.
func ListFolders(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var folders []models.ChatFolder
	if err := database.DB.Where("user_id = ?", userId).Order("name asc").Find(&folders).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

func CreateFolder(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(c, apperrors.BadRequest("Folder name is required"))
		return
	}

	folder := models.ChatFolder{UserID: userId, Name: strings.TrimSpace(req.Name)}
	if err := database.DB.Create(&folder).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"folder": folder})
}

func UpdateFolder(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	folderId := c.Param("id")

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		respondError(c, apperrors.BadRequest("Folder name is required"))
		return
	}

	var folder models.ChatFolder
	if err := database.DB.First(&folder, "id = ? AND user_id = ?", folderId, userId).Error; err != nil {
		respondError(c, apperrors.NotFound("Folder not found"))
		return
	}

	folder.Name = strings.TrimSpace(req.Name)
	if err := database.DB.Model(&folder).Update("name", folder.Name).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"folder": folder})
}

// DeleteFolder removes an empty folder. A folder still referenced by any
// coach thread returns a conflict; threads must be moved out first.
func DeleteFolder(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	folderId := c.Param("id")

	var folder models.ChatFolder
	if err := database.DB.First(&folder, "id = ? AND user_id = ?", folderId, userId).Error; err != nil {
		respondError(c, apperrors.NotFound("Folder not found"))
		return
	}

	var threadCount int64
	if err := database.DB.Model(&models.Thread{}).Where("folder_id = ?", folderId).Count(&threadCount).Error; err != nil {
		respondError(c, err)
		return
	}
	if threadCount > 0 {
		respondError(c, apperrors.ErrFolderNotEmpty)
		return
	}

	if err := database.DB.Delete(&folder).Error; err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
