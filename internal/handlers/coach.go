package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/services"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// coachDailyQuota caps assistant turns per user per day.
const coachDailyQuota = 200

// ListCoachThreads returns the caller's coach conversations, optionally
// filtered by folder and search text.
func ListCoachThreads(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	filter := services.ListThreadFilter{
		BotThreads: true,
		Search:     c.Query("search"),
	}
	if folderId := c.Query("folderId"); folderId != "" {
		filter.FolderID = &folderId
	}

	summaries, err := services.ListThreadSummaries(userId, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"threads": summaries, "botUserId": services.CoachUserID()})
}

// CreateCoachThread starts a fresh coach conversation. Users may keep any
// number in parallel, so there is no pair deduplication here.
func CreateCoachThread(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var req struct {
		Title    string  `json:"title"`
		FolderID *string `json:"folderId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	thread, err := services.CreateCoachThread(userId, req.Title, req.FolderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"threadId": thread.ID, "thread": thread})
}

// GetCoachThread returns a coach thread's history plus the assistant
// account identity so clients can attribute bot turns.
func GetCoachThread(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	threadId := c.Param("id")

	thread, err := services.OwnedCoachThread(threadId, userId)
	if err != nil {
		respondError(c, err)
		return
	}

	messages, err := services.ThreadMessages(threadId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"thread":    thread,
		"messages":  messages,
		"botUserId": services.CoachUserID(),
	})
}

// UpdateCoachThread renames and/or moves a coach thread. The folderId key
// distinguishes absent (leave as is) from null (move out of its folder).
func UpdateCoachThread(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	threadId := c.Param("id")

	var req map[string]json.RawMessage
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	if raw, ok := req["title"]; ok {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil || strings.TrimSpace(title) == "" {
			respondError(c, apperrors.BadRequest("Title must be a non-empty string"))
			return
		}
		if _, err := services.RenameThread(threadId, userId, title); err != nil {
			respondError(c, err)
			return
		}
	}

	if raw, ok := req["folderId"]; ok {
		var folderId *string
		if err := json.Unmarshal(raw, &folderId); err != nil {
			respondError(c, apperrors.ErrInvalidRequest)
			return
		}
		if _, err := services.MoveThread(threadId, userId, folderId); err != nil {
			respondError(c, err)
			return
		}
	}

	thread, err := services.OwnedCoachThread(threadId, userId)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"thread": thread})
}

// DeleteCoachThread cascade-deletes a coach thread with its messages and
// participants. Direct threads cannot be deleted.
func DeleteCoachThread(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	threadId := c.Param("id")

	if err := services.DeleteThread(threadId, userId); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// SendCoachMessage appends the user's turn and synchronously produces the
// coach reply, so the response carries both messages. The generation call
// is timeout-bounded and degrades to a fallback reply rather than failing
// the request.
func SendCoachMessage(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	threadId := c.Param("id")

	// Per-user daily quota on top of the per-IP limiter; skipped when Redis
	// is down rather than blocking sends.
	if database.Redis != nil {
		if allowed, err := database.CheckRateLimit("coach:"+userId, coachDailyQuota, 24*time.Hour); err == nil && !allowed {
			respondError(c, apperrors.ErrRateLimit)
			return
		}
	}

	var req struct {
		Text  string `json:"text" binding:"required"`
		Model string `json:"model"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrEmptyMessage)
		return
	}

	thread, err := services.OwnedCoachThread(threadId, userId)
	if err != nil {
		respondError(c, err)
		return
	}

	body, err := SanitizeMessageBody(req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	userMsg, err := services.AppendMessage(threadId, userId, body, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	EmitNewMessage(userMsg, userId)

	botMsg, err := services.GenerateCoachReply(thread, userMsg, req.Model)
	if err != nil {
		respondError(c, err)
		return
	}
	EmitNewMessage(botMsg, userId)

	c.JSON(http.StatusOK, gin.H{
		"messageUser": userMsg,
		"messageBot":  botMsg,
		"botUserId":   services.CoachUserID(),
		"threadTitle": thread.Title,
	})
}
