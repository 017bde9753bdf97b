package handlers

import (
	"net/http"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/internal/services"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// StartDirectThread resolves or creates the direct thread with another user
// and optionally sends a first message in the same request.
func StartDirectThread(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var req struct {
		UserID string `json:"userId" binding:"required"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	var target models.User
	if err := database.DB.First(&target, "id = ? AND is_bot = ?", req.UserID, false).Error; err != nil {
		respondError(c, apperrors.NotFound("User not found"))
		return
	}

	startDirect(c, userId, target.ID, req.Text)
}

// StartDirectThreadByUsername is StartDirectThread keyed by username.
func StartDirectThreadByUsername(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var req struct {
		Username string `json:"username" binding:"required"`
		Text     string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	var target models.User
	if err := database.DB.First(&target, "username = ? AND is_bot = ?", req.Username, false).Error; err != nil {
		respondError(c, apperrors.NotFound("User not found"))
		return
	}

	startDirect(c, userId, target.ID, req.Text)
}

func startDirect(c *gin.Context, userId, targetId, text string) {
	thread, err := services.ResolveOrCreateDirectThread(userId, targetId)
	if err != nil {
		respondError(c, err)
		return
	}

	response := gin.H{"thread": thread}

	if text != "" {
		body, err := SanitizeMessageBody(text)
		if err != nil {
			respondError(c, err)
			return
		}
		msg, err := services.AppendMessage(thread.ID, userId, body, nil)
		if err != nil {
			respondError(c, err)
			return
		}
		EmitNewMessage(msg, targetId, userId)
		response["message"] = msg
	}

	c.JSON(http.StatusOK, response)
}

// ListDirectThreads returns the caller's direct threads with peer identity,
// latest message and unread count.
func ListDirectThreads(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	summaries, err := services.ListThreadSummaries(userId, services.ListThreadFilter{
		BotThreads: false,
		Search:     c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"threads": summaries})
}

// GetDirectThreadMessages returns full history for a thread the caller
// participates in, ascending by message ID.
func GetDirectThreadMessages(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	threadId := c.Param("id")

	if _, err := services.ParticipantOf(threadId, userId); err != nil {
		respondError(c, err)
		return
	}

	messages, err := services.ThreadMessages(threadId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendDirectMessage appends a text message to a direct thread and fans it
// out to the other participant's sessions.
func SendDirectMessage(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	threadId := c.Param("id")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrEmptyMessage)
		return
	}

	if _, err := services.ParticipantOf(threadId, userId); err != nil {
		respondError(c, err)
		return
	}

	var thread models.Thread
	if err := database.DB.First(&thread, "id = ?", threadId).Error; err != nil {
		respondError(c, apperrors.ErrNotParticipant)
		return
	}
	if thread.IsBotThread {
		respondError(c, apperrors.BadRequest("Coach conversations use the coach send endpoint"))
		return
	}

	body, err := SanitizeMessageBody(req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	msg, err := services.AppendMessage(threadId, userId, body, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	// Persisted first; push is best-effort and at-least-once. The sender's
	// own room is included for multi-device sync.
	recipients, _ := services.OtherParticipantIDs(threadId, userId)
	EmitNewMessage(msg, append(recipients, userId)...)

	c.JSON(http.StatusOK, gin.H{"message": msg})
}

// GetUnread returns the caller's aggregate unread counts.
func GetUnread(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	total, byThread, err := services.UnreadTotals(userId)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total": total, "byThread": byThread})
}

// MarkRead advances the caller's read mark to the newest message in the
// thread, notifies other participants with a read receipt, and refreshes
// the caller's other sessions with the new aggregate total.
func MarkRead(c *gin.Context) {
	userId := c.MustGet("userId").(string)

	var req struct {
		ThreadID string `json:"threadId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidRequest)
		return
	}

	mark, err := services.MarkThreadRead(req.ThreadID, userId)
	if err != nil {
		respondError(c, err)
		return
	}

	recipients, _ := services.OtherParticipantIDs(req.ThreadID, userId)
	EmitThreadRead(req.ThreadID, userId, mark, recipients...)

	if total, _, err := services.UnreadTotals(userId); err == nil {
		EmitUnreadTotal(userId, total)
	}

	c.JSON(http.StatusOK, gin.H{"lastReadMessageId": mark})
}
