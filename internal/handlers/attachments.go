package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/fitpulse/fitpulse-backend/internal/database"
	"github.com/fitpulse/fitpulse-backend/internal/models"
	"github.com/fitpulse/fitpulse-backend/internal/services"
	apperrors "github.com/fitpulse/fitpulse-backend/pkg/errors"
	"github.com/fitpulse/fitpulse-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

// UploadAttachmentMessage handles multipart uploads into a thread. The
// binary goes to external storage first; the message plus attachment row
// are then persisted in one transaction, so an upload without a message
// row can never be observed (only the reverse, an orphaned object, which
// is harmless). Optional "text" form field becomes the message body.
func UploadAttachmentMessage(c *gin.Context) {
	userId := c.MustGet("userId").(string)
	threadId := c.Param("id")

	if _, err := services.ParticipantOf(threadId, userId); err != nil {
		respondError(c, err)
		return
	}

	var thread models.Thread
	if err := database.DB.First(&thread, "id = ?", threadId).Error; err != nil {
		respondError(c, apperrors.ErrNotParticipant)
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, apperrors.BadRequest("A 'file' form field is required"))
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if err := services.ValidateAttachment(mimeType, header.Size); err != nil {
		respondError(c, err)
		return
	}

	if services.Storage == nil {
		respondError(c, apperrors.Internal("Attachment storage not configured"))
		return
	}

	ext := filepath.Ext(header.Filename)
	key := fmt.Sprintf("chat/%s/%s%s", threadId, utils.GenerateID(), ext)

	url, err := services.Storage.Upload(c.Request.Context(), key, mimeType, file)
	if err != nil {
		respondError(c, apperrors.Internal("Upload failed"))
		return
	}

	body := ""
	if text := c.PostForm("text"); text != "" {
		body, err = SanitizeMessageBody(text)
		if err != nil {
			respondError(c, err)
			return
		}
	}

	attachment := &models.Attachment{
		URL:      url,
		MimeType: mimeType,
		FileName: header.Filename,
		Size:     header.Size,
	}
	msg, err := services.AppendMessage(threadId, userId, body, attachment)
	if err != nil {
		respondError(c, err)
		return
	}

	recipients, _ := services.OtherParticipantIDs(threadId, userId)
	EmitNewMessage(msg, append(recipients, userId)...)

	response := gin.H{"message": msg}

	// A coach thread pairs every user turn with a bot turn, attachment
	// uploads included.
	if thread.IsBotThread {
		botMsg, err := services.GenerateCoachReply(&thread, msg, "")
		if err != nil {
			respondError(c, err)
			return
		}
		EmitNewMessage(botMsg, userId)
		response["messageBot"] = botMsg
		response["botUserId"] = services.CoachUserID()
	}

	c.JSON(http.StatusOK, response)
}
