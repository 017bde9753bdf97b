package routes

import (
	"github.com/fitpulse/fitpulse-backend/internal/handlers"
	"github.com/fitpulse/fitpulse-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes wires the direct (human-to-human) messaging surface.
func RegisterChatRoutes(r gin.IRouter) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.POST("/start", middleware.ChatRateLimit(), handlers.StartDirectThread)
		chat.POST("/start-by-username", middleware.ChatRateLimit(), handlers.StartDirectThreadByUsername)
		chat.GET("/threads", handlers.ListDirectThreads)
		chat.GET("/thread/:id", handlers.GetDirectThreadMessages)
		chat.POST("/thread/:id/send", middleware.ChatRateLimit(), handlers.SendDirectMessage)
		chat.POST("/thread/:id/attachments", middleware.UploadRateLimit(), handlers.UploadAttachmentMessage)
		chat.GET("/unread", handlers.GetUnread)
		chat.POST("/read", handlers.MarkRead)
	}
}
