package routes

import (
	"github.com/fitpulse/fitpulse-backend/internal/handlers"
	"github.com/fitpulse/fitpulse-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RegisterCoachRoutes wires the assistant conversation surface and its
// folder organization.
func RegisterCoachRoutes(r gin.IRouter) {
	coach := r.Group("/coach")
	coach.Use(middleware.AuthMiddleware())
	{
		coach.GET("/threads", handlers.ListCoachThreads)
		coach.POST("/threads", handlers.CreateCoachThread)
		coach.GET("/thread/:id", handlers.GetCoachThread)
		coach.PATCH("/thread/:id", handlers.UpdateCoachThread)
		coach.DELETE("/thread/:id", handlers.DeleteCoachThread)
		coach.POST("/thread/:id/send", middleware.CoachRateLimit(), handlers.SendCoachMessage)
		coach.POST("/thread/:id/attachments", middleware.UploadRateLimit(), handlers.UploadAttachmentMessage)

		coach.GET("/folders", handlers.ListFolders)
		coach.POST("/folders", handlers.CreateFolder)
		coach.PATCH("/folders/:id", handlers.UpdateFolder)
		coach.DELETE("/folders/:id", handlers.DeleteFolder)
	}
}
