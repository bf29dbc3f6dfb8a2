package api

import (
	"net/http"

	assignmentDelivery "triagedesk-backend/internal/assignment/delivery"
	"triagedesk-backend/internal/auth/delivery"
	authUsecase "triagedesk-backend/internal/auth/usecase"
	emailDelivery "triagedesk-backend/internal/email/delivery"
	kanbanDelivery "triagedesk-backend/internal/kanban/delivery"
	notifDelivery "triagedesk-backend/internal/notification/delivery"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	r *gin.Engine,
	authUc authUsecase.AuthUsecase,
	authHandler *delivery.AuthHandler,
	emailHandler *emailDelivery.EmailHandler,
	ruleHandler *assignmentDelivery.RuleHandler,
	boardHandler *kanbanDelivery.BoardHandler,
	streamHandler *notifDelivery.StreamHandler,
) {
	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// SSE endpoints
		api.GET("/events", delivery.AuthMiddleware(authUc), streamHandler.Stream)
		api.GET("/events/status", delivery.AuthMiddleware(authUc), streamHandler.Status)

		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/register", authHandler.Register)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.POST("/logout", authHandler.Logout)
			auth.GET("/me", delivery.AuthMiddleware(authUc), authHandler.Me)
			auth.GET("/staff", delivery.AuthMiddleware(authUc), authHandler.ListStaff)
		}

		// FCM routes (protected)
		fcm := api.Group("/fcm")
		fcm.Use(delivery.AuthMiddleware(authUc))
		{
			fcm.POST("/register", authHandler.RegisterFCMToken)
			fcm.DELETE("/:token", authHandler.UnregisterFCMToken)
		}

		// Email triage routes (protected)
		emails := api.Group("/emails")
		emails.Use(delivery.AuthMiddleware(authUc))
		{
			emails.GET("/relevant", emailHandler.GetRelevant)
			emails.GET("/rejected", emailHandler.GetRejected)
			emails.GET("/:id", emailHandler.GetEmailByID)
			emails.GET("/:id/related", emailHandler.GetRelated)
			emails.PATCH("/:id/relevant", emailHandler.MarkAsRelevant)
			emails.PATCH("/:id/rejected", emailHandler.MarkAsRejected)
			emails.PATCH("/:id/read", emailHandler.MarkAsRead)
			emails.POST("/bulk/relevant", emailHandler.BulkMarkAsRelevant)
			emails.POST("/bulk/rejected", emailHandler.BulkMarkAsRejected)
			emails.POST("/undo", emailHandler.Undo)
			emails.POST("/sync", emailHandler.TriggerSync)
		}

		// Sender rule routes (protected)
		senderRules := api.Group("/sender-rules")
		senderRules.Use(delivery.AuthMiddleware(authUc))
		{
			senderRules.POST("", emailHandler.CreateSenderRule)
			senderRules.DELETE("/:id", emailHandler.DeleteSenderRule)
		}

		// Training corpus routes (protected)
		training := api.Group("/training")
		training.Use(delivery.AuthMiddleware(authUc))
		{
			training.GET("/sets", emailHandler.GetTrainingSets)
			training.GET("/actions", emailHandler.GetTrainingActions)
		}

		// Mail account routes (protected)
		accounts := api.Group("/accounts")
		accounts.Use(delivery.AuthMiddleware(authUc))
		{
			accounts.GET("", emailHandler.GetAccounts)
			accounts.POST("/imap", emailHandler.ConnectImapAccount)
			accounts.POST("/:id/sync", emailHandler.TriggerAccountSync)
			accounts.DELETE("/:id", emailHandler.DisconnectAccount)
		}

		// Assignment rule routes (protected, admin writes)
		rules := api.Group("/rules")
		rules.Use(delivery.AuthMiddleware(authUc))
		{
			rules.GET("", ruleHandler.GetRules)
			rules.POST("", delivery.AdminOnly(), ruleHandler.CreateRule)
			rules.PUT("/:id", delivery.AdminOnly(), ruleHandler.UpdateRule)
			rules.DELETE("/:id", delivery.AdminOnly(), ruleHandler.DeactivateRule)
			rules.POST("/:id/override", ruleHandler.RecordOverride)
		}

		// Kanban board routes (protected)
		board := api.Group("/board")
		board.Use(delivery.AuthMiddleware(authUc))
		{
			board.GET("", boardHandler.GetBoard)
			board.PATCH("/tasks/:id/move", boardHandler.MoveTask)
			board.PATCH("/tasks/:id/select", boardHandler.SelectTask)
			board.POST("/bulk/move", boardHandler.BulkMove)
			board.POST("/bulk/archive", boardHandler.BulkArchive)
			board.POST("/bulk/delete", boardHandler.BulkDelete)
			board.POST("/columns", boardHandler.AddColumn)
			board.PUT("/columns/order", boardHandler.ReorderColumns)
			board.PUT("/columns/:id", boardHandler.UpdateColumn)
			board.DELETE("/columns/:id", boardHandler.DeleteColumn)
			board.POST("/columns/reset", boardHandler.ResetColumns)
		}
	}
}
