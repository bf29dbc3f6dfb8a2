package api

import (
	assignmentDelivery "triagedesk-backend/internal/assignment/delivery"
	"triagedesk-backend/internal/auth/delivery"
	authUsecase "triagedesk-backend/internal/auth/usecase"
	emailDelivery "triagedesk-backend/internal/email/delivery"
	kanbanDelivery "triagedesk-backend/internal/kanban/delivery"
	notifDelivery "triagedesk-backend/internal/notification/delivery"

	"github.com/gin-gonic/gin"
)

// Handler owns the HTTP surface: the gin engine, CORS, and route setup.
type Handler struct {
	authUsecase   authUsecase.AuthUsecase
	authHandler   *delivery.AuthHandler
	emailHandler  *emailDelivery.EmailHandler
	ruleHandler   *assignmentDelivery.RuleHandler
	boardHandler  *kanbanDelivery.BoardHandler
	streamHandler *notifDelivery.StreamHandler
}

func NewHandler(
	authUc authUsecase.AuthUsecase,
	authHandler *delivery.AuthHandler,
	emailHandler *emailDelivery.EmailHandler,
	ruleHandler *assignmentDelivery.RuleHandler,
	boardHandler *kanbanDelivery.BoardHandler,
	streamHandler *notifDelivery.StreamHandler,
) *Handler {
	return &Handler{
		authUsecase:   authUc,
		authHandler:   authHandler,
		emailHandler:  emailHandler,
		ruleHandler:   ruleHandler,
		boardHandler:  boardHandler,
		streamHandler: streamHandler,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.authUsecase, h.authHandler, h.emailHandler, h.ruleHandler, h.boardHandler, h.streamHandler)

	return r.Run(addr)
}
