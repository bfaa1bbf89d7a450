package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/session-runtime/internal/metrics"
	"github.com/SAP-F-2025/session-runtime/internal/services"
	"github.com/SAP-F-2025/session-runtime/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	sessionHandler *SessionHandler
	metrics        *metrics.Metrics
	// Runs on every /api/v1 route when set.
	auth gin.HandlerFunc
}

func NewHandlerManager(
	sessionService services.SessionService,
	m *metrics.Metrics,
	auth gin.HandlerFunc,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler: NewSessionHandler(sessionService, logger),
		metrics:        m,
		auth:           auth,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", HealthCheck)
	if hm.metrics != nil {
		router.GET("/metrics", hm.metrics.Handler())
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	if hm.auth != nil {
		v1.Use(hm.auth)
	}
	v1.Use(ForwardCredentials())
	{
		attempts := v1.Group("/attempts")
		{
			attempts.POST("/start", hm.sessionHandler.StartAttempt)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("/exam", hm.sessionHandler.BootExam)
			sessions.POST("/practice", hm.sessionHandler.BootPractice)
			sessions.GET("/:attempt_id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:attempt_id", hm.sessionHandler.CloseSession)
			sessions.POST("/:attempt_id/answer", hm.sessionHandler.SelectAnswer)
			sessions.POST("/:attempt_id/navigate", hm.sessionHandler.Navigate)
			sessions.POST("/:attempt_id/submit", hm.sessionHandler.Submit)
			sessions.GET("/:attempt_id/answer-sheet", hm.sessionHandler.AnswerSheet)
		}
	}
}

// HealthCheck reports liveness
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "session-runtime",
	})
}
