package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/madu12/whatsapp-chatbot-webhook/internal/handlers"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/middleware"
	"github.com/madu12/whatsapp-chatbot-webhook/internal/pkg/logger"
)

type RouterConfig struct {
	Log               *logger.Logger
	WebhookHandler    *handlers.WebhookHandler
	DialogflowHandler *handlers.DialogflowHandler
	PaymentHandler    *handlers.PaymentHandler
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("whatsapp-chatbot-webhook"))
	if cfg.Log != nil {
		router.Use(middleware.RequestLog(cfg.Log))
	}

	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	// Chat channel
	router.GET("/webhook", cfg.WebhookHandler.Verify)
	router.POST("/webhook", cfg.WebhookHandler.Receive)

	// NLU fulfillment
	router.POST("/dialogflow/webhook", cfg.DialogflowHandler.Fulfill)

	// Payment redirect
	router.GET("/payment/success", cfg.PaymentHandler.Success)

	return router
}
