package httpapi

import (
	"net/http"

	"ai-fitness-coach/internal/logger"

	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Handler        *Handler
	Verifier       *Verifier
	AllowedOrigins []string
	// Webhook, when set, receives Telegram updates on POST /webhook.
	Webhook http.Handler
	Log     *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(cfg.Log))
	r.Use(CORS(cfg.AllowedOrigins))

	r.GET("/health", cfg.Handler.Health)

	if cfg.Webhook != nil {
		r.POST("/webhook", gin.WrapH(cfg.Webhook))
	}

	api := r.Group("/api")
	api.Use(RequireAuth(cfg.Verifier))
	{
		api.GET("/plan", cfg.Handler.GetPlan)
		api.POST("/plan", cfg.Handler.CreatePlan)
		api.POST("/chat", cfg.Handler.Chat)
	}

	return r
}
