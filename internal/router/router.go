package router

import (
	"net/http"

	"eventsbot/internal/config"
	"eventsbot/internal/handlers"
	"eventsbot/internal/middleware"

	"github.com/gin-gonic/gin"
)

// WebhookPath is where Telegram pushes updates in webhook mode.
const WebhookPath = "/telegram/webhook"

func RegisterRoutes(r *gin.Engine, cfg *config.Config, chat *handlers.ChatHandler, admin *handlers.AdminHandler) {
	r.GET("/healthz", func(c *gin.Context) { // 健康检查
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Telegram 推送 (webhook mode only)
	if cfg.WebhookMode() {
		webhookHandler := handlers.NewWebhookHandler(chat)
		r.POST(WebhookPath, middleware.WebhookSecret(cfg.WebhookSecretHash), webhookHandler.Receive)
	}

	// 审核管理接口 (Admin API)
	api := r.Group("/api")
	api.Use(middleware.AdminRequired(cfg.AdminTokenHash))
	{
		api.GET("/moderation/queue", admin.Queue)        // 待审核帖子
		api.GET("/moderation/actions", admin.Actions)    // 按类型查询审核记录
		api.POST("/moderation/:id/decide", admin.Decide) // 审核：approve / reject / request_changes
		api.GET("/posts/:id/history", admin.History)     // 审核记录
	}
}
