// Package server собирает HTTP-маршрутизатор движка XP.
// Тонкая обвязка: сам движок — встраиваемый компонент, HTTP — лишь
// один из способов его вызвать.
package server

import (
	"github.com/gin-gonic/gin"

	"geoblog.ru/xp-engine/internal/config"
	"geoblog.ru/xp-engine/internal/features/achievements"
	"geoblog.ru/xp-engine/internal/features/guest"
	"geoblog.ru/xp-engine/internal/features/moderation"
	"geoblog.ru/xp-engine/internal/features/xp"
	"geoblog.ru/xp-engine/internal/server/middleware"
)

// Handlers — все HTTP-обработчики приложения.
type Handlers struct {
	XP           *xp.Handler
	Guest        *guest.Handler
	Moderation   *moderation.Handler
	Achievements *achievements.Handler
}

// NewRouter собирает gin-маршрутизатор со всеми middleware и маршрутами.
// Возвращает также лимитер: его нужно закрыть на shutdown.
func NewRouter(cfg *config.Config, h Handlers) (*gin.Engine, *middleware.RateLimiter) {
	if cfg.AppEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	limiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Recovery(),
		middleware.RateLimit(limiter),
	)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// Движок XP
		api.POST("/xp/award", h.XP.Award)
		api.GET("/users/:id/level", h.XP.GetLevel)
		api.GET("/users/:id/awards", h.XP.History)
		api.GET("/users/:id/achievements", h.Achievements.List)
		api.GET("/leaderboard", h.XP.Leaderboard)

		// Гостевые сессии
		api.POST("/guest/actions", h.Guest.Record)
		api.POST("/users/:id/reconcile", h.Guest.Reconcile)

		// Админка (решения модерации)
		admin := api.Group("/admin", middleware.AdminAuth(cfg.AdminKeyHash))
		{
			admin.POST("/moderation", h.Moderation.Decide)
			admin.GET("/sources", h.XP.Sources)
		}
	}

	return r, limiter
}
