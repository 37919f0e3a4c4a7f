// Package xp — handlers.go содержит HTTP-обработчики движка XP.
// Тонкий адаптер над фасадом: разбор запроса, вызов сервиса, код ответа.
// Вся политика живёт в сервисе, обработчики ничего не решают.
package xp

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"geoblog.ru/xp-engine/internal/common"
)

// Handler обрабатывает HTTP-запросы движка XP.
type Handler struct {
	service *Service
}

// NewHandler создаёт HTTP-обработчик движка XP.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Award — POST /api/xp/award
// Вызывается контент-сервисами ПОСЛЕ успешного создания контента.
// Отказ политики — это 200 с success=false и причиной: действие
// пользователя никогда не блокируется из-за отказа в XP.
func (h *Handler) Award(c *gin.Context) {
	var params AddXPParams
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, AwardResult{Reason: ReasonInvalid})
		return
	}

	result, err := h.service.AddXP(c.Request.Context(), params)
	if err != nil {
		log.WithError(err).WithField("user_id", params.UserID).Error("Сбой начисления XP")
		c.JSON(http.StatusInternalServerError, AwardResult{Reason: ReasonError})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLevel — GET /api/users/:id/level
func (h *Handler) GetLevel(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный ID пользователя"})
		return
	}

	state, err := h.service.GetUserLevel(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Сбой чтения уровня")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":          state.UserID,
		"total_xp":         state.TotalXP,
		"level":            state.Level,
		"current_level_xp": state.CurrentLevelXP,
		"required_xp":      state.RequiredXP,
		"rank":             state.Rank,
	})
}

// History — GET /api/users/:id/awards?limit=N
// История начислений пользователя, новые первыми.
func (h *Handler) History(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный ID пользователя"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	events, err := h.service.UserAwards(c.Request.Context(), userID, limit)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Сбой чтения истории начислений")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
		return
	}

	awards := make([]gin.H, 0, len(events))
	for _, ev := range events {
		awards = append(awards, gin.H{
			"source":       ev.Source,
			"amount":       ev.Amount,
			"content_id":   ev.ContentID,
			"content_type": ev.ContentType,
			"created_at":   ev.CreatedAt,
			"awarded_at":   common.FormatDateTime(ev.CreatedAt),
		})
	}
	c.JSON(http.StatusOK, gin.H{"awards": awards})
}

// Sources — GET /api/admin/sources
// Справочная админ-ручка: действующие правила каталога источников.
func (h *Handler) Sources(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sources": h.service.Catalog().Sources()})
}

// Leaderboard — GET /api/leaderboard?limit=N
func (h *Handler) Leaderboard(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), limit)
	if err != nil {
		log.WithError(err).Error("Сбой чтения таблицы лидеров")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
