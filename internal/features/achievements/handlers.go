// Package achievements — handlers.go содержит HTTP-обработчики достижений.
package achievements

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает HTTP-запросы достижений.
type Handler struct {
	service *Service
}

// NewHandler создаёт HTTP-обработчик достижений.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List — GET /api/users/:id/achievements
// Открытые достижения пользователя в порядке открытия.
func (h *Handler) List(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный ID пользователя"})
		return
	}

	views, err := h.service.ListUnlocked(c.Request.Context(), userID)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Error("Сбой чтения достижений")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"achievements": views})
}
