// Package moderation — handlers.go содержит HTTP-обработчики модерации.
// Ручки закрыты админ-ключом (см. server/middleware/auth.go).
package moderation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает HTTP-запросы модерации.
type Handler struct {
	service *Service
}

// NewHandler создаёт HTTP-обработчик модерации.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// decideRequest — тело POST /api/admin/moderation.
type decideRequest struct {
	ContentID   string `json:"content_id" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Status      string `json:"status" binding:"required"` // "approved" или "rejected"
	DecidedBy   string `json:"decided_by"`
}

// Decide — POST /api/admin/moderation
func (h *Handler) Decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}
	if req.Status != StatusApproved && req.Status != StatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status должен быть approved или rejected"})
		return
	}

	d := &Decision{
		ContentID:   req.ContentID,
		ContentType: req.ContentType,
		Status:      req.Status,
		DecidedBy:   req.DecidedBy,
	}
	if err := h.service.Decide(c.Request.Context(), d); err != nil {
		log.WithError(err).WithField("content_id", req.ContentID).Error("Сбой решения модерации")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"content_id": d.ContentID, "status": d.Status})
}
