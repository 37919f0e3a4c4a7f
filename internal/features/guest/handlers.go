// Package guest — handlers.go содержит HTTP-обработчики гостевых действий.
package guest

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler обрабатывает HTTP-запросы гостевых действий.
type Handler struct {
	service *Service
}

// NewHandler создаёт HTTP-обработчик гостевых действий.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// recordRequest — тело POST /api/guest/actions.
type recordRequest struct {
	GuestSessionID string         `json:"guest_session_id" binding:"required"`
	ActionType     string         `json:"action_type" binding:"required"`
	ContentID      string         `json:"content_id" binding:"required"`
	ContentType    string         `json:"content_type"`
	Metadata       map[string]any `json:"metadata"`
}

// Record — POST /api/guest/actions
// Вызывается контент-сервисами при публикации гостевого контента.
func (h *Handler) Record(c *gin.Context) {
	var req recordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректное тело запроса"})
		return
	}

	action := &Action{
		GuestSessionID: req.GuestSessionID,
		ActionType:     req.ActionType,
		ContentID:      req.ContentID,
		ContentType:    req.ContentType,
		Metadata:       req.Metadata,
	}
	if err := h.service.RecordAction(c.Request.Context(), action); err != nil {
		log.WithError(err).Error("Сбой записи гостевого действия")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": action.ID, "status": action.Status})
}

// reconcileRequest — тело POST /api/users/:id/reconcile.
type reconcileRequest struct {
	GuestSessionID string `json:"guest_session_id" binding:"required"`
}

// Reconcile — POST /api/users/:id/reconcile
// Вызывается сервисом регистрации один раз после связывания гостевой
// сессии с учётной записью. Результат — приветственная сводка.
func (h *Handler) Reconcile(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "некорректный ID пользователя"})
		return
	}

	var req reconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "не задан guest_session_id"})
		return
	}

	result, err := h.service.ReconcileGuest(c.Request.Context(), req.GuestSessionID, userID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"session_id": req.GuestSessionID,
			"user_id":    userID,
		}).Error("Сбой зачёта гостевой сессии")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "внутренняя ошибка"})
		return
	}

	c.JSON(http.StatusOK, result)
}
