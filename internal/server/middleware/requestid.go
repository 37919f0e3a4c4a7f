package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestIDKey — ключ request-id в контексте gin.
const RequestIDKey = "request_id"

// RequestID присваивает каждому запросу идентификатор.
// Если клиент прислал X-Request-ID — используем его (сквозная трассировка
// через контент-сервисы), иначе генерируем новый.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(RequestIDKey, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}
