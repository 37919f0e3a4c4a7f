// Package middleware содержит промежуточные обработчики HTTP:
// логирование, восстановление после паники, rate-limiting,
// request-id и проверку админ-ключа.
// auth.go — проверка админ-ключа для служебных ручек.
package middleware

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/argon2"

	"geoblog.ru/xp-engine/internal/common"
)

// AdminAuth проверяет заголовок X-Admin-Key против Argon2id-хеша из конфига.
// Хеш генерируется утилитой scripts/generate_hash.go.
func AdminAuth(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader("X-Admin-Key")
		if key == "" || !verifyArgon2id(key, keyHash) {
			log.WithField("ip", c.ClientIP()).Warn("Отклонён запрос с неверным админ-ключом")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": common.ErrNotAdmin.Error()})
			return
		}
		c.Next()
	}
}

// verifyArgon2id проверяет ключ против хеша в формате
// $argon2id$v=19$m=...,t=...,p=...$salt$hash.
func verifyArgon2id(password, encodedHash string) bool {
	// Парсим хеш
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		log.Error("Некорректный формат хеша Argon2id")
		return false
	}

	// Извлекаем параметры
	var memory uint32
	var iterations uint32
	var parallelism uint8
	_, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &iterations, &parallelism)
	if err != nil {
		log.WithError(err).Error("Ошибка парсинга параметров Argon2id")
		return false
	}

	// Декодируем соль
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования соли")
		return false
	}

	// Декодируем хеш
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		log.WithError(err).Error("Ошибка декодирования хеша")
		return false
	}

	// Вычисляем хеш введённого ключа
	computedHash := argon2.IDKey([]byte(password), salt, iterations, memory, parallelism, uint32(len(expectedHash)))

	// Сравниваем в постоянном времени (защита от timing attack)
	return subtle.ConstantTimeCompare(computedHash, expectedHash) == 1
}
