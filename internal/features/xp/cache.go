// Package xp — cache.go содержит read-through кеш состояний уровня в Redis.
// Кеш — ТОЛЬКО оптимизация чтения. Источник правды всегда PostgreSQL:
// промах или сбой Redis деградирует в чтение из БД, никогда не в ошибку.
package xp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Ключи кеша.
const (
	cacheKeyLevel       = "xp:level:%d"    // Состояние уровня пользователя
	cacheKeyLeaderboard = "xp:leaderboard" // Снимок таблицы лидеров
)

// LevelCache кеширует состояния уровней и снимок таблицы лидеров.
// nil-безопасен: на нулевом кеше все методы — no-op (кеш выключен конфигом).
type LevelCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewLevelCache создаёт кеш. rdb == nil означает «кеш выключен».
func NewLevelCache(rdb *redis.Client, ttl time.Duration) *LevelCache {
	if rdb == nil {
		return nil
	}
	return &LevelCache{rdb: rdb, ttl: ttl}
}

// GetLevel возвращает состояние уровня из кеша.
// false — промах или сбой Redis (оба случая деградируют в чтение из БД).
func (c *LevelCache) GetLevel(ctx context.Context, userID int64) (*UserLevelState, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, fmt.Sprintf(cacheKeyLevel, userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Warn("Сбой чтения кеша уровней")
		}
		return nil, false
	}
	var s UserLevelState
	if err := json.Unmarshal(data, &s); err != nil {
		log.WithError(err).Warn("Повреждённая запись в кеше уровней")
		return nil, false
	}
	return &s, true
}

// SetLevel сохраняет состояние уровня в кеш.
func (c *LevelCache) SetLevel(ctx context.Context, s *UserLevelState) {
	if c == nil || s == nil {
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, fmt.Sprintf(cacheKeyLevel, s.UserID), data, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("Сбой записи кеша уровней")
	}
}

// InvalidateLevel удаляет состояние пользователя из кеша после начисления.
func (c *LevelCache) InvalidateLevel(ctx context.Context, userID int64) {
	if c == nil {
		return
	}
	if err := c.rdb.Del(ctx, fmt.Sprintf(cacheKeyLevel, userID)).Err(); err != nil {
		log.WithError(err).Warn("Сбой инвалидации кеша уровней")
	}
}

// GetLeaderboard возвращает снимок таблицы лидеров из кеша.
func (c *LevelCache) GetLeaderboard(ctx context.Context) ([]LeaderboardEntry, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.rdb.Get(ctx, cacheKeyLeaderboard).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.WithError(err).Warn("Сбой чтения кеша таблицы лидеров")
		}
		return nil, false
	}
	var entries []LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

// SetLeaderboard сохраняет снимок таблицы лидеров.
func (c *LevelCache) SetLeaderboard(ctx context.Context, entries []LeaderboardEntry) {
	if c == nil {
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKeyLeaderboard, data, c.ttl).Err(); err != nil {
		log.WithError(err).Warn("Сбой записи кеша таблицы лидеров")
	}
}
