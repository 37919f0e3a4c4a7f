// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, Redis, репозитории, сервисы,
// обработчики и собирает всё в маршрутизатор и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"geoblog.ru/xp-engine/internal/config"
	"geoblog.ru/xp-engine/internal/db/postgres"
	"geoblog.ru/xp-engine/internal/features/achievements"
	"geoblog.ru/xp-engine/internal/features/guest"
	"geoblog.ru/xp-engine/internal/features/moderation"
	"geoblog.ru/xp-engine/internal/features/xp"
	"geoblog.ru/xp-engine/internal/jobs"
	"geoblog.ru/xp-engine/internal/server"
	"geoblog.ru/xp-engine/internal/server/middleware"
)

// App содержит все компоненты приложения.
type App struct {
	Router    *gin.Engine
	Scheduler *jobs.Scheduler
	DB        *pgxpool.Pool
	Redis     *redis.Client // nil, если кеш выключен
	limiter   *middleware.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Redis (опционально) ===
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			// Кеш — только оптимизация: без Redis продолжаем на одной БД
			log.WithError(err).Warn("Redis недоступен, кеш уровней выключен")
			rdb = nil
		} else {
			log.Info("Подключение к Redis установлено")
		}
	}

	// === 3. Репозитории ===
	xpRepo := xp.NewRepository(pool)
	guestRepo := guest.NewRepository(pool)
	moderationRepo := moderation.NewRepository(pool)
	achievementsRepo := achievements.NewRepository(pool)

	// === 4. Сервисы ===
	achievementsService := achievements.NewService(achievementsRepo)
	cache := xp.NewLevelCache(rdb, cfg.CacheTTL)

	// Модерацию собираем в два шага: её сервису нужен гостевой сервис,
	// а гостевому — фасад XP, которому нужна модерация
	moderationService := moderation.NewService(moderationRepo, nil)
	xpService := xp.NewService(xp.NewCatalog(), xpRepo, moderationService, achievementsService, cache)
	guestService := guest.NewService(guestRepo, xpService)
	moderationService = moderation.NewService(moderationRepo, guestService)

	// === 5. Обработчики ===
	handlers := server.Handlers{
		XP:           xp.NewHandler(xpService),
		Guest:        guest.NewHandler(guestService),
		Moderation:   moderation.NewHandler(moderationService),
		Achievements: achievements.NewHandler(achievementsService),
	}

	// === 6. Маршрутизатор ===
	router, limiter := server.NewRouter(cfg, handlers)

	// === 7. Планировщик задач ===
	scheduler := jobs.NewScheduler(guestService, xpService, cfg)

	return &App{
		Router:    router,
		Scheduler: scheduler,
		DB:        pool,
		Redis:     rdb,
		limiter:   limiter,
	}, nil
}

// Close освобождает ресурсы приложения.
func (a *App) Close() {
	a.limiter.Close()
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.InitMigrations(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001XPLedger},
		{2, migration002GuestActions},
		{3, migration003Moderation},
		{4, migration004Achievements},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

// Журнал начислений и состояния уровней.
// Частичный уникальный индекс на (user_id, source, content_id) — главный
// механизм корректности: ровно одно начисление за единицу контента,
// даже при конкурентных писателях.
var migration001XPLedger = `
CREATE TABLE IF NOT EXISTS xp_awards (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL,
    source VARCHAR(50) NOT NULL,
    amount BIGINT NOT NULL CHECK (amount > 0),
    content_id VARCHAR(64),
    content_type VARCHAR(32),
    metadata JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_xp_awards_user_source_content
    ON xp_awards(user_id, source, content_id)
    WHERE content_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_xp_awards_user_source_created
    ON xp_awards(user_id, source, created_at DESC);

CREATE TABLE IF NOT EXISTS user_levels (
    user_id BIGINT PRIMARY KEY,
    total_xp BIGINT NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    current_level_xp BIGINT NOT NULL DEFAULT 0,
    required_xp BIGINT NOT NULL,
    rank VARCHAR(20) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_user_levels_total_xp ON user_levels(total_xp DESC);
`

// Гостевые действия с явной машиной состояний.
var migration002GuestActions = `
CREATE TABLE IF NOT EXISTS guest_actions (
    id BIGSERIAL PRIMARY KEY,
    guest_session_id VARCHAR(64) NOT NULL,
    action_type VARCHAR(50) NOT NULL,
    content_id VARCHAR(64),
    content_type VARCHAR(32),
    status VARCHAR(16) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'approved', 'rejected', 'consumed')),
    metadata JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    consumed_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_guest_actions_session_status
    ON guest_actions(guest_session_id, status);
CREATE INDEX IF NOT EXISTS idx_guest_actions_content
    ON guest_actions(content_id, content_type);
`

// Решения модерации по контенту.
var migration003Moderation = `
CREATE TABLE IF NOT EXISTS content_moderation (
    content_id VARCHAR(64) NOT NULL,
    content_type VARCHAR(32) NOT NULL,
    status VARCHAR(16) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'approved', 'rejected')),
    decided_by VARCHAR(64),
    decided_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (content_id, content_type)
);
`

// Открытые достижения пользователей.
var migration004Achievements = `
CREATE TABLE IF NOT EXISTS user_achievements (
    user_id BIGINT NOT NULL,
    code VARCHAR(64) NOT NULL,
    unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, code)
);
`
