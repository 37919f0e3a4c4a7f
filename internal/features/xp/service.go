// Package xp — service.go содержит фасад движка начисления XP.
// Единственная точка входа для внешних вызывающих: собирает каталог,
// множители, страж политики, журнал и оценку достижений в один вызов.
package xp

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Store — запись и чтение журнала начислений.
// Реализуется *Repository; в тестах подменяется in-memory фейком.
type Store interface {
	HistoryReader
	Apply(ctx context.Context, userID int64, source string, amount int64, contentID, contentType string, metadata map[string]any) (*ApplyResult, error)
	GetUserLevel(ctx context.Context, userID int64) (*UserLevelState, error)
	TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	UserAwards(ctx context.Context, userID int64, limit int) ([]*AwardEvent, error)
}

// AchievementEvaluator — внешний коллаборатор достижений.
// Вызывается ПОСЛЕ успешного начисления; его сбой никогда не
// откатывает начисление (только лог).
type AchievementEvaluator interface {
	EvaluateAndUnlock(ctx context.Context, userID int64, event AwardEvent) (int, error)
}

// Service — фасад движка XP.
type Service struct {
	catalog      *Catalog
	store        Store
	guard        *Guard
	achievements AchievementEvaluator // может быть nil
	cache        *LevelCache          // может быть nil (кеш выключен)
	now          func() time.Time     // подменяется в тестах
}

// NewService создаёт фасад движка XP.
func NewService(catalog *Catalog, store Store, moderation ModerationChecker, achievements AchievementEvaluator, cache *LevelCache) *Service {
	return &Service{
		catalog:      catalog,
		store:        store,
		guard:        NewGuard(store, moderation),
		achievements: achievements,
		cache:        cache,
		now:          time.Now,
	}
}

// AddXP начисляет XP за действие пользователя.
//
// Конвейер: каталог → множители из метаданных → страж политики →
// атомарная запись в журнал → инвалидация кеша → оценка достижений.
//
// Отказы политики возвращаются как AwardResult с причиной, НЕ как ошибки.
// Ошибка — только настоящий инфраструктурный сбой. Вызывающий контент-сервис
// никогда не блокирует своё действие из-за отказа в XP: он лишь логирует.
func (s *Service) AddXP(ctx context.Context, params AddXPParams) (*AwardResult, error) {
	cfg, err := s.catalog.Get(params.Source)
	if err != nil {
		// Неизвестный источник — дефект вызывающего, не сбой
		log.WithFields(log.Fields{
			"user_id": params.UserID,
			"source":  params.Source,
		}).Warn("Начисление из неизвестного источника отклонено")
		return &AwardResult{Reason: ReasonInvalid}, nil
	}

	base := params.Amount
	if base == 0 {
		base = cfg.BaseAmount
	}

	// Множители считаются ДО стража: страж проверяет итоговую сумму
	streakDays, quality, bonus := DeriveFactors(params.Metadata)
	amount := ApplyMultipliers(base, streakDays, quality, bonus)

	decision, err := s.guard.Check(ctx, params, cfg, amount, s.now())
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		log.WithFields(log.Fields{
			"user_id": params.UserID,
			"source":  params.Source,
			"reason":  decision.Reason,
		}).Debug("Начисление отклонено политикой")
		return &AwardResult{Reason: decision.Reason}, nil
	}

	applied, err := s.store.Apply(ctx, params.UserID, params.Source, amount, params.ContentID, params.ContentType, params.Metadata)
	if err != nil {
		return nil, err
	}
	if applied.Duplicate {
		// Гонка проверка/запись закрыта уникальным индексом:
		// проигравший конкурентный писатель попадает сюда
		return &AwardResult{Reason: ReasonDuplicate}, nil
	}

	s.cache.InvalidateLevel(ctx, params.UserID)

	result := &AwardResult{
		Success:        true,
		AmountGranted:  amount,
		NewLevel:       applied.NewLevel,
		LevelUp:        applied.LevelUp,
		TotalXP:        applied.TotalXP,
		CurrentLevelXP: applied.CurrentLevelXP,
		RequiredXP:     applied.RequiredXP,
	}

	// Оценка достижений — мягкий побочный эффект
	if s.achievements != nil {
		event := AwardEvent{
			UserID:      params.UserID,
			Source:      params.Source,
			Amount:      amount,
			ContentID:   params.ContentID,
			ContentType: params.ContentType,
			Metadata:    params.Metadata,
			CreatedAt:   s.now(),
		}
		unlocked, err := s.achievements.EvaluateAndUnlock(ctx, params.UserID, event)
		if err != nil {
			log.WithError(err).WithField("user_id", params.UserID).
				Error("Ошибка оценки достижений (начисление НЕ откачено)")
		} else {
			result.AchievementsUnlocked = unlocked
		}
	}

	log.WithFields(log.Fields{
		"user_id":  params.UserID,
		"source":   params.Source,
		"amount":   amount,
		"level":    applied.NewLevel,
		"level_up": applied.LevelUp,
	}).Info("XP начислен")

	return result, nil
}

// GetUserLevel возвращает состояние уровня пользователя (read-through кеш).
func (s *Service) GetUserLevel(ctx context.Context, userID int64) (*UserLevelState, error) {
	if state, ok := s.cache.GetLevel(ctx, userID); ok {
		return state, nil
	}
	state, err := s.store.GetUserLevel(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.cache.SetLevel(ctx, state)
	return state, nil
}

// UserAwards возвращает последние начисления пользователя.
// История читается напрямую из журнала, без кеша: запрашивается редко.
func (s *Service) UserAwards(ctx context.Context, userID int64, limit int) ([]*AwardEvent, error) {
	return s.store.UserAwards(ctx, userID, limit)
}

// Leaderboard возвращает таблицу лидеров (read-through кеш).
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if entries, ok := s.cache.GetLeaderboard(ctx); ok {
		return entries, nil
	}
	entries, err := s.store.TopUsers(ctx, limit)
	if err != nil {
		return nil, err
	}
	s.cache.SetLeaderboard(ctx, entries)
	return entries, nil
}

// RefreshLeaderboard принудительно обновляет снимок таблицы лидеров в кеше.
// Вызывается планировщиком раз в час.
func (s *Service) RefreshLeaderboard(ctx context.Context, limit int) error {
	entries, err := s.store.TopUsers(ctx, limit)
	if err != nil {
		return err
	}
	s.cache.SetLeaderboard(ctx, entries)
	return nil
}

// Catalog возвращает каталог источников (для справочных ручек API).
func (s *Service) Catalog() *Catalog {
	return s.catalog
}
