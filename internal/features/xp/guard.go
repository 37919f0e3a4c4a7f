// Package xp — guard.go содержит проверки политики начисления.
// Страж только читает и ничего не пишет: гонка между проверкой и записью
// закрывается не здесь, а атомарной вставкой в журнале (repository.go).
package xp

import (
	"context"
	"fmt"
	"time"
)

// Окно дневного лимита — скользящие 24 часа, считается от исторических
// записей журнала в момент решения. Никаких фоновых сбросов по расписанию.
const dailyWindow = 24 * time.Hour

// HistoryReader — доступ стража к истории начислений (только чтение).
// Реализуется репозиторием журнала; в тестах подменяется фейком.
type HistoryReader interface {
	// HasAward — существует ли начисление (userID, source, contentID)
	HasAward(ctx context.Context, userID int64, source, contentID string) (bool, error)
	// LastAwardAt — время последнего начисления источника пользователю (nil, если не было)
	LastAwardAt(ctx context.Context, userID int64, source string) (*time.Time, error)
	// CountAwardsSince — сколько начислений источника было пользователю с момента since
	CountAwardsSince(ctx context.Context, userID int64, source string, since time.Time) (int, error)
}

// ModerationChecker — внешний коллаборатор модерации.
type ModerationChecker interface {
	IsApproved(ctx context.Context, contentID, contentType string) (bool, error)
}

// Decision — вердикт стража. При Allowed == false заполнена Reason.
type Decision struct {
	Allowed bool
	Reason  Reason
}

var allowed = Decision{Allowed: true}

func denied(reason Reason) Decision {
	return Decision{Reason: reason}
}

// Guard проверяет право на начисление до любой записи.
type Guard struct {
	history    HistoryReader
	moderation ModerationChecker
}

// NewGuard создаёт страж политики начисления.
func NewGuard(history HistoryReader, moderation ModerationChecker) *Guard {
	return &Guard{history: history, moderation: moderation}
}

// Check выполняет проверки в строгом порядке; первая проваленная решает:
//
//  1. Валидность параметров (userID, source, amount > 0)
//  2. Модерация (если источник её требует и задан contentID)
//  3. Дубликат (если задан contentID)
//  4. Кулдаун источника
//  5. Дневной лимит (скользящие 24 часа)
//
// Ошибка возвращается ТОЛЬКО при инфраструктурном сбое чтения;
// исходы политики — это Decision, не ошибки.
func (g *Guard) Check(ctx context.Context, params AddXPParams, cfg SourceConfig, amount int64, now time.Time) (Decision, error) {
	// 1. Валидность параметров
	if params.UserID <= 0 || params.Source == "" || amount <= 0 {
		return denied(ReasonInvalid), nil
	}

	// 2. Модерация
	if cfg.RequiresModeration && params.ContentID != "" {
		approved, err := g.moderation.IsApproved(ctx, params.ContentID, params.ContentType)
		if err != nil {
			return Decision{}, fmt.Errorf("ошибка проверки модерации: %w", err)
		}
		if !approved {
			return denied(ReasonNotModerated), nil
		}
	}

	// 3. Дубликат
	if params.ContentID != "" {
		exists, err := g.history.HasAward(ctx, params.UserID, params.Source, params.ContentID)
		if err != nil {
			return Decision{}, fmt.Errorf("ошибка проверки дубликата: %w", err)
		}
		if exists {
			return denied(ReasonDuplicate), nil
		}
	}

	// 4. Кулдаун
	if cfg.Cooldown > 0 {
		last, err := g.history.LastAwardAt(ctx, params.UserID, params.Source)
		if err != nil {
			return Decision{}, fmt.Errorf("ошибка проверки кулдауна: %w", err)
		}
		if last != nil && now.Sub(*last) < cfg.Cooldown {
			return denied(ReasonCooldown), nil
		}
	}

	// 5. Дневной лимит
	if cfg.DailyLimit > 0 {
		count, err := g.history.CountAwardsSince(ctx, params.UserID, params.Source, now.Add(-dailyWindow))
		if err != nil {
			return Decision{}, fmt.Errorf("ошибка проверки дневного лимита: %w", err)
		}
		if count >= cfg.DailyLimit {
			return denied(ReasonLimitExceeded), nil
		}
	}

	return allowed, nil
}
