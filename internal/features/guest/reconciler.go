// Package guest — reconciler.go содержит ретроактивный зачёт гостевых
// действий при регистрации. Каждое одобренное действие проигрывается через
// фасад XP ровно один раз; операция безопасна к повторному запуску.
package guest

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"geoblog.ru/xp-engine/internal/common"
	"geoblog.ru/xp-engine/internal/features/xp"
)

// XPAwarder — фасад движка XP глазами реконсилиатора.
// Реализуется *xp.Service; в тестах подменяется фейком.
type XPAwarder interface {
	AddXP(ctx context.Context, params xp.AddXPParams) (*xp.AwardResult, error)
	GetUserLevel(ctx context.Context, userID int64) (*xp.UserLevelState, error)
}

// ActionStore — доступ реконсилиатора к гостевым действиям.
type ActionStore interface {
	Create(ctx context.Context, a *Action) error
	ListReplayable(ctx context.Context, sessionID string) ([]*Action, error)
	MarkConsumed(ctx context.Context, actionID int64) (bool, error)
	UpdateStatusByContent(ctx context.Context, contentID, contentType, status string) (int64, error)
	PurgeTerminal(ctx context.Context, olderThan time.Time) (int64, error)
}

// Service управляет гостевыми действиями и их зачётом.
type Service struct {
	store ActionStore
	xp    XPAwarder
}

// NewService создаёт сервис гостевых действий.
func NewService(store ActionStore, awarder XPAwarder) *Service {
	return &Service{store: store, xp: awarder}
}

// RecordAction регистрирует действие гостевой сессии (статус pending).
// Вызывается контент-сервисами при публикации гостевого контента.
//
// ContentID обязателен: это ключ дедупликации при зачёте. Без него
// уникальный индекс журнала не защищает от повторного начисления,
// если зачёт оборвётся между записью XP и пометкой consumed.
func (s *Service) RecordAction(ctx context.Context, a *Action) error {
	if a.GuestSessionID == "" {
		return common.ErrInvalidSession
	}
	if a.ActionType == "" {
		return fmt.Errorf("не задан тип действия")
	}
	if a.ContentID == "" {
		return fmt.Errorf("не задан контент действия")
	}
	return s.store.Create(ctx, a)
}

// ApplyModeration переводит pending-действия по контенту в approved/rejected.
func (s *Service) ApplyModeration(ctx context.Context, contentID, contentType string, approved bool) (int64, error) {
	status := StatusRejected
	if approved {
		status = StatusApproved
	}
	return s.store.UpdateStatusByContent(ctx, contentID, contentType, status)
}

// ReconcileGuest зачитывает одобренные действия гостевой сессии новому
// пользователю. Вызывается один раз после связывания гостевой сессии
// с учётной записью; повторный вызов зачтёт ноль действий.
//
// Для каждого действия в хронологическом порядке:
//  1. Проигрываем через фасад XP (те же правила бонусов, что и вживую)
//  2. При успехе сразу помечаем consumed — повтор не зачтёт дважды
//  3. Отказ политики (например, лимит) НЕ фатален: действие пропускается,
//     зачёт продолжается
//
// Инфраструктурный сбой прерывает зачёт: уже зачтённые действия остаются
// consumed, повторный запуск дозачтёт остальные.
func (s *Service) ReconcileGuest(ctx context.Context, sessionID string, userID int64) (*ReconcileResult, error) {
	if sessionID == "" {
		return nil, common.ErrInvalidSession
	}
	if userID <= 0 {
		return nil, common.ErrInvalidUserID
	}

	actions, err := s.store.ListReplayable(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Снимок уровня до зачёта — для подсчёта прироста в сводке
	initial, err := s.xp.GetUserLevel(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{}

	for _, action := range actions {
		awardRes, err := s.xp.AddXP(ctx, xp.AddXPParams{
			UserID:      userID,
			Source:      action.ActionType,
			ContentID:   action.ContentID,
			ContentType: action.ContentType,
			Metadata:    action.Metadata,
		})
		if err != nil {
			return nil, fmt.Errorf("сбой зачёта действия %d: %w", action.ID, err)
		}

		if !awardRes.Success {
			// Отказ политики — пропускаем действие, НЕ считаем обработанным.
			// Дубликат означает, что XP за контент уже есть: действие
			// при этом закрываем, чтобы не перепроигрывать вечно.
			log.WithFields(log.Fields{
				"action_id": action.ID,
				"user_id":   userID,
				"reason":    awardRes.Reason,
			}).Debug("Гостевое действие пропущено политикой")
			if awardRes.Reason == xp.ReasonDuplicate {
				if _, err := s.store.MarkConsumed(ctx, action.ID); err != nil {
					return nil, err
				}
			}
			continue
		}

		consumed, err := s.store.MarkConsumed(ctx, action.ID)
		if err != nil {
			return nil, err
		}
		if !consumed {
			// Конкурентный зачёт успел раньше — не считаем действие своим
			continue
		}

		result.ActionsProcessed++
		result.TotalXPGranted += awardRes.AmountGranted
		result.AchievementsUnlocked += awardRes.AchievementsUnlocked
		result.FinalLevel = awardRes.NewLevel
		if awardRes.LevelUp {
			result.LevelUp = true
		}
	}

	// Итоговый уровень берём из состояния, а не из последнего начисления:
	// при нуле зачтённых действий сводка всё равно должна быть честной
	state, err := s.xp.GetUserLevel(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.FinalLevel = state.Level
	result.LevelsGained = state.Level - initial.Level
	if result.LevelsGained > 0 {
		result.LevelUp = true
	}
	result.Summary = result.buildSummary()

	log.WithFields(log.Fields{
		"session_id": sessionID,
		"user_id":    userID,
		"processed":  result.ActionsProcessed,
		"xp_granted": result.TotalXPGranted,
		"level":      result.FinalLevel,
	}).Info("Зачёт гостевой сессии завершён")

	return result, nil
}

// PurgeOld удаляет терминальные гостевые действия старше retentionDays.
// Запускается планировщиком раз в сутки.
func (s *Service) PurgeOld(ctx context.Context, retentionDays int) error {
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	purged, err := s.store.PurgeTerminal(ctx, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		log.Infof("Удалено %d гостевых действий старше %d %s",
			purged, retentionDays, common.PluralizeDays(retentionDays))
	}
	return nil
}
