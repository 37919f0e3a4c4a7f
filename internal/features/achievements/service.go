// Package achievements — service.go содержит оценку условий достижений.
// Сервис реализует интерфейс xp.AchievementEvaluator.
package achievements

import (
	"context"

	log "github.com/sirupsen/logrus"

	"geoblog.ru/xp-engine/internal/features/xp"
)

// Store — доступ сервиса к хранилищу достижений.
type Store interface {
	TryUnlock(ctx context.Context, userID int64, code string) (bool, error)
	UserProgress(ctx context.Context, userID int64, source string) (level int, totalXP int64, sourceCount int64, err error)
	ListUnlocked(ctx context.Context, userID int64) ([]Unlock, error)
}

// Service оценивает условия достижений после начислений XP.
type Service struct {
	store   Store
	catalog []Achievement
}

// NewService создаёт сервис достижений со статическим каталогом.
func NewService(store Store) *Service {
	return &Service{store: store, catalog: DefaultCatalog()}
}

// EvaluateAndUnlock проверяет условия каталога после начисления и
// открывает сработавшие достижения. Возвращает количество ВНОВЬ
// открытых (повторные срабатывания идемпотентны и не считаются).
func (s *Service) EvaluateAndUnlock(ctx context.Context, userID int64, event xp.AwardEvent) (int, error) {
	level, totalXP, sourceCount, err := s.store.UserProgress(ctx, userID, event.Source)
	if err != nil {
		return 0, err
	}

	unlocked := 0
	for _, a := range s.catalog {
		if !s.satisfied(a, level, totalXP, sourceCount, event.Source) {
			continue
		}
		isNew, err := s.store.TryUnlock(ctx, userID, a.Code)
		if err != nil {
			return unlocked, err
		}
		if isNew {
			unlocked++
			log.WithFields(log.Fields{
				"user_id": userID,
				"code":    a.Code,
			}).Info("Достижение открыто")
		}
	}
	return unlocked, nil
}

// ListUnlocked возвращает открытые достижения пользователя с названиями
// из каталога.
func (s *Service) ListUnlocked(ctx context.Context, userID int64) ([]UnlockedView, error) {
	unlocks, err := s.store.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(s.catalog))
	for _, a := range s.catalog {
		titles[a.Code] = a.Title
	}

	views := make([]UnlockedView, 0, len(unlocks))
	for _, u := range unlocks {
		views = append(views, UnlockedView{
			Code:       u.Code,
			Title:      titles[u.Code],
			UnlockedAt: u.UnlockedAt,
		})
	}
	return views, nil
}

// satisfied проверяет, выполнено ли условие достижения.
func (s *Service) satisfied(a Achievement, level int, totalXP, sourceCount int64, eventSource string) bool {
	switch a.Kind {
	case KindLevel:
		return int64(level) >= a.Threshold
	case KindTotalXP:
		return totalXP >= a.Threshold
	case KindSourceCount:
		// Считаем только источник текущего события: счётчики других
		// источников не менялись, их достижения не могли сработать
		return a.Source == eventSource && sourceCount >= a.Threshold
	default:
		return false
	}
}
