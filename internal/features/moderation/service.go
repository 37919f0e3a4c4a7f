// Package moderation — service.go содержит бизнес-логику модерации.
// Сервис реализует интерфейс xp.ModerationChecker и при решении
// модерации продвигает связанные гостевые действия по их машине состояний.
package moderation

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// GuestUpdater — продвижение гостевых действий после решения модерации.
// Реализуется сервисом гостевых действий.
type GuestUpdater interface {
	ApplyModeration(ctx context.Context, contentID, contentType string, approved bool) (int64, error)
}

// Store — доступ сервиса к решениям модерации.
type Store interface {
	Upsert(ctx context.Context, d *Decision) error
	GetStatus(ctx context.Context, contentID, contentType string) (string, error)
}

// Service управляет решениями модерации.
type Service struct {
	store Store
	guest GuestUpdater // может быть nil (без гостевого модуля)
}

// NewService создаёт сервис модерации.
func NewService(store Store, guest GuestUpdater) *Service {
	return &Service{store: store, guest: guest}
}

// IsApproved отвечает стражу XP: одобрен ли контент.
// Отсутствие решения = не одобрен (pending не даёт XP).
func (s *Service) IsApproved(ctx context.Context, contentID, contentType string) (bool, error) {
	status, err := s.store.GetStatus(ctx, contentID, contentType)
	if err != nil {
		return false, err
	}
	return status == StatusApproved, nil
}

// Decide фиксирует решение модерации и продвигает гостевые действия
// по этому контенту: pending → approved или pending → rejected.
func (s *Service) Decide(ctx context.Context, d *Decision) error {
	if d.ContentID == "" || d.ContentType == "" {
		return fmt.Errorf("не задан контент для решения модерации")
	}
	if d.Status != StatusApproved && d.Status != StatusRejected {
		return fmt.Errorf("недопустимый статус модерации: %q", d.Status)
	}

	if err := s.store.Upsert(ctx, d); err != nil {
		return err
	}

	if s.guest != nil {
		moved, err := s.guest.ApplyModeration(ctx, d.ContentID, d.ContentType, d.Status == StatusApproved)
		if err != nil {
			// Решение уже зафиксировано; гостевые действия догонит повтор
			log.WithError(err).WithField("content_id", d.ContentID).
				Error("Ошибка продвижения гостевых действий после модерации")
		} else if moved > 0 {
			log.WithFields(log.Fields{
				"content_id": d.ContentID,
				"status":     d.Status,
				"moved":      moved,
			}).Debug("Гостевые действия продвинуты модерацией")
		}
	}

	return nil
}
