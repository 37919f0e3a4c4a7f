// Package guest — repository.go выполняет операции с таблицей guest_actions.
package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с таблицей guest_actions.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий гостевых действий.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create записывает новое гостевое действие в статусе pending.
func (r *Repository) Create(ctx context.Context, a *Action) error {
	var metaJSON []byte
	if a.Metadata != nil {
		var err error
		metaJSON, err = json.Marshal(a.Metadata)
		if err != nil {
			return fmt.Errorf("ошибка сериализации метаданных: %w", err)
		}
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO guest_actions (guest_session_id, action_type, content_id, content_type, status, metadata)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6)
		RETURNING id, created_at
	`, a.GuestSessionID, a.ActionType, a.ContentID, a.ContentType, StatusPending, metaJSON).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("ошибка записи гостевого действия: %w", err)
	}
	a.Status = StatusPending
	return nil
}

// ListReplayable возвращает одобренные и ещё не зачтённые действия сессии
// в хронологическом порядке. Порядок важен: от него зависит корректность
// прогрессии уровней при зачёте.
func (r *Repository) ListReplayable(ctx context.Context, sessionID string) ([]*Action, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, guest_session_id, action_type,
		       COALESCE(content_id, ''), COALESCE(content_type, ''),
		       status, metadata, created_at, consumed_at
		FROM guest_actions
		WHERE guest_session_id = $1 AND status = $2
		ORDER BY created_at ASC, id ASC
	`, sessionID, StatusApproved)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения гостевых действий: %w", err)
	}
	defer rows.Close()

	var actions []*Action
	for rows.Next() {
		var a Action
		var metaJSON []byte
		if err := rows.Scan(&a.ID, &a.GuestSessionID, &a.ActionType,
			&a.ContentID, &a.ContentType, &a.Status, &metaJSON,
			&a.CreatedAt, &a.ConsumedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &a.Metadata); err != nil {
				return nil, fmt.Errorf("ошибка разбора метаданных: %w", err)
			}
		}
		actions = append(actions, &a)
	}
	return actions, rows.Err()
}

// MarkConsumed переводит одно действие approved → consumed.
// Условие status = approved делает операцию безопасной к повтору:
// уже зачтённое действие второй раз не зачтётся — вернётся false.
func (r *Repository) MarkConsumed(ctx context.Context, actionID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE guest_actions
		SET status = $2, consumed_at = NOW()
		WHERE id = $1 AND status = $3
	`, actionID, StatusConsumed, StatusApproved)
	if err != nil {
		return false, fmt.Errorf("ошибка зачёта гостевого действия: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatusByContent переводит pending-действия по контенту в approved
// или rejected. Вызывается сервисом модерации после решения.
func (r *Repository) UpdateStatusByContent(ctx context.Context, contentID, contentType, status string) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE guest_actions
		SET status = $3
		WHERE content_id = $1 AND content_type = $2 AND status = $4
	`, contentID, contentType, status, StatusPending)
	if err != nil {
		return 0, fmt.Errorf("ошибка обновления статуса гостевых действий: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgeTerminal удаляет старые терминальные действия (consumed/rejected).
// Журнал XP хранится вечно, а гостевые действия после зачёта — только
// пока полезны для отладки. Вызывается планировщиком раз в сутки.
func (r *Repository) PurgeTerminal(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM guest_actions
		WHERE status IN ($1, $2) AND created_at < $3
	`, StatusConsumed, StatusRejected, olderThan)
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки гостевых действий: %w", err)
	}
	return tag.RowsAffected(), nil
}
