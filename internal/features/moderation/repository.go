// Package moderation — repository.go выполняет операции с таблицей content_moderation.
package moderation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с таблицей content_moderation.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий решений модерации.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Upsert записывает или обновляет решение модерации по контенту.
func (r *Repository) Upsert(ctx context.Context, d *Decision) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO content_moderation (content_id, content_type, status, decided_by, decided_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (content_id, content_type)
		DO UPDATE SET status = $3, decided_by = $4, decided_at = NOW()
	`, d.ContentID, d.ContentType, d.Status, d.DecidedBy)
	if err != nil {
		return fmt.Errorf("ошибка записи решения модерации: %w", err)
	}
	return nil
}

// GetStatus возвращает статус модерации контента.
// Контент без записи считается pending: решения ещё нет.
func (r *Repository) GetStatus(ctx context.Context, contentID, contentType string) (string, error) {
	var status string
	err := r.db.QueryRow(ctx, `
		SELECT status FROM content_moderation
		WHERE content_id = $1 AND content_type = $2
	`, contentID, contentType).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return StatusPending, nil
	}
	if err != nil {
		return "", fmt.Errorf("ошибка чтения статуса модерации: %w", err)
	}
	return status, nil
}
