// Package moderation хранит решения модерации по контенту.
// Движок XP спрашивает у этого модуля «одобрен ли контент» перед
// начислением за источники, требующие модерации.
// models.go описывает структуру решения.
package moderation

import "time"

// Статусы модерации контента.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Decision — решение модерации по одной единице контента.
type Decision struct {
	ContentID   string    `db:"content_id"`
	ContentType string    `db:"content_type"` // "post", "marker", "route", "event"
	Status      string    `db:"status"`
	DecidedBy   string    `db:"decided_by"` // Идентификатор модератора (для аудита)
	DecidedAt   time.Time `db:"decided_at"`
}
