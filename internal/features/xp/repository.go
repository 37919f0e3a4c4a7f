// Package xp — repository.go выполняет операции с таблицами xp_awards и user_levels.
// Журнал начислений append-only: записи никогда не обновляются и не удаляются.
// Все денежные по смыслу операции выполняются в транзакциях БД.
package xp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Код PostgreSQL для нарушения уникального ограничения.
const pgUniqueViolation = "23505"

// Repository предоставляет методы для работы с журналом начислений
// и состоянием уровней. Реализует интерфейсы Store и HistoryReader.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий журнала XP.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Apply атомарно записывает начисление и пересчитывает уровень.
//
// Шаги в одной транзакции:
//  1. Вставка в xp_awards. Нарушение уникального индекса
//     (user_id, source, content_id) — это НЕ инфраструктурная ошибка,
//     а детерминированный исход Duplicate для проигравшего писателя.
//  2. SELECT ... FOR UPDATE строки user_levels — сериализация
//     read-modify-write по пользователю (конкурентные начисления
//     разными источниками не теряют обновления totalXP).
//  3. Пересчёт уровня чистой математикой и UPDATE.
func (r *Repository) Apply(ctx context.Context, userID int64, source string, amount int64, contentID, contentType string, metadata map[string]any) (*ApplyResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	// Откатываем транзакцию, если что-то пошло не так
	defer tx.Rollback(ctx)

	var metaJSON []byte
	if metadata != nil {
		metaJSON, err = json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("ошибка сериализации метаданных: %w", err)
		}
	}

	// NULLIF: пустой content_id храним как NULL, чтобы частичный
	// уникальный индекс не склеивал бесконтентные начисления
	_, err = tx.Exec(ctx, `
		INSERT INTO xp_awards (user_id, source, amount, content_id, content_type, metadata)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
	`, userID, source, amount, contentID, contentType, metaJSON)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return &ApplyResult{Duplicate: true}, nil
		}
		return nil, fmt.Errorf("ошибка записи начисления: %w", err)
	}

	// Ленивое создание состояния уровня (уровень 1, 0 XP, ранг novice)
	if _, err := tx.Exec(ctx, `
		INSERT INTO user_levels (user_id, total_xp, level, current_level_xp, required_xp, rank)
		VALUES ($1, 0, 1, 0, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, RequiredXP(1), RankNovice); err != nil {
		return nil, fmt.Errorf("ошибка создания состояния уровня: %w", err)
	}

	// Блокируем строку пользователя до конца транзакции
	var prevTotal int64
	var prevLevel int
	err = tx.QueryRow(ctx, `
		SELECT total_xp, level FROM user_levels WHERE user_id = $1 FOR UPDATE
	`, userID).Scan(&prevTotal, &prevLevel)
	if err != nil {
		return nil, fmt.Errorf("ошибка блокировки состояния уровня: %w", err)
	}

	newTotal := prevTotal + amount
	newLevel, currentXP := LevelFromTotalXP(newTotal)
	required := RequiredXP(newLevel)
	rank := RankForLevel(newLevel)

	if _, err := tx.Exec(ctx, `
		UPDATE user_levels
		SET total_xp = $2, level = $3, current_level_xp = $4,
		    required_xp = $5, rank = $6, updated_at = NOW()
		WHERE user_id = $1
	`, userID, newTotal, newLevel, currentXP, required, rank); err != nil {
		return nil, fmt.Errorf("ошибка обновления состояния уровня: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}

	return &ApplyResult{
		NewLevel:       newLevel,
		LevelUp:        newLevel > prevLevel,
		TotalXP:        newTotal,
		CurrentLevelXP: currentXP,
		RequiredXP:     required,
	}, nil
}

// GetUserLevel возвращает состояние уровня пользователя,
// материализуя ленивое начальное состояние при первом чтении.
func (r *Repository) GetUserLevel(ctx context.Context, userID int64) (*UserLevelState, error) {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO user_levels (user_id, total_xp, level, current_level_xp, required_xp, rank)
		VALUES ($1, 0, 1, 0, $2, $3)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, RequiredXP(1), RankNovice); err != nil {
		return nil, fmt.Errorf("ошибка создания состояния уровня: %w", err)
	}

	var s UserLevelState
	err := r.db.QueryRow(ctx, `
		SELECT user_id, total_xp, level, current_level_xp, required_xp, rank, updated_at
		FROM user_levels WHERE user_id = $1
	`, userID).Scan(
		&s.UserID, &s.TotalXP, &s.Level, &s.CurrentLevelXP,
		&s.RequiredXP, &s.Rank, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("состояние уровня не найдено (user_id=%d): %w", userID, err)
	}
	return &s, nil
}

// HasAward проверяет существование начисления (userID, source, contentID).
func (r *Repository) HasAward(ctx context.Context, userID int64, source, contentID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM xp_awards
			WHERE user_id = $1 AND source = $2 AND content_id = $3
		)
	`, userID, source, contentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки дубликата: %w", err)
	}
	return exists, nil
}

// LastAwardAt возвращает время последнего начисления источника пользователю.
// nil — начислений ещё не было.
func (r *Repository) LastAwardAt(ctx context.Context, userID int64, source string) (*time.Time, error) {
	var last *time.Time
	err := r.db.QueryRow(ctx, `
		SELECT MAX(created_at) FROM xp_awards
		WHERE user_id = $1 AND source = $2
	`, userID, source).Scan(&last)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения последнего начисления: %w", err)
	}
	return last, nil
}

// CountAwardsSince считает начисления источника пользователю с момента since.
// Окна кулдауна и дневного лимита всегда вычисляются от исторических
// строк журнала, не от плановых сбросов.
func (r *Repository) CountAwardsSince(ctx context.Context, userID int64, source string, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM xp_awards
		WHERE user_id = $1 AND source = $2 AND created_at >= $3
	`, userID, source, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ошибка подсчёта начислений: %w", err)
	}
	return count, nil
}

// TopUsers возвращает таблицу лидеров по totalXP.
func (r *Repository) TopUsers(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, total_xp, level, rank
		FROM user_levels
		ORDER BY total_xp DESC, user_id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения таблицы лидеров: %w", err)
	}
	defer rows.Close()

	var entries []LeaderboardEntry
	for rows.Next() {
		var e LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.TotalXP, &e.Level, &e.Rank); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// UserAwards возвращает последние начисления пользователя (для истории в API).
func (r *Repository) UserAwards(ctx context.Context, userID int64, limit int) ([]*AwardEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, source, amount,
		       COALESCE(content_id, ''), COALESCE(content_type, ''), metadata, created_at
		FROM xp_awards
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения истории начислений: %w", err)
	}
	defer rows.Close()

	var events []*AwardEvent
	for rows.Next() {
		var ev AwardEvent
		var metaJSON []byte
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Source, &ev.Amount,
			&ev.ContentID, &ev.ContentType, &metaJSON, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &ev.Metadata); err != nil {
				return nil, fmt.Errorf("ошибка разбора метаданных: %w", err)
			}
		}
		events = append(events, &ev)
	}
	return events, rows.Err()
}

// Репозиторий — это и есть история начислений для стража
var _ HistoryReader = (*Repository)(nil)
