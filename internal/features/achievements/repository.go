// Package achievements — repository.go выполняет операции с таблицей user_achievements.
// Таблицы движка XP (xp_awards, user_levels) читаются ТОЛЬКО на чтение:
// писать в них может только сам движок.
package achievements

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository предоставляет методы для работы с достижениями.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий достижений.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// TryUnlock открывает достижение пользователю.
// ON CONFLICT DO NOTHING делает операцию идемпотентной: true возвращается
// только при ПЕРВОМ открытии.
func (r *Repository) TryUnlock(ctx context.Context, userID int64, code string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO user_achievements (user_id, code)
		VALUES ($1, $2)
		ON CONFLICT (user_id, code) DO NOTHING
	`, userID, code)
	if err != nil {
		return false, fmt.Errorf("ошибка открытия достижения: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// UserProgress возвращает данные для оценки условий: уровень, totalXP
// и количество начислений по источнику события.
func (r *Repository) UserProgress(ctx context.Context, userID int64, source string) (level int, totalXP int64, sourceCount int64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT level, total_xp FROM user_levels WHERE user_id = $1
	`, userID).Scan(&level, &totalXP)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка чтения уровня для достижений: %w", err)
	}

	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM xp_awards WHERE user_id = $1 AND source = $2
	`, userID, source).Scan(&sourceCount)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ошибка подсчёта начислений для достижений: %w", err)
	}

	return level, totalXP, sourceCount, nil
}

// ListUnlocked возвращает открытые достижения пользователя.
func (r *Repository) ListUnlocked(ctx context.Context, userID int64) ([]Unlock, error) {
	rows, err := r.db.Query(ctx, `
		SELECT user_id, code, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения достижений: %w", err)
	}
	defer rows.Close()

	var unlocks []Unlock
	for rows.Next() {
		var u Unlock
		var at time.Time
		if err := rows.Scan(&u.UserID, &u.Code, &at); err != nil {
			return nil, fmt.Errorf("ошибка сканирования: %w", err)
		}
		u.UnlockedAt = at
		unlocks = append(unlocks, u)
	}
	return unlocks, rows.Err()
}
