// Package guest реализует учёт действий анонимных (гостевых) сессий
// и их ретроактивный зачёт в XP при регистрации.
// models.go описывает структуру гостевого действия и его жизненный цикл.
package guest

import (
	"fmt"
	"time"

	"geoblog.ru/xp-engine/internal/common"
)

// Статусы гостевого действия.
//
// Машина состояний:
//
//	pending → approved → consumed   (единственный путь, дающий XP)
//	pending → rejected              (терминальный, XP не даёт никогда)
//
// Явные статусы вместо булевых флагов: «зачтено ровно один раз»
// проверяется структурно, а не по комбинации флагов.
const (
	StatusPending  = "pending"  // Ждёт решения модерации
	StatusApproved = "approved" // Одобрено, ждёт зачёта при регистрации
	StatusRejected = "rejected" // Отклонено модерацией (терминальный)
	StatusConsumed = "consumed" // Зачтено в XP (терминальный)
)

// Action — действие, совершённое гостевой сессией до регистрации.
// Создаётся контент-сервисами при публикации гостевого контента,
// зачитывается ровно один раз реконсилиатором.
type Action struct {
	ID             int64          `db:"id"`
	GuestSessionID string         `db:"guest_session_id"`
	ActionType     string         `db:"action_type"` // Совпадает с источником XP ("post_created")
	ContentID      string         `db:"content_id"`
	ContentType    string         `db:"content_type"`
	Status         string         `db:"status"`
	Metadata       map[string]any `db:"metadata"`
	CreatedAt      time.Time      `db:"created_at"`
	ConsumedAt     *time.Time     `db:"consumed_at"`
}

// ReconcileResult — итог зачёта гостевой сессии при регистрации.
// Используется для одноразовой приветственной сводки новому пользователю.
type ReconcileResult struct {
	TotalXPGranted       int64  `json:"total_xp_granted"`
	AchievementsUnlocked int    `json:"achievements_unlocked"`
	FinalLevel           int    `json:"final_level"`
	LevelUp              bool   `json:"level_up"` // Уровень вырос хотя бы раз за весь зачёт
	LevelsGained         int    `json:"levels_gained"`
	ActionsProcessed     int    `json:"actions_processed"`
	Summary              string `json:"summary"` // Приветственная сводка на русском
}

// buildSummary собирает текст приветственной сводки.
func (r *ReconcileResult) buildSummary() string {
	if r.ActionsProcessed == 0 {
		return "Новых начислений за гостевую активность нет"
	}
	msg := fmt.Sprintf("Начислено %s за гостевую активность", common.FormatXP(r.TotalXPGranted))
	if r.LevelsGained > 0 {
		msg += fmt.Sprintf(", вы выросли на %d %s", r.LevelsGained, common.PluralizeLevels(r.LevelsGained))
	}
	if r.AchievementsUnlocked > 0 {
		msg += fmt.Sprintf(", открыто достижений: %d", r.AchievementsUnlocked)
	}
	return msg
}
