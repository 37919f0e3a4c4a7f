// Package achievements реализует минимальный коллаборатор достижений.
// Движок XP дергает его после каждого успешного начисления; сбой оценки
// никогда не откатывает начисление.
// models.go описывает структуры каталога достижений.
package achievements

import "time"

// Виды условий достижения.
const (
	KindLevel       = "level"        // Достигнут уровень N
	KindTotalXP     = "total_xp"     // Накоплено N XP
	KindSourceCount = "source_count" // N начислений из источника Source
)

// Achievement — одна запись статического каталога достижений.
// Каталог, как и правила XP, — код, а не данные: меняется деплоем.
type Achievement struct {
	Code      string // Уникальный код ("first_post", "level_10")
	Title     string // Название для отображения
	Kind      string // Вид условия (см. константы)
	Threshold int64  // Порог срабатывания
	Source    string // Источник для KindSourceCount, иначе пусто
}

// Unlock — факт открытия достижения пользователем.
type Unlock struct {
	UserID     int64     `db:"user_id"`
	Code       string    `db:"code"`
	UnlockedAt time.Time `db:"unlocked_at"`
}

// UnlockedView — открытое достижение с названием из каталога (для API).
type UnlockedView struct {
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	UnlockedAt time.Time `json:"unlocked_at"`
}
