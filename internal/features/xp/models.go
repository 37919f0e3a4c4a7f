// Package xp реализует движок начисления опыта (XP): каталог источников,
// расчёт уровней, проверки политики и журнал начислений.
// models.go описывает структуры данных движка.
package xp

import "time"

// Источники начисления XP. Каталог строится из этих констант — см. catalog.go.
const (
	SourcePostCreated     = "post_created"     // Создан пост
	SourcePostWithPhoto   = "post_with_photo"  // Пост дополнен фотографией
	SourceMarkerCreated   = "marker_created"   // Создана метка на карте
	SourceRouteCreated    = "route_created"    // Создан маршрут
	SourceEventCreated    = "event_created"    // Создано событие
	SourceContentApproved = "content_approved" // Контент прошёл модерацию
)

// SourceConfig — правило начисления для одного источника XP.
// Статическая запись каталога: загружается один раз и никогда не меняется
// во время работы. Изменение правил = новый деплой.
type SourceConfig struct {
	ID                 string        // Идентификатор источника ("post_created")
	BaseAmount         int64         // Базовая сумма XP до множителей
	Category           string        // Категория для аналитики ("content", "moderation")
	RequiresModeration bool          // Требуется ли одобрение модерации
	Cooldown           time.Duration // Минимальный интервал между начислениями (0 = без кулдауна)
	DailyLimit         int           // Максимум начислений за скользящие 24 часа (0 = без лимита)
}

// AwardEvent — одна запись журнала начислений (append-only).
// Записи никогда не обновляются и не удаляются: журнал — аудиторский след
// и источник правды для totalXP.
//
// Инвариант: не больше одной записи на (user_id, source, content_id),
// когда content_id задан. Обеспечивается уникальным индексом в БД,
// а не только проверкой в коде.
type AwardEvent struct {
	ID          int64          `db:"id"`
	UserID      int64          `db:"user_id"`
	Source      string         `db:"source"`
	Amount      int64          `db:"amount"` // Итоговая сумма ПОСЛЕ множителей
	ContentID   string         `db:"content_id"`
	ContentType string         `db:"content_type"`
	Metadata    map[string]any `db:"metadata"`
	CreatedAt   time.Time      `db:"created_at"`
}

// UserLevelState — производное состояние уровня пользователя.
// Инварианты: 0 <= CurrentLevelXP < RequiredXP; TotalXP равен сумме
// всех начислений пользователя; Level и Rank — чистые функции от TotalXP.
type UserLevelState struct {
	UserID         int64     `db:"user_id"`
	TotalXP        int64     `db:"total_xp"`
	Level          int       `db:"level"`
	CurrentLevelXP int64     `db:"current_level_xp"` // XP внутри текущего уровня
	RequiredXP     int64     `db:"required_xp"`      // Сколько нужно для следующего уровня
	Rank           string    `db:"rank"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// Reason — типизированная причина отказа в начислении.
// Отказы политики — ожидаемые исходы, а не ошибки: обработчики и
// реконсилиатор ветвятся по причине без исключений.
type Reason string

const (
	ReasonInvalid       Reason = "invalid"        // Дефект вызова: нет userID/source, сумма <= 0
	ReasonNotModerated  Reason = "not_moderated"  // Контент не прошёл модерацию
	ReasonDuplicate     Reason = "duplicate"      // Начисление за этот контент уже было
	ReasonCooldown      Reason = "cooldown"       // Не прошёл кулдаун источника
	ReasonLimitExceeded Reason = "limit_exceeded" // Исчерпан дневной лимит источника
	ReasonError         Reason = "error"          // Инфраструктурная ошибка (только для API-ответов)
)

// AddXPParams — параметры запроса на начисление XP.
// Amount == 0 означает «взять базовую сумму из каталога».
type AddXPParams struct {
	UserID      int64          `json:"user_id"`
	Source      string         `json:"source"`
	Amount      int64          `json:"amount"`
	ContentID   string         `json:"content_id"`
	ContentType string         `json:"content_type"`
	Metadata    map[string]any `json:"metadata"`
}

// AwardResult — результат попытки начисления.
// При Success == false заполнена Reason, остальные поля нулевые.
type AwardResult struct {
	Success              bool   `json:"success"`
	Reason               Reason `json:"reason,omitempty"`
	AmountGranted        int64  `json:"amount_granted,omitempty"`
	NewLevel             int    `json:"new_level,omitempty"`
	LevelUp              bool   `json:"level_up,omitempty"`
	TotalXP              int64  `json:"total_xp,omitempty"`
	CurrentLevelXP       int64  `json:"current_level_xp,omitempty"`
	RequiredXP           int64  `json:"required_xp,omitempty"`
	AchievementsUnlocked int    `json:"achievements_unlocked,omitempty"`
}

// ApplyResult — результат атомарной записи в журнал.
// Duplicate == true означает, что уникальный индекс отклонил вставку:
// проигравший конкурентный писатель получает детерминированный дубликат,
// а не испорченную сумму.
type ApplyResult struct {
	Duplicate      bool
	NewLevel       int
	LevelUp        bool
	TotalXP        int64
	CurrentLevelXP int64
	RequiredXP     int64
}

// LeaderboardEntry — строка таблицы лидеров.
type LeaderboardEntry struct {
	UserID  int64  `json:"user_id"`
	TotalXP int64  `json:"total_xp"`
	Level   int    `json:"level"`
	Rank    string `json:"rank"`
}
