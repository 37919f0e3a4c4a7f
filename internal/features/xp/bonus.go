// Package xp — bonus.go выводит множители из метаданных контента.
// Одни и те же правила используются при живом начислении и при
// ретроактивном зачёте гостевых действий — иначе зачёт при регистрации
// дал бы другую сумму, чем живое начисление за то же действие.
package xp

// Бонусы за полноту контента. Складываются в единый bonusFactor.
const (
	bonusPhoto        = 0.2 // Есть фотография
	bonusDescription  = 0.1 // Описание от 100 символов
	bonusCompleteness = 0.2 // Заполнены все необязательные поля

	// Минимальная длина описания для бонуса
	minDescriptionLen = 100
)

// DeriveFactors извлекает параметры множителей из метаданных.
//
// Распознаваемые ключи:
//
//	"streak_days"    — дней подряд с активностью (число)
//	"quality_factor" — оценка качества 0..1 от модерации (число)
//	"has_photo"      — контент с фотографией (bool)
//	"description"    — текст описания (строка, бонус от 100 символов)
//	"is_complete"    — заполнены все необязательные поля (bool)
//
// Метаданные приходят из JSON, поэтому числа — float64.
// Незнакомые ключи игнорируются, отсутствующие дают нулевые факторы.
func DeriveFactors(metadata map[string]any) (streakDays int, qualityFactor, bonusFactor float64) {
	if metadata == nil {
		return 0, 0, 0
	}

	streakDays = toInt(metadata["streak_days"])
	qualityFactor = toFloat(metadata["quality_factor"])

	if toBool(metadata["has_photo"]) {
		bonusFactor += bonusPhoto
	}
	if desc, ok := metadata["description"].(string); ok && len([]rune(desc)) >= minDescriptionLen {
		bonusFactor += bonusDescription
	}
	if toBool(metadata["is_complete"]) {
		bonusFactor += bonusCompleteness
	}

	return streakDays, qualityFactor, bonusFactor
}

// toInt приводит значение из JSON-метаданных к int.
func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

// toFloat приводит значение из JSON-метаданных к float64.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// toBool приводит значение из JSON-метаданных к bool.
func toBool(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
