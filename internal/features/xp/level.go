// Package xp — level.go содержит чистую математику уровней.
// Единственный авторитетный источник расчёта уровня в системе:
// любая клиентская копия формулы — только для отображения и
// никогда не влияет на решения политики.
package xp

import "math"

// MaxLevel — потолок поиска уровня. Защита от бесконечного цикла
// на аномально больших totalXP: превышение — осознанный клэмп,
// а не тихое усечение.
const MaxLevel = 1000

// Ранги по диапазонам уровней.
const (
	RankNovice     = "novice"     // Уровни 1-5
	RankExplorer   = "explorer"   // Уровни 6-15
	RankTraveler   = "traveler"   // Уровни 16-30
	RankLegend     = "legend"     // Уровни 31-49
	RankGeoblogger = "geoblogger" // Уровни 50+
)

// RequiredXP возвращает, сколько XP нужно набрать ВНУТРИ уровня level,
// чтобы перейти на следующий.
//
// Формула: floor(100 * level^1.5). Монотонно не убывает.
//
//	RequiredXP(1) = 100
//	RequiredXP(2) = 282
//	RequiredXP(3) = 519
//	RequiredXP(10) = 3162
func RequiredXP(level int) int64 {
	if level < 1 {
		level = 1
	}
	return int64(math.Floor(100 * math.Pow(float64(level), 1.5)))
}

// LevelFromTotalXP вычисляет уровень и прогресс внутри уровня по
// накопленной сумме XP.
//
// Алгоритм: накапливаем RequiredXP(1), RequiredXP(2), ... пока сумма
// не превысит totalXP; остаток — прогресс внутри текущего уровня.
//
// Инвариант: 0 <= currentLevelXP < RequiredXP(level) для любого totalXP >= 0
// (кроме клэмпа на MaxLevel, где прогресс может упереться в потолок).
func LevelFromTotalXP(totalXP int64) (level int, currentLevelXP int64) {
	if totalXP < 0 {
		totalXP = 0
	}

	level = 1
	remaining := totalXP
	for level < MaxLevel {
		need := RequiredXP(level)
		if remaining < need {
			break
		}
		remaining -= need
		level++
	}
	return level, remaining
}

// RankForLevel возвращает ранг для уровня. Тотальная детерминированная функция.
func RankForLevel(level int) string {
	switch {
	case level >= 50:
		return RankGeoblogger
	case level >= 31:
		return RankLegend
	case level >= 16:
		return RankTraveler
	case level >= 6:
		return RankExplorer
	default:
		return RankNovice
	}
}

// ApplyMultipliers применяет множители к базовой сумме XP.
// Порядок применения ФИКСИРОВАН для воспроизводимости:
//
//  1. Стрик:    x1.5 при streakDays >= 30, x1.25 при streakDays >= 7, иначе x1
//  2. Качество: x(1 + qualityFactor * 0.2)
//  3. Бонус:    x(1 + bonusFactor)
//
// Результат усекается вниз (floor) ПОСЛЕ всех множителей.
func ApplyMultipliers(base int64, streakDays int, qualityFactor, bonusFactor float64) int64 {
	result := float64(base)

	// 1. Множитель стрика
	switch {
	case streakDays >= 30:
		result *= 1.5
	case streakDays >= 7:
		result *= 1.25
	}

	// 2. Множитель качества
	result *= 1 + qualityFactor*0.2

	// 3. Бонусный множитель
	result *= 1 + bonusFactor

	return int64(math.Floor(result))
}
