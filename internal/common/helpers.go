// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: русская плюрализация, форматирование чисел, работа с временем.
package common

import (
	"fmt"
	"math"
	"time"
)

// PluralizeXP возвращает правильную форму слова «очко» для числа n.
//
// Правила русского языка:
//   - n%10==1 И n%100!=11 → "очко" (1, 21, 31, 101, ...)
//   - n%10 в [2,3,4] И n%100 НЕ в [12,13,14] → "очка" (2, 3, 4, 22, 23, ...)
//   - Остальные случаи → "очков" (0, 5-20, 25-30, 100, ...)
//
// Примеры:
//
//	PluralizeXP(1)  → "очко"
//	PluralizeXP(3)  → "очка"
//	PluralizeXP(5)  → "очков"
//	PluralizeXP(11) → "очков"
//	PluralizeXP(21) → "очко"
func PluralizeXP(n int64) string {
	// Берём абсолютное значение для отрицательных чисел
	absN := int64(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	// Единственное число: 1, 21, 31, 101 (но НЕ 11, 111)
	if lastDigit == 1 && lastTwoDigits != 11 {
		return "очко"
	}

	// Малое множественное: 2-4, 22-24, 32-34 (но НЕ 12-14)
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "очка"
	}

	// Большое множественное: 0, 5-20, 25-30, 100, ...
	return "очков"
}

// FormatXP форматирует количество очков в читабельную строку.
// Пример: FormatXP(150) → "150 очков"
func FormatXP(amount int64) string {
	return fmt.Sprintf("%d %s", amount, PluralizeXP(amount))
}

// PluralizeLevels возвращает правильную форму слова «уровень» для числа n.
//
// Правила:
//   - 1, 21, 31 → "уровень"
//   - 2-4, 22-24 → "уровня"
//   - 5-20, 25-30 → "уровней"
func PluralizeLevels(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "уровень"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "уровня"
	}
	return "уровней"
}

// PluralizeDays возвращает правильную форму слова «день».
func PluralizeDays(n int) string {
	absN := int(math.Abs(float64(n)))
	lastDigit := absN % 10
	lastTwoDigits := absN % 100

	if lastDigit == 1 && lastTwoDigits != 11 {
		return "день"
	}
	if lastDigit >= 2 && lastDigit <= 4 && (lastTwoDigits < 12 || lastTwoDigits > 14) {
		return "дня"
	}
	return "дней"
}

// FormatDateTime форматирует время в формат "02.01.2006 15:04" (день.месяц.год часы:минуты).
// Используется для отображения дат начислений в логах и ответах API.
func FormatDateTime(t time.Time) string {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		// Если не удалось загрузить — используем UTC+3 вручную
		loc = time.FixedZone("MSK", 3*60*60)
	}
	return t.In(loc).Format("02.01.2006 15:04")
}
