package xp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredXP(t *testing.T) {
	// floor(100 * level^1.5)
	assert.Equal(t, int64(100), RequiredXP(1))
	assert.Equal(t, int64(282), RequiredXP(2))
	assert.Equal(t, int64(519), RequiredXP(3))
	assert.Equal(t, int64(3162), RequiredXP(10))

	// Некорректный уровень клэмпится к 1
	assert.Equal(t, int64(100), RequiredXP(0))
	assert.Equal(t, int64(100), RequiredXP(-5))
}

func TestRequiredXPMonotonic(t *testing.T) {
	prev := RequiredXP(1)
	for level := 2; level <= 200; level++ {
		cur := RequiredXP(level)
		require.GreaterOrEqual(t, cur, prev, "кривая должна монотонно не убывать (уровень %d)", level)
		prev = cur
	}
}

func TestLevelFromTotalXP(t *testing.T) {
	tests := []struct {
		totalXP   int64
		wantLevel int
		wantCur   int64
	}{
		{0, 1, 0},
		{1, 1, 1},
		{99, 1, 99},
		{100, 2, 0},   // Ровно порог первого уровня
		{125, 2, 25},  // Сценарий из приветственной сводки
		{381, 2, 281}, // 100 + 281, до третьего не хватает 1
		{382, 3, 0},   // 100 + 282
	}
	for _, tt := range tests {
		level, cur := LevelFromTotalXP(tt.totalXP)
		assert.Equal(t, tt.wantLevel, level, "totalXP=%d", tt.totalXP)
		assert.Equal(t, tt.wantCur, cur, "totalXP=%d", tt.totalXP)
	}
}

func TestLevelFromTotalXPInvariant(t *testing.T) {
	// 0 <= currentLevelXP < RequiredXP(level) для любого totalXP
	for totalXP := int64(0); totalXP <= 50000; totalXP += 137 {
		level, cur := LevelFromTotalXP(totalXP)
		require.GreaterOrEqual(t, cur, int64(0), "totalXP=%d", totalXP)
		require.Less(t, cur, RequiredXP(level), "totalXP=%d", totalXP)
	}
}

func TestLevelFromTotalXPNegative(t *testing.T) {
	level, cur := LevelFromTotalXP(-100)
	assert.Equal(t, 1, level)
	assert.Equal(t, int64(0), cur)
}

func TestLevelFromTotalXPClamp(t *testing.T) {
	// Аномально большой totalXP упирается в потолок, а не крутится вечно
	level, _ := LevelFromTotalXP(1 << 62)
	assert.Equal(t, MaxLevel, level)
}

func TestRankForLevel(t *testing.T) {
	tests := []struct {
		level int
		want  string
	}{
		{1, RankNovice},
		{5, RankNovice},
		{6, RankExplorer},
		{15, RankExplorer},
		{16, RankTraveler},
		{30, RankTraveler},
		{31, RankLegend},
		{49, RankLegend},
		{50, RankGeoblogger},
		{100, RankGeoblogger},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RankForLevel(tt.level), "level=%d", tt.level)
	}
}

func TestApplyMultipliers(t *testing.T) {
	// Без множителей сумма не меняется
	assert.Equal(t, int64(100), ApplyMultipliers(100, 0, 0, 0))

	// Стрик
	assert.Equal(t, int64(100), ApplyMultipliers(100, 6, 0, 0))
	assert.Equal(t, int64(125), ApplyMultipliers(100, 7, 0, 0))
	assert.Equal(t, int64(125), ApplyMultipliers(100, 29, 0, 0))
	assert.Equal(t, int64(150), ApplyMultipliers(100, 30, 0, 0))

	// Качество: x(1 + q*0.2)
	assert.Equal(t, int64(120), ApplyMultipliers(100, 0, 1.0, 0))

	// Бонус: x(1 + b)
	assert.Equal(t, int64(150), ApplyMultipliers(100, 0, 0, 0.5))
}

func TestApplyMultipliersOrderAndFloor(t *testing.T) {
	// Фиксированный порядок: стрик → качество → бонус, floor в конце.
	// 100 * 1.5 * 1.2 * 1.5 = 270
	assert.Equal(t, int64(270), ApplyMultipliers(100, 30, 1.0, 0.5))

	// 33 * 1.25 = 41.25 → floor → 41
	assert.Equal(t, int64(41), ApplyMultipliers(33, 7, 0, 0))
}
