package xp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeHistory — история начислений для тестов стража.
type fakeHistory struct {
	hasAward   bool
	lastAward  *time.Time
	countSince int
}

func (f *fakeHistory) HasAward(_ context.Context, _ int64, _, _ string) (bool, error) {
	return f.hasAward, nil
}

func (f *fakeHistory) LastAwardAt(_ context.Context, _ int64, _ string) (*time.Time, error) {
	return f.lastAward, nil
}

func (f *fakeHistory) CountAwardsSince(_ context.Context, _ int64, _ string, _ time.Time) (int, error) {
	return f.countSince, nil
}

// fakeModeration — коллаборатор модерации для тестов.
type fakeModeration struct {
	approved bool
}

func (f *fakeModeration) IsApproved(_ context.Context, _, _ string) (bool, error) {
	return f.approved, nil
}

func testSourceConfig() SourceConfig {
	return SourceConfig{
		ID:                 SourcePostCreated,
		BaseAmount:         50,
		RequiresModeration: true,
		Cooldown:           60 * time.Second,
		DailyLimit:         3,
	}
}

func TestGuardInvalidParams(t *testing.T) {
	guard := NewGuard(&fakeHistory{}, &fakeModeration{approved: true})
	cfg := testSourceConfig()
	now := time.Now()

	tests := []struct {
		name   string
		params AddXPParams
		amount int64
	}{
		{"нет userID", AddXPParams{Source: SourcePostCreated}, 50},
		{"нет source", AddXPParams{UserID: 1}, 50},
		{"нулевая сумма", AddXPParams{UserID: 1, Source: SourcePostCreated}, 0},
		{"отрицательная сумма", AddXPParams{UserID: 1, Source: SourcePostCreated}, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := guard.Check(context.Background(), tt.params, cfg, tt.amount, now)
			require.NoError(t, err)
			assert.False(t, dec.Allowed)
			assert.Equal(t, ReasonInvalid, dec.Reason)
		})
	}
}

func TestGuardNotModerated(t *testing.T) {
	guard := NewGuard(&fakeHistory{}, &fakeModeration{approved: false})
	params := AddXPParams{UserID: 1, Source: SourcePostCreated, ContentID: "post-1"}

	dec, err := guard.Check(context.Background(), params, testSourceConfig(), 50, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ReasonNotModerated, dec.Reason)
}

func TestGuardModerationSkippedWithoutContent(t *testing.T) {
	// Без contentID проверка модерации не выполняется
	guard := NewGuard(&fakeHistory{}, &fakeModeration{approved: false})
	params := AddXPParams{UserID: 1, Source: SourcePostCreated}

	dec, err := guard.Check(context.Background(), params, testSourceConfig(), 50, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestGuardDuplicate(t *testing.T) {
	guard := NewGuard(&fakeHistory{hasAward: true}, &fakeModeration{approved: true})
	params := AddXPParams{UserID: 1, Source: SourcePostCreated, ContentID: "post-1"}

	dec, err := guard.Check(context.Background(), params, testSourceConfig(), 50, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicate, dec.Reason)
}

func TestGuardCooldown(t *testing.T) {
	now := time.Now()
	recent := now.Add(-30 * time.Second)
	old := now.Add(-61 * time.Second)

	params := AddXPParams{UserID: 1, Source: SourcePostCreated}

	// Прошло меньше кулдауна — отказ
	guard := NewGuard(&fakeHistory{lastAward: &recent}, &fakeModeration{approved: true})
	dec, err := guard.Check(context.Background(), params, testSourceConfig(), 50, now)
	require.NoError(t, err)
	assert.Equal(t, ReasonCooldown, dec.Reason)

	// Кулдаун прошёл — пропускаем
	guard = NewGuard(&fakeHistory{lastAward: &old}, &fakeModeration{approved: true})
	dec, err = guard.Check(context.Background(), params, testSourceConfig(), 50, now)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestGuardDailyLimit(t *testing.T) {
	params := AddXPParams{UserID: 1, Source: SourcePostCreated}

	// Лимит 3: два начисления — ещё можно
	guard := NewGuard(&fakeHistory{countSince: 2}, &fakeModeration{approved: true})
	dec, err := guard.Check(context.Background(), params, testSourceConfig(), 50, time.Now())
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// Три — уже нельзя
	guard = NewGuard(&fakeHistory{countSince: 3}, &fakeModeration{approved: true})
	dec, err = guard.Check(context.Background(), params, testSourceConfig(), 50, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ReasonLimitExceeded, dec.Reason)
}

func TestGuardCheckOrder(t *testing.T) {
	// Первая проваленная проверка решает: контент не одобрен И дубликат —
	// побеждает модерация (она раньше в порядке проверок)
	guard := NewGuard(&fakeHistory{hasAward: true, countSince: 100}, &fakeModeration{approved: false})
	params := AddXPParams{UserID: 1, Source: SourcePostCreated, ContentID: "post-1"}

	dec, err := guard.Check(context.Background(), params, testSourceConfig(), 50, time.Now())
	require.NoError(t, err)
	assert.Equal(t, ReasonNotModerated, dec.Reason)
}
