package achievements

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geoblog.ru/xp-engine/internal/features/xp"
)

// fakeStore — прогресс пользователя и открытые достижения в памяти.
type fakeStore struct {
	level       int
	totalXP     int64
	sourceCount int64
	unlocked    map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{unlocked: make(map[string]bool)}
}

func (f *fakeStore) TryUnlock(_ context.Context, _ int64, code string) (bool, error) {
	if f.unlocked[code] {
		return false, nil
	}
	f.unlocked[code] = true
	return true, nil
}

func (f *fakeStore) UserProgress(_ context.Context, _ int64, _ string) (int, int64, int64, error) {
	return f.level, f.totalXP, f.sourceCount, nil
}

func (f *fakeStore) ListUnlocked(_ context.Context, userID int64) ([]Unlock, error) {
	var out []Unlock
	for code := range f.unlocked {
		out = append(out, Unlock{UserID: userID, Code: code})
	}
	return out, nil
}

func postEvent() xp.AwardEvent {
	return xp.AwardEvent{UserID: 1, Source: "post_created", Amount: 50}
}

func TestFirstPostUnlocked(t *testing.T) {
	store := newFakeStore()
	store.level = 1
	store.totalXP = 50
	store.sourceCount = 1
	svc := NewService(store)

	n, err := svc.EvaluateAndUnlock(context.Background(), 1, postEvent())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.unlocked["first_post"])
}

func TestUnlockIdempotent(t *testing.T) {
	store := newFakeStore()
	store.level = 1
	store.totalXP = 50
	store.sourceCount = 1
	svc := NewService(store)

	n, err := svc.EvaluateAndUnlock(context.Background(), 1, postEvent())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	// Повторная оценка не открывает достижение заново
	n, err = svc.EvaluateAndUnlock(context.Background(), 1, postEvent())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestMultipleUnlocksInOneEvaluation(t *testing.T) {
	// Одно начисление может открыть сразу несколько достижений
	store := newFakeStore()
	store.level = 5
	store.totalXP = 1200
	store.sourceCount = 10
	svc := NewService(store)

	n, err := svc.EvaluateAndUnlock(context.Background(), 1, postEvent())
	require.NoError(t, err)
	assert.Equal(t, 4, n) // first_post, author_10, level_5, xp_1000
	assert.True(t, store.unlocked["author_10"])
	assert.True(t, store.unlocked["level_5"])
	assert.True(t, store.unlocked["xp_1000"])
}

func TestSourceCountOnlyForEventSource(t *testing.T) {
	// Счётчик источника текущего события не открывает достижения
	// других источников, даже при совпадении порога
	store := newFakeStore()
	store.level = 1
	store.totalXP = 30
	store.sourceCount = 1
	svc := NewService(store)

	n, err := svc.EvaluateAndUnlock(context.Background(), 1, xp.AwardEvent{
		UserID: 1, Source: "marker_created", Amount: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, store.unlocked["first_marker"])
	assert.False(t, store.unlocked["first_post"])
	assert.False(t, store.unlocked["first_route"])
}

func TestListUnlockedTitles(t *testing.T) {
	store := newFakeStore()
	store.unlocked["first_post"] = true
	svc := NewService(store)

	views, err := svc.ListUnlocked(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "first_post", views[0].Code)
	assert.Equal(t, "Первый пост", views[0].Title)
}

func TestThresholdNotReached(t *testing.T) {
	store := newFakeStore()
	store.level = 4
	store.totalXP = 900
	store.sourceCount = 9
	svc := NewService(store)

	n, err := svc.EvaluateAndUnlock(context.Background(), 1, postEvent())
	require.NoError(t, err)
	// Только first_post: пороги author_10, level_5 и xp_1000 не достигнуты
	assert.Equal(t, 1, n)
	assert.False(t, store.unlocked["author_10"])
	assert.False(t, store.unlocked["level_5"])
	assert.False(t, store.unlocked["xp_1000"])
}
