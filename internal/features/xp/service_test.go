package xp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore — in-memory журнал начислений с семантикой репозитория:
// дедупликация по (user, source, content), пересчёт уровня из суммы.
type memStore struct {
	awards      map[int64][]memAward
	clock       func() time.Time
	hideHistory bool // имитация гонки: страж не видит прошлые начисления
	failApply   error
}

type memAward struct {
	source    string
	contentID string
	amount    int64
	at        time.Time
}

func newMemStore(clock func() time.Time) *memStore {
	return &memStore{awards: make(map[int64][]memAward), clock: clock}
}

func (m *memStore) HasAward(_ context.Context, userID int64, source, contentID string) (bool, error) {
	if m.hideHistory {
		return false, nil
	}
	for _, a := range m.awards[userID] {
		if a.source == source && a.contentID == contentID && a.contentID != "" {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) LastAwardAt(_ context.Context, userID int64, source string) (*time.Time, error) {
	if m.hideHistory {
		return nil, nil
	}
	var last *time.Time
	for i := range m.awards[userID] {
		a := m.awards[userID][i]
		if a.source == source && (last == nil || a.at.After(*last)) {
			last = &m.awards[userID][i].at
		}
	}
	return last, nil
}

func (m *memStore) CountAwardsSince(_ context.Context, userID int64, source string, since time.Time) (int, error) {
	if m.hideHistory {
		return 0, nil
	}
	n := 0
	for _, a := range m.awards[userID] {
		if a.source == source && !a.at.Before(since) {
			n++
		}
	}
	return n, nil
}

func (m *memStore) Apply(_ context.Context, userID int64, source string, amount int64, contentID, _ string, _ map[string]any) (*ApplyResult, error) {
	if m.failApply != nil {
		return nil, m.failApply
	}
	if contentID != "" {
		for _, a := range m.awards[userID] {
			if a.source == source && a.contentID == contentID {
				return &ApplyResult{Duplicate: true}, nil
			}
		}
	}
	var before int64
	for _, a := range m.awards[userID] {
		before += a.amount
	}
	m.awards[userID] = append(m.awards[userID], memAward{
		source: source, contentID: contentID, amount: amount, at: m.clock(),
	})
	total := before + amount
	oldLevel, _ := LevelFromTotalXP(before)
	level, cur := LevelFromTotalXP(total)
	return &ApplyResult{
		NewLevel:       level,
		LevelUp:        level > oldLevel,
		TotalXP:        total,
		CurrentLevelXP: cur,
		RequiredXP:     RequiredXP(level),
	}, nil
}

func (m *memStore) GetUserLevel(_ context.Context, userID int64) (*UserLevelState, error) {
	var total int64
	for _, a := range m.awards[userID] {
		total += a.amount
	}
	level, cur := LevelFromTotalXP(total)
	return &UserLevelState{
		UserID: userID, TotalXP: total,
		Level: level, CurrentLevelXP: cur, RequiredXP: RequiredXP(level),
		Rank: RankForLevel(level),
	}, nil
}

func (m *memStore) TopUsers(_ context.Context, _ int) ([]LeaderboardEntry, error) {
	return nil, nil
}

func (m *memStore) UserAwards(_ context.Context, userID int64, limit int) ([]*AwardEvent, error) {
	var out []*AwardEvent
	for i := len(m.awards[userID]) - 1; i >= 0 && len(out) < limit; i-- {
		a := m.awards[userID][i]
		out = append(out, &AwardEvent{
			UserID: userID, Source: a.source, Amount: a.amount,
			ContentID: a.contentID, CreatedAt: a.at,
		})
	}
	return out, nil
}

// fakeEvaluator — коллаборатор достижений для тестов фасада.
type fakeEvaluator struct {
	unlocked int
	err      error
	calls    int
}

func (f *fakeEvaluator) EvaluateAndUnlock(_ context.Context, _ int64, _ AwardEvent) (int, error) {
	f.calls++
	return f.unlocked, f.err
}

// testClock — управляемые часы для фасада и журнала.
type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(store *memStore, clock *testClock, opts ...func(*Service)) *Service {
	svc := NewService(NewCatalog(), store, &fakeModeration{approved: true}, nil, nil)
	svc.now = clock.Now
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func TestAddXPBaseAmount(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	res, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourcePostCreated, ContentID: "post-1", ContentType: "post",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, int64(50), res.AmountGranted)
	assert.Equal(t, int64(50), res.TotalXP)
	assert.Equal(t, 1, res.NewLevel)
	assert.Equal(t, int64(50), res.CurrentLevelXP)
	assert.Equal(t, int64(100), res.RequiredXP)
	assert.False(t, res.LevelUp)
}

func TestAddXPExplicitAmountOverridesBase(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	res, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceContentApproved, Amount: 7,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, int64(7), res.AmountGranted)
}

func TestAddXPUnknownSource(t *testing.T) {
	clock := &testClock{t: time.Now()}
	svc := newTestService(newMemStore(clock.Now), clock)

	res, err := svc.AddXP(context.Background(), AddXPParams{UserID: 1, Source: "karma_given"})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ReasonInvalid, res.Reason)
}

func TestAddXPDuplicateIdempotent(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	params := AddXPParams{UserID: 1, Source: SourcePostCreated, ContentID: "post-1", ContentType: "post"}

	first, err := svc.AddXP(context.Background(), params)
	require.NoError(t, err)
	require.True(t, first.Success)

	clock.Advance(2 * time.Minute)
	second, err := svc.AddXP(context.Background(), params)
	require.NoError(t, err)
	assert.False(t, second.Success)
	assert.Equal(t, ReasonDuplicate, second.Reason)

	// Сумма не изменилась
	state, err := svc.GetUserLevel(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(50), state.TotalXP)
}

func TestAddXPDuplicateLostRace(t *testing.T) {
	// Страж не видит первое начисление (гонка проверка/запись) —
	// дубликат всё равно детерминированно ловится на записи
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	params := AddXPParams{UserID: 1, Source: SourcePostCreated, ContentID: "post-1", ContentType: "post"}
	_, err := svc.AddXP(context.Background(), params)
	require.NoError(t, err)

	store.hideHistory = true
	res, err := svc.AddXP(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, ReasonDuplicate, res.Reason)
}

func TestAddXPCooldown(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	first, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourcePostCreated, ContentID: "post-1", ContentType: "post",
	})
	require.NoError(t, err)
	require.True(t, first.Success)

	// Кулдаун post_created — 60 секунд
	clock.Advance(30 * time.Second)
	blocked, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourcePostCreated, ContentID: "post-2", ContentType: "post",
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonCooldown, blocked.Reason)

	clock.Advance(31 * time.Second)
	allowed, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourcePostCreated, ContentID: "post-2", ContentType: "post",
	})
	require.NoError(t, err)
	assert.True(t, allowed.Success)
}

func TestAddXPDailyLimitRollingWindow(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	// route_created: кулдаун 300с, лимит 5/сутки
	for i := 0; i < 5; i++ {
		clock.Advance(6 * time.Minute)
		res, err := svc.AddXP(context.Background(), AddXPParams{
			UserID: 1, Source: SourceRouteCreated,
		})
		require.NoError(t, err)
		require.True(t, res.Success, "начисление %d", i+1)
	}

	clock.Advance(6 * time.Minute)
	blocked, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceRouteCreated,
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonLimitExceeded, blocked.Reason)

	// Окно скользящее, не календарное: через 24 часа от первого
	// начисления лимит освобождается
	clock.Advance(24 * time.Hour)
	allowed, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceRouteCreated,
	})
	require.NoError(t, err)
	assert.True(t, allowed.Success)
}

func TestAddXPNotModerated(t *testing.T) {
	clock := &testClock{t: time.Now()}
	store := newMemStore(clock.Now)
	svc := NewService(NewCatalog(), store, &fakeModeration{approved: false}, nil, nil)
	svc.now = clock.Now

	res, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourcePostCreated, ContentID: "post-1", ContentType: "post",
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonNotModerated, res.Reason)
	assert.Empty(t, store.awards[1])
}

func TestAddXPLevelUp(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	// 95 XP — до второго уровня не хватает 5
	_, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceContentApproved, Amount: 95,
	})
	require.NoError(t, err)

	res, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceContentApproved, Amount: 10,
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.True(t, res.LevelUp)
	assert.Equal(t, 2, res.NewLevel)
	assert.Equal(t, int64(105), res.TotalXP)
	assert.Equal(t, int64(5), res.CurrentLevelXP)
}

func TestAddXPAccumulationAcrossSources(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	sources := []struct {
		source string
		amount int64
	}{
		{SourcePostCreated, 50},
		{SourcePostWithPhoto, 25},
		{SourceContentApproved, 20},
		{SourceMarkerCreated, 30},
	}
	var last *AwardResult
	for _, s := range sources {
		clock.Advance(time.Minute)
		res, err := svc.AddXP(context.Background(), AddXPParams{UserID: 1, Source: s.source})
		require.NoError(t, err)
		require.True(t, res.Success)
		assert.Equal(t, s.amount, res.AmountGranted)
		last = res
	}

	// 50+25+20+30 = 125: уровень 2, внутри уровня 25
	assert.Equal(t, int64(125), last.TotalXP)
	assert.Equal(t, 2, last.NewLevel)
	assert.Equal(t, int64(25), last.CurrentLevelXP)
}

func TestAddXPMultipliersFromMetadata(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	svc := newTestService(store, clock)

	// 50 * 1.25 (серия 7 дней) = 62.5; * 1.2 (фото) = 75
	res, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourcePostCreated,
		Metadata: map[string]any{
			"streak_days": float64(7),
			"has_photo":   true,
		},
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, int64(75), res.AmountGranted)
}

func TestAddXPAchievementFailureDoesNotRollBack(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	eval := &fakeEvaluator{err: errors.New("achievements down")}
	svc := NewService(NewCatalog(), store, &fakeModeration{approved: true}, eval, nil)
	svc.now = clock.Now

	res, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceContentApproved,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 0, res.AchievementsUnlocked)
	assert.Equal(t, 1, eval.calls)
	assert.Len(t, store.awards[1], 1)
}

func TestAddXPAchievementsUnlockedCount(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	eval := &fakeEvaluator{unlocked: 2}
	svc := NewService(NewCatalog(), store, &fakeModeration{approved: true}, eval, nil)
	svc.now = clock.Now

	res, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceContentApproved,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.AchievementsUnlocked)
}

func TestAddXPStoreError(t *testing.T) {
	clock := &testClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	store := newMemStore(clock.Now)
	store.failApply = errors.New("connection refused")
	svc := newTestService(store, clock)

	_, err := svc.AddXP(context.Background(), AddXPParams{
		UserID: 1, Source: SourceContentApproved,
	})
	require.Error(t, err)
}
