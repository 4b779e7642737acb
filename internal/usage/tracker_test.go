package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notelens/assist-client/internal/store"
	"github.com/notelens/assist-client/internal/types"
)

// fakeClock lets tests move the wall clock across day/month boundaries.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func newTestTracker(t *testing.T) (*Tracker, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	return NewTracker(store.NewMemory(), clock.Now, zerolog.Nop()), clock
}

func record(tokens int) types.CallRecord {
	return types.CallRecord{ID: "r", Model: "gpt-4o-mini", Tokens: types.Tokens{Total: tokens}}
}

func TestTrackCall_Accumulates(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.TrackCall(ctx, record(100)))
	require.NoError(t, tr.TrackCall(ctx, record(50)))

	day, err := tr.TodayUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, day.Requests)
	assert.Equal(t, 150, day.Tokens)
	assert.Equal(t, "2026-03-10", day.Date)
	assert.Len(t, day.Calls, 2)

	month, err := tr.MonthUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, month.Requests)
	assert.Equal(t, 150, month.Tokens)
}

func TestTrackCall_SurvivesRestart(t *testing.T) {
	st := store.NewMemory()
	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	ctx := context.Background()

	tr := NewTracker(st, clock.Now, zerolog.Nop())
	require.NoError(t, tr.TrackCall(ctx, record(10)))

	// New tracker over the same store sees the counters.
	tr2 := NewTracker(st, clock.Now, zerolog.Nop())
	day, err := tr2.TodayUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, day.Requests)
}

func TestDayRollover(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.TrackCall(ctx, record(100)))
	require.NoError(t, tr.TrackCall(ctx, record(200)))

	// Next day: counters reset to exactly the new record's values and the
	// prior day moves into history unchanged.
	clock.t = clock.t.Add(24 * time.Hour)
	require.NoError(t, tr.TrackCall(ctx, record(30)))

	day, err := tr.TodayUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-11", day.Date)
	assert.Equal(t, 1, day.Requests)
	assert.Equal(t, 30, day.Tokens)

	hist, err := tr.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, "2026-03-10", hist[0].Date)
	assert.Equal(t, 2, hist[0].Requests)
	assert.Equal(t, 300, hist[0].Tokens)
}

func TestDayRollover_TruncatesCallList(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < dayCallMax+20; i++ {
		rec := record(1)
		rec.ID = fmt.Sprintf("call-%d", i)
		require.NoError(t, tr.TrackCall(ctx, rec))
	}

	clock.t = clock.t.Add(24 * time.Hour)
	require.NoError(t, tr.TrackCall(ctx, record(1)))

	hist, err := tr.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	// Archive keeps the LAST 50 calls but the full totals.
	assert.Len(t, hist[0].Calls, dayCallMax)
	assert.Equal(t, "call-20", hist[0].Calls[0].ID)
	assert.Equal(t, dayCallMax+20, hist[0].Requests)
}

func TestHistoryRing_Bounded(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	for i := 0; i < historyMax+5; i++ {
		require.NoError(t, tr.TrackCall(ctx, record(1)))
		clock.t = clock.t.Add(24 * time.Hour)
	}
	require.NoError(t, tr.TrackCall(ctx, record(1)))

	hist, err := tr.History(ctx)
	require.NoError(t, err)
	assert.Len(t, hist, historyMax)
	// Oldest entries were evicted; the newest archived day is yesterday.
	assert.Equal(t, dayKey(clock.t.Add(-24*time.Hour)), hist[len(hist)-1].Date)
}

func TestMonthRollover(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.TrackCall(ctx, record(100)))

	clock.t = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, tr.TrackCall(ctx, record(10)))

	month, err := tr.MonthUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2026, month.Year)
	assert.Equal(t, 4, month.Month)
	assert.Equal(t, 1, month.Requests)
	assert.Equal(t, 10, month.Tokens)
}

func TestSnapshot_ObservesRolloverWithoutMutation(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.TrackCall(ctx, record(100)))
	clock.t = clock.t.Add(24 * time.Hour)

	snap, err := tr.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Day.Requests)
	assert.Equal(t, "2026-03-11", snap.Day.Date)
}

func TestIsLimitExceeded_Boundary(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	limit := 2

	for i := 0; i < 2; i++ {
		require.NoError(t, tr.TrackCall(ctx, record(1)))
	}

	// Equality counts as exceeded.
	exceeded, err := tr.IsLimitExceeded(ctx, LimitRequestsPerDay, &limit)
	require.NoError(t, err)
	assert.True(t, exceeded)

	higher := 3
	exceeded, err = tr.IsLimitExceeded(ctx, LimitRequestsPerDay, &higher)
	require.NoError(t, err)
	assert.False(t, exceeded)

	// Nil limit never trips.
	exceeded, err = tr.IsLimitExceeded(ctx, LimitRequestsPerDay, nil)
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestTrackFeatureUsage(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 5))
	require.NoError(t, tr.TrackFeatureUsage(ctx, "translation", 3))
	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 2))
	// Unknown features and non-positive minutes are ignored.
	require.NoError(t, tr.TrackFeatureUsage(ctx, "mystery", 9))
	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 0))

	fu, err := tr.FeatureUsageToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, fu.RecordingMinutes)
	assert.Equal(t, 3, fu.TranslationMinutes)
}

func TestFeatureMinutesExceeded_Boundary(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	limit := 60

	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 59))
	exceeded, err := tr.FeatureMinutesExceeded(ctx, "recording", &limit)
	require.NoError(t, err)
	assert.False(t, exceeded)

	// Equality counts as exceeded.
	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 1))
	exceeded, err = tr.FeatureMinutesExceeded(ctx, "recording", &limit)
	require.NoError(t, err)
	assert.True(t, exceeded)

	// Minutes are metered per feature.
	exceeded, err = tr.FeatureMinutesExceeded(ctx, "translation", &limit)
	require.NoError(t, err)
	assert.False(t, exceeded)

	// A nil limit never trips.
	exceeded, err = tr.FeatureMinutesExceeded(ctx, "recording", nil)
	require.NoError(t, err)
	assert.False(t, exceeded)
}

func TestSnapshot_CarriesTodayFeatureMinutes(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 12))

	snap, err := tr.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, snap.Features.RecordingMinutes)

	// A new day starts with a fresh minute budget.
	clock.t = clock.t.Add(24 * time.Hour)
	snap, err = tr.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Features.RecordingMinutes)
}

func TestRollover_PrunesStaleFeatureEntries(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	loadFeatures := func() map[string]types.FeatureUsage {
		t.Helper()
		raw, err := tr.store.Get(ctx, keyFeatures)
		require.NoError(t, err)
		var features map[string]types.FeatureUsage
		require.NoError(t, json.Unmarshal(raw[keyFeatures], &features))
		return features
	}

	firstDay := dayKey(clock.t)
	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 5))

	// Entries still inside the history window survive rollover.
	clock.t = clock.t.Add(24 * time.Hour)
	require.NoError(t, tr.TrackFeatureUsage(ctx, "translation", 3))
	assert.Contains(t, loadFeatures(), firstDay)

	// Jump past the history window; the earlier entries must age out.
	clock.t = clock.t.Add(time.Duration(historyMax+1) * 24 * time.Hour)
	require.NoError(t, tr.TrackFeatureUsage(ctx, "recording", 1))

	features := loadFeatures()
	assert.Len(t, features, 1)
	assert.Contains(t, features, dayKey(clock.t))
}

func TestCachedSubscription_Defaults(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	sub, err := tr.CachedSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TierFree, sub.Tier)
	assert.Equal(t, types.SubscriptionActive, sub.Status)

	require.NoError(t, tr.StoreSubscription(ctx, types.Subscription{Tier: types.TierPremium, Status: types.SubscriptionActive}))
	sub, err = tr.CachedSubscription(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.TierPremium, sub.Tier)
}

func TestLoad_CorruptDocumentResets(t *testing.T) {
	st := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, st.Set(ctx, map[string][]byte{keyDay: []byte("{broken")}))

	clock := &fakeClock{t: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
	tr := NewTracker(st, clock.Now, zerolog.Nop())

	day, err := tr.TodayUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, day.Requests)
}
