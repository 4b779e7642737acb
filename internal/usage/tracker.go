// Package usage is the system of record for local counters and their
// reconciliation with the remote authority. All mutations go through one
// Tracker, which serializes them and persists after every change, so
// counters survive restarts and concurrent callers queue instead of racing.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/notelens/assist-client/internal/store"
	"github.com/notelens/assist-client/internal/types"
)

// Store keys. One JSON document per key; single-key atomicity is all the
// store promises, so each document is written whole.
const (
	keyDay          = "usage.day"
	keyMonth        = "usage.month"
	keyFeatures     = "usage.features"
	keyHistory      = "usage.history"
	keySyncState    = "usage.sync"
	keySubscription = "usage.subscription"

	// keyLegacyProfile marks pre-existing local-only installations for the
	// one-time migration.
	keyLegacyProfile = "user.profile"
)

const (
	// historyMax bounds the archived-day ring.
	historyMax = 30
	// dayCallMax bounds the per-day call list kept when a day is archived.
	dayCallMax = 50
)

// LimitType selects which counter IsLimitExceeded inspects.
type LimitType string

const (
	LimitRequestsPerDay   LimitType = "requests_per_day"
	LimitRequestsPerMonth LimitType = "requests_per_month"
	LimitTokensPerDay     LimitType = "tokens_per_day"
	LimitTokensPerMonth   LimitType = "tokens_per_month"
)

// Tracker owns the local usage counters.
type Tracker struct {
	store store.Store
	now   func() time.Time
	log   zerolog.Logger

	mu sync.Mutex
}

// NewTracker builds a Tracker over the given store. now may be nil for
// wall-clock time.
func NewTracker(st store.Store, now func() time.Time, log zerolog.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: st, now: now, log: log}
}

func dayKey(t time.Time) string { return t.Format("2006-01-02") }

// state is the full mutable counter document set.
type state struct {
	Day      types.DayUsage
	Month    types.MonthUsage
	Features map[string]types.FeatureUsage
	History  []types.DayUsage
	Sync     types.SyncState
}

func (t *Tracker) load(ctx context.Context) (*state, error) {
	raw, err := t.store.Get(ctx, keyDay, keyMonth, keyFeatures, keyHistory, keySyncState)
	if err != nil {
		return nil, fmt.Errorf("usage: load counters: %w", err)
	}
	s := &state{Features: map[string]types.FeatureUsage{}}
	for key, dst := range map[string]any{
		keyDay:       &s.Day,
		keyMonth:     &s.Month,
		keyFeatures:  &s.Features,
		keyHistory:   &s.History,
		keySyncState: &s.Sync,
	} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			// A corrupt document resets that counter rather than wedging
			// every future call.
			t.log.Warn().Str("key", key).Err(err).Msg("usage: dropping corrupt counter document")
		}
	}
	return s, nil
}

func (t *Tracker) persist(ctx context.Context, s *state) error {
	pairs := make(map[string][]byte, 5)
	for key, src := range map[string]any{
		keyDay:       s.Day,
		keyMonth:     s.Month,
		keyFeatures:  s.Features,
		keyHistory:   s.History,
		keySyncState: s.Sync,
	} {
		v, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("usage: marshal %s: %w", key, err)
		}
		pairs[key] = v
	}
	if err := t.store.Set(ctx, pairs); err != nil {
		return fmt.Errorf("usage: persist counters: %w", err)
	}
	return nil
}

// rollover archives the outgoing day/month when the wall-clock key moved.
// Counters are never silently carried across a boundary.
func (t *Tracker) rollover(s *state, now time.Time) {
	today := dayKey(now)
	if s.Day.Date != "" && s.Day.Date != today {
		archived := s.Day
		if len(archived.Calls) > dayCallMax {
			archived.Calls = lo.Subset(archived.Calls, -dayCallMax, dayCallMax)
		}
		s.History = append(s.History, archived)
		if len(s.History) > historyMax {
			s.History = lo.Subset(s.History, -historyMax, historyMax)
		}
		s.Day = types.DayUsage{}
	}
	if s.Day.Date == "" {
		s.Day.Date = today
	}

	if s.Month.Year != 0 && (s.Month.Year != now.Year() || s.Month.Month != int(now.Month())) {
		s.Month = types.MonthUsage{}
	}
	if s.Month.Year == 0 {
		s.Month.Year = now.Year()
		s.Month.Month = int(now.Month())
	}

	// Feature-minute entries age out with the day history.
	cutoff := dayKey(now.AddDate(0, 0, -historyMax))
	for date := range s.Features {
		if date < cutoff {
			delete(s.Features, date)
		}
	}
}

// mutate runs fn against the freshly loaded state and persists the result as
// one read-modify-write unit.
func (t *Tracker) mutate(ctx context.Context, fn func(s *state, now time.Time)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return err
	}
	now := t.now()
	t.rollover(s, now)
	fn(s, now)
	return t.persist(ctx, s)
}

// TrackCall records one completed call.
func (t *Tracker) TrackCall(ctx context.Context, rec types.CallRecord) error {
	return t.mutate(ctx, func(s *state, now time.Time) {
		if rec.Time.IsZero() {
			rec.Time = now
		}
		s.Day.Requests++
		s.Day.Tokens += rec.Tokens.Total
		s.Day.Calls = append(s.Day.Calls, rec)
		s.Month.Requests++
		s.Month.Tokens += rec.Tokens.Total
	})
}

// TrackFeatureUsage adds minutes for a time-boxed feature on today's date.
func (t *Tracker) TrackFeatureUsage(ctx context.Context, feature string, minutes int) error {
	if minutes <= 0 {
		return nil
	}
	return t.mutate(ctx, func(s *state, now time.Time) {
		fu := s.Features[dayKey(now)]
		switch feature {
		case "recording":
			fu.RecordingMinutes += minutes
		case "translation":
			fu.TranslationMinutes += minutes
		default:
			t.log.Debug().Str("feature", feature).Msg("usage: unmetered feature, minutes ignored")
			return
		}
		s.Features[dayKey(now)] = fu
	})
}

// TodayUsage returns today's counters, observing rollover without mutating.
func (t *Tracker) TodayUsage(ctx context.Context) (types.DayUsage, error) {
	snap, err := t.Snapshot(ctx)
	return snap.Day, err
}

// MonthUsage returns this month's counters.
func (t *Tracker) MonthUsage(ctx context.Context) (types.MonthUsage, error) {
	snap, err := t.Snapshot(ctx)
	return snap.Month, err
}

// Snapshot returns the counters the admission controller should gate on.
// Stale day/month documents read as zero without being rewritten.
func (t *Tracker) Snapshot(ctx context.Context) (types.UsageSnapshot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return types.UsageSnapshot{}, err
	}
	now := t.now()
	t.rollover(s, now)
	return types.UsageSnapshot{
		Day:      s.Day,
		Month:    s.Month,
		Features: s.Features[dayKey(now)],
	}, nil
}

// FeatureUsageToday returns today's feature-minute counters.
func (t *Tracker) FeatureUsageToday(ctx context.Context) (types.FeatureUsage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return types.FeatureUsage{}, err
	}
	return s.Features[dayKey(t.now())], nil
}

// History returns the archived-day ring, oldest first.
func (t *Tracker) History(ctx context.Context) ([]types.DayUsage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.History, nil
}

// IsLimitExceeded reports whether the selected counter has reached limit.
// Equality counts as exceeded. A nil limit never trips.
func (t *Tracker) IsLimitExceeded(ctx context.Context, lt LimitType, limit *int) (bool, error) {
	if limit == nil {
		return false, nil
	}
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	var current int
	switch lt {
	case LimitRequestsPerDay:
		current = snap.Day.Requests
	case LimitRequestsPerMonth:
		current = snap.Month.Requests
	case LimitTokensPerDay:
		current = snap.Day.Tokens
	case LimitTokensPerMonth:
		current = snap.Month.Tokens
	default:
		return false, fmt.Errorf("usage: unknown limit type %q", lt)
	}
	return current >= *limit, nil
}

// FeatureMinutesExceeded reports whether today's minutes for a metered
// feature have reached limit. Equality counts as exceeded. A nil limit never
// trips.
func (t *Tracker) FeatureMinutesExceeded(ctx context.Context, feature string, limit *int) (bool, error) {
	if limit == nil {
		return false, nil
	}
	fu, err := t.FeatureUsageToday(ctx)
	if err != nil {
		return false, err
	}
	return fu.MinutesFor(feature) >= *limit, nil
}

// ------------------------------
// Subscription cache
// ------------------------------

// CachedSubscription returns the last subscription seen from the remote
// authority, defaulting to an active free tier.
func (t *Tracker) CachedSubscription(ctx context.Context) (types.Subscription, error) {
	raw, err := t.store.Get(ctx, keySubscription)
	if err != nil {
		return types.Subscription{}, fmt.Errorf("usage: load subscription: %w", err)
	}
	sub := types.Subscription{Tier: types.TierFree, Status: types.SubscriptionActive}
	if v, ok := raw[keySubscription]; ok {
		if err := json.Unmarshal(v, &sub); err != nil {
			t.log.Warn().Err(err).Msg("usage: dropping corrupt subscription cache")
			return types.Subscription{Tier: types.TierFree, Status: types.SubscriptionActive}, nil
		}
	}
	return sub, nil
}

// StoreSubscription overwrites the cached subscription. The remote authority
// wins unconditionally on entitlement fields.
func (t *Tracker) StoreSubscription(ctx context.Context, sub types.Subscription) error {
	v, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("usage: marshal subscription: %w", err)
	}
	if err := t.store.Set(ctx, map[string][]byte{keySubscription: v}); err != nil {
		return fmt.Errorf("usage: store subscription: %w", err)
	}
	return nil
}

// SyncState returns the persisted reconciliation bookkeeping.
func (t *Tracker) SyncState(ctx context.Context) (types.SyncState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, err := t.load(ctx)
	if err != nil {
		return types.SyncState{}, err
	}
	return s.Sync, nil
}
