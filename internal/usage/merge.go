package usage

import (
	"context"
	"time"

	"github.com/notelens/assist-client/internal/types"
)

// monotonicMax keeps the larger of two counter values so usage is never
// undercounted after an offline period.
func monotonicMax(local, remote int) int {
	if remote > local {
		return remote
	}
	return local
}

// ApplyRemote reconciles the authority's aggregates into local state.
// Counter fields merge with monotonic max; tier/status fields are remote-wins
// because the authority is the source of truth for entitlement.
func (t *Tracker) ApplyRemote(ctx context.Context, resp *types.UsageSyncResponse, syncedAt time.Time) error {
	if resp == nil {
		return nil
	}
	if err := t.mutate(ctx, func(s *state, now time.Time) {
		if resp.Tokens != nil {
			s.Day.Tokens = monotonicMax(s.Day.Tokens, resp.Tokens.Today)
			s.Month.Tokens = monotonicMax(s.Month.Tokens, resp.Tokens.Month)
		}
		if resp.Requests != nil {
			s.Day.Requests = monotonicMax(s.Day.Requests, resp.Requests.Today)
			s.Month.Requests = monotonicMax(s.Month.Requests, resp.Requests.Month)
		}
		s.Sync.LastSyncedAt = syncedAt
	}); err != nil {
		return err
	}

	if resp.Tier != "" {
		sub := types.Subscription{Tier: resp.Tier, Status: resp.Status}
		if sub.Status == "" {
			sub.Status = types.SubscriptionActive
		}
		if err := t.StoreSubscription(ctx, sub); err != nil {
			return err
		}
	}
	return nil
}
