package usage

import (
	"context"
	"time"

	"github.com/notelens/assist-client/internal/types"
)

// migrateOnce pushes pre-existing local-only data to the remote authority
// exactly once per installation. Completion is recorded in SyncState so the
// step is idempotent across restarts; a failed attempt leaves the flag unset
// and is retried on the next start.
func (s *Syncer) migrateOnce(ctx context.Context) error {
	st, err := s.tracker.SyncState(ctx)
	if err != nil {
		return err
	}
	if st.MigrationCompleted {
		return nil
	}

	needed, err := s.migrationNeeded(ctx)
	if err != nil {
		return err
	}
	if !needed {
		// Fresh installation; nothing to push, just mark done.
		return s.completeMigration(ctx)
	}

	if err := s.SyncNow(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("usage: local-only data migrated to remote authority")
	return s.completeMigration(ctx)
}

// migrationNeeded detects pre-existing local-only data: a legacy local user
// profile, a non-free cached tier, or nonzero local counters.
func (s *Syncer) migrationNeeded(ctx context.Context) (bool, error) {
	raw, err := s.tracker.store.Get(ctx, keyLegacyProfile)
	if err != nil {
		return false, err
	}
	if _, ok := raw[keyLegacyProfile]; ok {
		return true, nil
	}

	sub, err := s.tracker.CachedSubscription(ctx)
	if err != nil {
		return false, err
	}
	if sub.Tier != types.TierFree {
		return true, nil
	}

	snap, err := s.tracker.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	return snap.Day.Requests > 0 || snap.Day.Tokens > 0 ||
		snap.Month.Requests > 0 || snap.Month.Tokens > 0, nil
}

func (s *Syncer) completeMigration(ctx context.Context) error {
	return s.tracker.mutate(ctx, func(st *state, now time.Time) {
		st.Sync.MigrationCompleted = true
	})
}
