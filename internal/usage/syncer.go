package usage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/notelens/assist-client/internal/credential"
	"github.com/notelens/assist-client/internal/types"
	"github.com/notelens/assist-client/internal/workqueue"
)

// queueKey routes every counter mutation and sync push through one shard so
// writers serialize.
const queueKey = "usage"

// Pusher is the slice of the remote authority the syncer needs.
type Pusher interface {
	PushUsage(ctx context.Context, req types.UsageSyncRequest, token string) (*types.UsageSyncResponse, error)
}

// Syncer periodically pushes local aggregates to the remote authority and
// folds its answer back into local state. Sync failures are logged and
// swallowed; local-only operation is the degraded mode, not an error.
type Syncer struct {
	tracker  *Tracker
	pusher   Pusher
	creds    credential.Provider
	queue    *workqueue.Queue
	log      zerolog.Logger
	interval time.Duration
	maxAge   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// SyncerConfig sizes the background loop.
type SyncerConfig struct {
	// Interval between due-checks.
	Interval time.Duration
	// MaxAge is how stale lastSyncedAt may get before a push is due.
	MaxAge time.Duration
}

// NewSyncer wires the syncer. queue may be shared with the dispatcher's
// usage-recording jobs; both use the same key.
func NewSyncer(tracker *Tracker, pusher Pusher, creds credential.Provider, queue *workqueue.Queue, cfg SyncerConfig, log zerolog.Logger) *Syncer {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 15 * time.Minute
	}
	return &Syncer{
		tracker:  tracker,
		pusher:   pusher,
		creds:    creds,
		queue:    queue,
		log:      log,
		interval: cfg.Interval,
		maxAge:   cfg.MaxAge,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the background loop. It first runs the one-time migration of
// pre-existing local-only data, then ticks until Stop.
func (s *Syncer) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.submit(ctx, func(jobCtx context.Context) error {
			if err := s.migrateOnce(jobCtx); err != nil {
				s.log.Warn().Err(err).Msg("usage: migration attempt failed, will retry on next start")
			}
			return nil
		})

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.submit(ctx, func(jobCtx context.Context) error {
					s.syncIfDue(jobCtx)
					return nil
				})
			}
		}
	}()
}

// Stop terminates the background loop. Idempotent.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Syncer) submit(ctx context.Context, fn func(context.Context) error) {
	if err := s.queue.Submit(ctx, queueKey, workqueue.JobFunc(fn)); err != nil {
		s.log.Debug().Err(err).Msg("usage: sync job not enqueued")
	}
}

// needsSync reports whether lastSyncedAt is stale enough to warrant a push.
func (s *Syncer) needsSync(st types.SyncState) bool {
	return time.Since(st.LastSyncedAt) > s.maxAge
}

func (s *Syncer) syncIfDue(ctx context.Context) {
	st, err := s.tracker.SyncState(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("usage: cannot read sync state")
		return
	}
	if !s.needsSync(st) {
		return
	}
	if err := s.SyncNow(ctx); err != nil {
		// Degrade to local-only; never raised to callers.
		s.log.Warn().Err(err).Msg("usage: sync to remote failed")
	}
}

// SyncNow pushes the current aggregates and reconciles the response. Unlike
// the background path, errors are returned so explicit callers can see them.
func (s *Syncer) SyncNow(ctx context.Context) error {
	cred, err := s.creds.Acquire(ctx, false)
	if err != nil {
		return err
	}

	req, err := s.buildRequest(ctx)
	if err != nil {
		return err
	}

	resp, err := s.pusher.PushUsage(ctx, req, cred.Token)
	if err != nil {
		return err
	}

	if err := s.tracker.ApplyRemote(ctx, resp, time.Now()); err != nil {
		return err
	}
	if resp == nil {
		// Still advance lastSyncedAt on an empty but successful push.
		return s.tracker.mutate(ctx, func(st *state, now time.Time) {
			st.Sync.LastSyncedAt = now
		})
	}

	s.log.Debug().Msg("usage: synced to remote")
	return nil
}

func (s *Syncer) buildRequest(ctx context.Context) (types.UsageSyncRequest, error) {
	snap, err := s.tracker.Snapshot(ctx)
	if err != nil {
		return types.UsageSyncRequest{}, err
	}
	feat, err := s.tracker.FeatureUsageToday(ctx)
	if err != nil {
		return types.UsageSyncRequest{}, err
	}
	return types.UsageSyncRequest{
		Tokens:   types.UsageSyncTokens{Today: snap.Day.Tokens, Month: snap.Month.Tokens},
		Requests: types.UsageSyncRequests{Today: snap.Day.Requests, Month: snap.Month.Requests},
		Time:     types.UsageSyncMinutes{Recording: feat.RecordingMinutes, Translation: feat.TranslationMinutes},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}, nil
}
