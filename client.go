// Package assist is a client SDK for a tiered AI request gateway. Every
// call passes local admission control (subscription, model, feature and
// quota checks) before it is dispatched to the remote endpoint; usage
// counters are tracked locally and reconciled with the remote authority in
// the background.
package assist

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/notelens/assist-client/internal/admission"
	"github.com/notelens/assist-client/internal/credential"
	"github.com/notelens/assist-client/internal/dispatch"
	"github.com/notelens/assist-client/internal/entitlement"
	"github.com/notelens/assist-client/internal/remote"
	"github.com/notelens/assist-client/internal/store"
	"github.com/notelens/assist-client/internal/usage"
	"github.com/notelens/assist-client/internal/workqueue"
)

// usageQueueKey serializes all usage-state writes on one queue shard.
const usageQueueKey = "usage"

// Client is the SDK entry point. All methods are safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	store      Store
	tracker    *usage.Tracker
	queue      *workqueue.Queue
	syncer     *usage.Syncer
	dispatcher *dispatch.Dispatcher
	authority  *remote.Authority
	catalog    *entitlement.Catalog
	creds      CredentialProvider
	log        zerolog.Logger

	httpTimeout   time.Duration
	streamTimeout time.Duration
	syncInterval  time.Duration
	clock         func() time.Time
	featureGating bool
	debug         bool
	syncDisabled  bool

	closedOnce uint32
}

// New constructs a Client for the gateway at baseURL. Defaults come from
// ASSIST_* environment variables; options win over both.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("assist: baseURL must not be empty")
	}
	cfg, err := loadEnvConfig()
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:       baseURL,
		catalog:       entitlement.Default(),
		creds:         credential.Static{Token: cfg.Token},
		log:           zerolog.Nop(),
		httpTimeout:   cfg.HTTPTimeout,
		streamTimeout: cfg.StreamTimeout,
		syncInterval:  cfg.SyncInterval,
		clock:         time.Now,
	}
	if debugLoggingRequested() {
		c.debug = true
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("assist: %w", err)
		}
	}
	if c.store == nil {
		c.store = store.NewMemory()
	}

	transport := http.RoundTripper(http.DefaultTransport)
	if c.debug {
		transport = &debugTransport{base: transport}
	}
	c.http = &http.Client{Transport: transport}

	c.tracker = usage.NewTracker(c.store, c.clock, c.log)
	c.queue = workqueue.NewQueue(workqueue.Config{
		Shards:    cfg.QueueShards,
		QueueSize: cfg.QueueSize,
		ErrorHandler: func(err error) {
			c.log.Warn().Err(err).Msg("assist: usage job failed")
		},
	}, c.log)

	c.authority = remote.NewAuthority(baseURL)
	c.syncer = usage.NewSyncer(c.tracker, c.authority, c.creds, c.queue, usage.SyncerConfig{
		Interval: c.syncInterval,
		MaxAge:   cfg.SyncMaxAge,
	}, c.log)

	c.dispatcher = dispatch.New(dispatch.Config{
		Inference:        remote.NewInference(c.http, baseURL),
		Credentials:      c.creds,
		Admission:        admission.NewController(c.catalog, c.featureGating, c.log),
		Tracker:          c.tracker,
		Queue:            c.queue,
		Logger:           c.log,
		BufferedTimeout:  c.httpTimeout,
		StreamingTimeout: c.streamTimeout,
	})

	if !c.syncDisabled {
		c.syncer.Start(context.Background())
	}
	return c, nil
}

// Chat runs one call through admission, dispatch and usage accounting. With
// env.Stream set, chunks are delivered through env.OnChunk as they arrive
// and the returned result holds the assembled content.
func (c *Client) Chat(ctx context.Context, env RequestEnvelope) (*CallResult, error) {
	res, err := c.dispatcher.Call(ctx, env)
	observeCall(res, err)
	return res, err
}

// ChatStream opens a pull-style stream for the envelope. The caller drains
// events with Stream.Recv and must Close the stream when done early.
func (c *Client) ChatStream(ctx context.Context, env RequestEnvelope) (*Stream, error) {
	h, err := c.dispatcher.OpenStream(ctx, env)
	if err != nil {
		observeCall(nil, err)
		return nil, err
	}
	return &Stream{h: h}, nil
}

// TodayUsage returns the current day's aggregates, observing any pending
// day rollover.
func (c *Client) TodayUsage(ctx context.Context) (DayUsage, error) {
	return c.tracker.TodayUsage(ctx)
}

// MonthUsage returns the current month's aggregates.
func (c *Client) MonthUsage(ctx context.Context) (MonthUsage, error) {
	return c.tracker.MonthUsage(ctx)
}

// UsageHistory returns archived per-day aggregates, oldest first.
func (c *Client) UsageHistory(ctx context.Context) ([]DayUsage, error) {
	return c.tracker.History(ctx)
}

// TrackFeatureUsage adds wall-clock minutes to a metered feature.
func (c *Client) TrackFeatureUsage(ctx context.Context, feature string, minutes int) error {
	return c.tracker.TrackFeatureUsage(ctx, feature, minutes)
}

// FeatureMinutesExceeded reports whether today's minutes for the feature
// have reached the cached tier's daily budget. Hosts call this before
// starting a session for time-boxed features; per-request admission repeats
// the check inside Chat and ChatStream.
func (c *Client) FeatureMinutesExceeded(ctx context.Context, feature string) (bool, error) {
	ent, err := c.Entitlement(ctx)
	if err != nil {
		return false, err
	}
	if !entitlement.IsMetered(feature) || !ent.HasFeature(feature) {
		return false, nil
	}
	return c.tracker.FeatureMinutesExceeded(ctx, feature, ent.FeatureMinutesPerDay)
}

// Subscription returns the cached subscription without contacting the
// remote authority.
func (c *Client) Subscription(ctx context.Context) (Subscription, error) {
	return c.tracker.CachedSubscription(ctx)
}

// Entitlement returns the entitlement table for the cached subscription's
// tier.
func (c *Client) Entitlement(ctx context.Context) (Entitlement, error) {
	sub, err := c.tracker.CachedSubscription(ctx)
	if err != nil {
		return Entitlement{}, err
	}
	return c.catalog.Lookup(sub.Tier), nil
}

// RefreshSubscription fetches the subscription from the remote authority
// and caches it. The remote value wins over the local cache.
func (c *Client) RefreshSubscription(ctx context.Context) (Subscription, error) {
	cred, err := c.creds.Acquire(ctx, false)
	if err != nil {
		return Subscription{}, err
	}
	sub, err := c.authority.Subscription(ctx, cred.Token)
	if err != nil {
		return Subscription{}, err
	}
	if err := c.tracker.StoreSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// SyncNow pushes local usage to the remote authority immediately and
// reconciles the response into local state.
func (c *Client) SyncNow(ctx context.Context) error {
	return c.syncer.SyncNow(ctx)
}

// Flush blocks until all usage writes submitted so far have been applied.
func (c *Client) Flush(ctx context.Context) error {
	return c.queue.Barrier(ctx, usageQueueKey)
}

// Close stops the background syncer and the work queue, draining pending
// usage writes, then closes the store. Safe to call multiple times.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapUint32(&c.closedOnce, 0, 1) {
		return nil
	}
	c.syncer.Stop()
	c.queue.Stop()
	return c.store.Close()
}
