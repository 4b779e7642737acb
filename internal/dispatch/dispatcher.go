// Package dispatch orchestrates one gateway call: admission check, credential
// acquisition, the remote call with a single refresh retry on credential
// expiry, response normalization, and fire-and-forget usage recording.
package dispatch

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/notelens/assist-client/internal/admission"
	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/credential"
	"github.com/notelens/assist-client/internal/remote"
	"github.com/notelens/assist-client/internal/stream"
	"github.com/notelens/assist-client/internal/types"
	"github.com/notelens/assist-client/internal/usage"
	"github.com/notelens/assist-client/internal/workqueue"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 2000

	// DefaultBufferedTimeout bounds a non-streaming call end to end.
	DefaultBufferedTimeout = 60 * time.Second
	// DefaultStreamingTimeout bounds a streaming call from dispatch to the
	// final frame.
	DefaultStreamingTimeout = 120 * time.Second

	// maxRetries is the credential-refresh budget: exactly one extra attempt.
	// The bound exists to prevent refresh loops when the remote authority is
	// permanently rejecting the credential.
	maxRetries = 1
)

// usageQueueKey serializes usage mutations with the syncer's jobs.
const usageQueueKey = "usage"

// Inference is the slice of the remote client the dispatcher needs.
type Inference interface {
	Chat(ctx context.Context, req types.ChatRequest, token string) (*types.CallResult, error)
	ChatStream(ctx context.Context, req types.ChatRequest, token string) (io.ReadCloser, error)
}

// Dispatcher is the single entry point used by all tiers.
type Dispatcher struct {
	inference Inference
	creds     credential.Provider
	adm       *admission.Controller
	tracker   *usage.Tracker
	queue     *workqueue.Queue
	log       zerolog.Logger

	bufferedTimeout  time.Duration
	streamingTimeout time.Duration
}

// Config carries the dispatcher's collaborators.
type Config struct {
	Inference        Inference
	Credentials      credential.Provider
	Admission        *admission.Controller
	Tracker          *usage.Tracker
	Queue            *workqueue.Queue
	Logger           zerolog.Logger
	BufferedTimeout  time.Duration
	StreamingTimeout time.Duration
}

// New builds a Dispatcher.
func New(cfg Config) *Dispatcher {
	if cfg.BufferedTimeout <= 0 {
		cfg.BufferedTimeout = DefaultBufferedTimeout
	}
	if cfg.StreamingTimeout <= 0 {
		cfg.StreamingTimeout = DefaultStreamingTimeout
	}
	return &Dispatcher{
		inference:        cfg.Inference,
		creds:            cfg.Credentials,
		adm:              cfg.Admission,
		tracker:          cfg.Tracker,
		queue:            cfg.Queue,
		log:              cfg.Logger,
		bufferedTimeout:  cfg.BufferedTimeout,
		streamingTimeout: cfg.StreamingTimeout,
	}
}

// Call runs the full pipeline for one request and returns the normalized
// result. Streaming requests deliver increments through env.OnChunk.
func (d *Dispatcher) Call(ctx context.Context, env types.RequestEnvelope) (*types.CallResult, error) {
	req, err := d.admit(ctx, env)
	if err != nil {
		return nil, err
	}

	budget := d.bufferedTimeout
	if env.Stream {
		budget = d.streamingTimeout
	}

	for attempt := 0; ; attempt++ {
		cred, err := d.acquire(ctx)
		if err != nil {
			return nil, &apierrors.AuthError{Cause: err}
		}

		callCtx, cancel := context.WithTimeout(ctx, budget)
		res, err := d.send(callCtx, *req, cred.Token, env)
		cancel()

		switch {
		case err == nil:
			d.recordUsage(env, res)
			return res, nil

		case errors.Is(err, remote.ErrUnauthorized):
			if attempt >= maxRetries {
				return nil, &apierrors.AuthError{Exhausted: true, Cause: err}
			}
			d.log.Debug().Msg("dispatch: credential rejected, refreshing once")
			d.creds.InvalidateCache()

		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, &apierrors.TimeoutError{Budget: budget, Streaming: env.Stream}

		default:
			return nil, err
		}
	}
}

// admit validates the envelope and runs admission control, returning the wire
// request on success. The remote endpoint is never contacted on denial.
func (d *Dispatcher) admit(ctx context.Context, env types.RequestEnvelope) (*types.ChatRequest, error) {
	if err := types.ValidateEnvelope(env); err != nil {
		return nil, err
	}

	sub, err := d.tracker.CachedSubscription(ctx)
	if err != nil {
		return nil, err
	}
	snap, err := d.tracker.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	decision := d.adm.Evaluate(env, sub, snap)
	if !decision.Allowed {
		return nil, &apierrors.AdmissionDeniedError{Decision: decision}
	}

	// Only the trailing model segment goes on the wire.
	_, model := types.SplitModelID(env.Model)

	temperature := defaultTemperature
	if env.Temperature != nil {
		temperature = *env.Temperature
	}
	maxTokens := defaultMaxTokens
	if env.MaxTokens != nil {
		maxTokens = *env.MaxTokens
	}

	return &types.ChatRequest{
		Model:    model,
		Messages: env.Messages,
		Options: types.ChatOptions{
			Temperature: temperature,
			MaxTokens:   maxTokens,
			Stream:      env.Stream,
		},
	}, nil
}

// acquire obtains a credential, trying non-interactive first and escalating
// to interactive only when the account is not linked.
func (d *Dispatcher) acquire(ctx context.Context) (credential.Credential, error) {
	cred, err := d.creds.Acquire(ctx, false)
	if err == nil {
		return cred, nil
	}
	if errors.Is(err, credential.ErrNotLinked) {
		return d.creds.Acquire(ctx, true)
	}
	return credential.Credential{}, err
}

func (d *Dispatcher) send(ctx context.Context, req types.ChatRequest, token string, env types.RequestEnvelope) (*types.CallResult, error) {
	if !env.Stream {
		return d.inference.Chat(ctx, req, token)
	}
	body, err := d.inference.ChatStream(ctx, req, token)
	if err != nil {
		return nil, err
	}
	return stream.Collect(ctx, body, env.OnChunk)
}

// recordUsage submits a fire-and-forget recording job. Accounting failures
// must never affect the caller's result, so errors stop at the queue's
// handler. The job carries a fresh context: caller cancellation after a
// verified success must not lose the record.
func (d *Dispatcher) recordUsage(env types.RequestEnvelope, res *types.CallResult) {
	rec := types.CallRecord{
		ID:     uuid.NewString(),
		Time:   time.Now(),
		Model:  res.FullModelID,
		Tokens: res.Tokens,
	}
	if rec.Model == "" {
		rec.Model = env.Model
	}
	job := workqueue.JobFunc(func(jobCtx context.Context) error {
		return d.tracker.TrackCall(jobCtx, rec)
	})
	if err := d.queue.Submit(context.Background(), usageQueueKey, job); err != nil {
		d.log.Warn().Err(err).Msg("dispatch: usage record dropped")
	}
}
