package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/remote"
	"github.com/notelens/assist-client/internal/stream"
	"github.com/notelens/assist-client/internal/types"
)

// StreamHandle is the pull-style counterpart to Call with env.Stream: the
// consumer drains events with Recv and reads the normalized result once the
// stream has terminated. Usage is recorded exactly once, on clean termination.
type StreamHandle struct {
	d      *Dispatcher
	env    types.RequestEnvelope
	reader *stream.Reader
	cancel context.CancelFunc

	content  strings.Builder
	res      types.CallResult
	done     bool
	recorded bool
}

// OpenStream runs admission and credential acquisition (with the same
// one-retry budget as Call) and hands back an undrained stream.
func (d *Dispatcher) OpenStream(ctx context.Context, env types.RequestEnvelope) (*StreamHandle, error) {
	env.Stream = true
	req, err := d.admit(ctx, env)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		cred, err := d.acquire(ctx)
		if err != nil {
			return nil, &apierrors.AuthError{Cause: err}
		}

		callCtx, cancel := context.WithTimeout(ctx, d.streamingTimeout)
		body, err := d.inference.ChatStream(callCtx, *req, cred.Token)
		if err == nil {
			return &StreamHandle{
				d:      d,
				env:    env,
				reader: stream.NewReader(callCtx, body),
				cancel: cancel,
				res:    types.CallResult{Streamed: true},
			}, nil
		}
		cancel()

		switch {
		case errors.Is(err, remote.ErrUnauthorized):
			if attempt >= maxRetries {
				return nil, &apierrors.AuthError{Exhausted: true, Cause: err}
			}
			d.creds.InvalidateCache()

		case errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			return nil, &apierrors.TimeoutError{Budget: d.streamingTimeout, Streaming: true}

		default:
			return nil, err
		}
	}
}

// Recv returns the next event. io.EOF marks clean termination; after EOF the
// result is available from Result.
func (h *StreamHandle) Recv() (stream.Event, error) {
	if h.done {
		return stream.Event{}, io.EOF
	}

	ev, err := h.reader.Next()
	if err != nil {
		if err == io.EOF {
			h.finish()
			return stream.Event{}, io.EOF
		}
		h.abort()
		if errors.Is(err, context.DeadlineExceeded) {
			return stream.Event{}, &apierrors.TimeoutError{Budget: h.d.streamingTimeout, Streaming: true}
		}
		return stream.Event{}, err
	}

	switch ev.Type {
	case types.FrameChunk:
		h.content.WriteString(ev.Content)
	case types.FrameDone:
		if ev.Tokens != nil {
			h.res.Tokens = *ev.Tokens
		}
		h.res.ModelID = ev.Model
		h.res.ProviderID = ev.Provider
		h.finish()
	}
	return ev, nil
}

// Result returns the normalized result. Valid only after Recv returned a
// done event or io.EOF; nil before termination and after an aborted stream.
func (h *StreamHandle) Result() *types.CallResult {
	if !h.done {
		return nil
	}
	res := h.res
	return &res
}

// Close aborts an undrained stream and releases its resources. Closing a
// cleanly terminated handle is a no-op.
func (h *StreamHandle) Close() error {
	if !h.done {
		h.abort()
	}
	return nil
}

// finish finalizes a cleanly terminated stream and records usage once.
func (h *StreamHandle) finish() {
	if h.done {
		return
	}
	h.done = true
	h.res.Content = h.content.String()
	h.res.FullModelID = types.JoinModelID(h.res.ProviderID, h.res.ModelID)
	_ = h.reader.Close()
	h.cancel()
	if !h.recorded {
		h.recorded = true
		h.d.recordUsage(h.env, &h.res)
	}
}

// abort releases resources without producing a result or recording usage.
func (h *StreamHandle) abort() {
	h.done = true
	_ = h.reader.Close()
	h.cancel()
}
