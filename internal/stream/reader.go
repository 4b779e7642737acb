// Package stream consumes the chunked response protocol of the inference
// endpoint: newline-delimited frames whose payload is a JSON object with a
// type discriminator (chunk, done, error). The reader tolerates transport
// fragmentation: lines without the frame prefix and payloads that fail to
// parse are skipped, never fatal. A terminal error frame aborts.
package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/types"
)

// framePrefix marks recognized frames; anything else on the wire is ignored.
const framePrefix = "data:"

// maxFrameBytes bounds one logical frame line.
const maxFrameBytes = 1 << 20

// Event is one decoded frame delivered to pull-style consumers.
type Event struct {
	Type     string
	Content  string
	Tokens   *types.Tokens
	Model    string
	Provider string
}

// Reader decodes frames from a response body in arrival order.
type Reader struct {
	ctx    context.Context
	body   io.ReadCloser
	sc     *bufio.Scanner
	closed bool
}

// NewReader wraps a response body. The caller must drain with Next or Collect;
// the body is closed when the stream terminates or Close is called.
func NewReader(ctx context.Context, body io.ReadCloser) *Reader {
	sc := bufio.NewScanner(body)
	sc.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	return &Reader{ctx: ctx, body: body, sc: sc}
}

// Next returns the next recognized frame. It returns io.EOF on natural
// end-of-data or after a done frame has been delivered, and a *StreamError
// when the stream carries a terminal error frame. The body is released before
// any terminal return.
func (r *Reader) Next() (Event, error) {
	if r.closed {
		return Event{}, io.EOF
	}
	for {
		if err := r.ctx.Err(); err != nil {
			r.release()
			return Event{}, err
		}
		if !r.sc.Scan() {
			err := r.sc.Err()
			r.release()
			if err != nil {
				return Event{}, apierrors.NewNetworkError("stream read", err)
			}
			return Event{}, io.EOF
		}

		line := strings.TrimSpace(r.sc.Text())
		if line == "" || !strings.HasPrefix(line, framePrefix) {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, framePrefix))
		if payload == "" {
			continue
		}

		var frame types.StreamFrame
		if err := json.Unmarshal([]byte(payload), &frame); err != nil {
			// One mangled frame must not abort the stream.
			continue
		}

		switch frame.Type {
		case types.FrameChunk:
			return Event{Type: types.FrameChunk, Content: frame.Content}, nil
		case types.FrameDone:
			ev := Event{
				Type:     types.FrameDone,
				Tokens:   frame.Tokens,
				Model:    frame.Model,
				Provider: frame.Provider,
			}
			return ev, nil
		case types.FrameError:
			r.release()
			return Event{}, &apierrors.StreamError{Message: frame.Error}
		default:
			continue
		}
	}
}

// Close releases the underlying body. Safe to call more than once.
func (r *Reader) Close() error {
	r.release()
	return nil
}

func (r *Reader) release() {
	if r.closed {
		return
	}
	r.closed = true
	_ = r.body.Close()
}

// Collect drains the reader, invoking onChunk synchronously for each chunk in
// arrival order, and returns the normalized result. Metadata from the done
// frame overrides any provisional values.
func Collect(ctx context.Context, body io.ReadCloser, onChunk func(string)) (*types.CallResult, error) {
	r := NewReader(ctx, body)
	defer func() { _ = r.Close() }()

	var content strings.Builder
	res := &types.CallResult{Streamed: true}

	for {
		ev, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch ev.Type {
		case types.FrameChunk:
			content.WriteString(ev.Content)
			if onChunk != nil {
				onChunk(ev.Content)
			}
		case types.FrameDone:
			if ev.Tokens != nil {
				res.Tokens = *ev.Tokens
			}
			if ev.Model != "" {
				res.ModelID = ev.Model
			}
			if ev.Provider != "" {
				res.ProviderID = ev.Provider
			}
		}
		if ev.Type == types.FrameDone {
			break
		}
	}

	res.Content = content.String()
	res.FullModelID = types.JoinModelID(res.ProviderID, res.ModelID)
	return res, nil
}
