package stream

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/types"
)

func body(lines ...string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(strings.Join(lines, "\n") + "\n"))
}

func TestCollect_AccumulatesChunksInOrder(t *testing.T) {
	var chunks []string
	res, err := Collect(context.Background(), body(
		`data: {"type":"chunk","content":"ab"}`,
		``,
		`data: {"type":"chunk","content":"cd"}`,
		`data: {"type":"done","tokens":{"input":1,"output":1,"total":2},"model":"gpt-4o","provider":"openai"}`,
	), func(c string) { chunks = append(chunks, c) })
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if res.Content != "abcd" {
		t.Fatalf("content = %q, want abcd", res.Content)
	}
	if res.Tokens.Total != 2 {
		t.Fatalf("tokens.total = %d, want 2", res.Tokens.Total)
	}
	if len(chunks) != 2 || chunks[0] != "ab" || chunks[1] != "cd" {
		t.Fatalf("onChunk calls = %v, want [ab cd]", chunks)
	}
	if !res.Streamed {
		t.Fatal("result should be marked streamed")
	}
	if res.FullModelID != "openai/gpt-4o" {
		t.Fatalf("fullModelId = %q", res.FullModelID)
	}
}

func TestCollect_MalformedFrameSkipped(t *testing.T) {
	res, err := Collect(context.Background(), body(
		`data: {not json at all`,
		`data: {"type":"chunk","content":"ok"}`,
	), nil)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if res.Content != "ok" {
		t.Fatalf("content = %q, want ok", res.Content)
	}
}

func TestCollect_IgnoresUnprefixedLines(t *testing.T) {
	res, err := Collect(context.Background(), body(
		`: keep-alive`,
		`event: noise`,
		`data: {"type":"chunk","content":"x"}`,
	), nil)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if res.Content != "x" {
		t.Fatalf("content = %q, want x", res.Content)
	}
}

func TestCollect_ErrorFrameAborts(t *testing.T) {
	_, err := Collect(context.Background(), body(
		`data: {"type":"chunk","content":"partial"}`,
		`data: {"type":"error","error":"model overloaded"}`,
	), nil)
	if !apierrors.IsStreamError(err) {
		t.Fatalf("err = %v, want StreamError", err)
	}
	if !strings.Contains(err.Error(), "model overloaded") {
		t.Fatalf("error text lost: %v", err)
	}
}

func TestCollect_NaturalEOFWithoutDone(t *testing.T) {
	res, err := Collect(context.Background(), body(
		`data: {"type":"chunk","content":"tail"}`,
	), nil)
	if err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if res.Content != "tail" {
		t.Fatalf("content = %q", res.Content)
	}
	if res.Tokens.Total != 0 {
		t.Fatalf("tokens should stay zero without a done frame")
	}
}

func TestReader_PullStyle(t *testing.T) {
	r := NewReader(context.Background(), body(
		`data: {"type":"chunk","content":"a"}`,
		`data: {"type":"done","model":"m","provider":"p"}`,
	))
	defer func() { _ = r.Close() }()

	ev, err := r.Next()
	if err != nil || ev.Type != types.FrameChunk || ev.Content != "a" {
		t.Fatalf("first event = %+v, err = %v", ev, err)
	}
	ev, err = r.Next()
	if err != nil || ev.Type != types.FrameDone || ev.Model != "m" {
		t.Fatalf("second event = %+v, err = %v", ev, err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("after done err = %v, want EOF", err)
	}
}

func TestReader_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewReader(ctx, body(`data: {"type":"chunk","content":"never"}`))
	if _, err := r.Next(); err != context.Canceled {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error { c.closed = true; return nil }

func TestCollect_ReleasesBody(t *testing.T) {
	ct := &closeTracker{Reader: strings.NewReader(`data: {"type":"done"}` + "\n")}
	if _, err := Collect(context.Background(), ct, nil); err != nil {
		t.Fatalf("Collect error: %v", err)
	}
	if !ct.closed {
		t.Fatal("body was not released")
	}
}
