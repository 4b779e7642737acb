// Package remote talks to the backend: the inference endpoint (plain
// net/http, because streaming needs the raw body) and the usage-sync and
// subscription endpoints (resty).
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/types"
)

const chatPath = "/v1/chat"

// ErrUnauthorized signals that the remote rejected the credential. The
// dispatcher owns the refresh-and-retry policy; this package only detects it.
var ErrUnauthorized = errors.New("remote: unauthorized")

// Inference issues chat calls against the inference endpoint.
type Inference struct {
	http    *http.Client
	baseURL string
}

// NewInference builds an inference client. httpClient carries transport
// wrappers (debug logging) but no timeout; the dispatcher bounds each call
// with a context deadline instead.
func NewInference(httpClient *http.Client, baseURL string) *Inference {
	return &Inference{http: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

// Chat performs a buffered call and returns the normalized result.
func (c *Inference) Chat(ctx context.Context, req types.ChatRequest, token string) (*types.CallResult, error) {
	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body types.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("remote: decode chat response: %w", err)
	}

	return &types.CallResult{
		Content:     body.Content,
		ProviderID:  body.Provider,
		ModelID:     body.Model,
		FullModelID: types.JoinModelID(body.Provider, body.Model),
		Tokens:      body.Tokens,
		Streamed:    false,
	}, nil
}

// ChatStream performs a streaming call and hands back the undrained body.
// The caller owns closing it.
func (c *Inference) ChatStream(ctx context.Context, req types.ChatRequest, token string) (io.ReadCloser, error) {
	resp, err := c.send(ctx, req, token)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Inference) send(ctx context.Context, req types.ChatRequest, token string) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("remote: marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("remote: construct request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			// Deadline or cancellation; surface the context error so the
			// dispatcher can map it to its timeout budget.
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", apierrors.ErrNetworkUnavailable, err)
	}

	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	return nil, decodeRemoteError(resp)
}

// decodeRemoteError maps an upstream error body to the domain taxonomy.
func decodeRemoteError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return &apierrors.RemoteError{Code: "api_error", Message: fmt.Sprintf("status %d, unreadable body", resp.StatusCode), StatusCode: resp.StatusCode}
	}

	var body types.RemoteErrorBody
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		return &apierrors.RemoteError{
			Code:       "api_error",
			Message:    strings.TrimSpace(string(raw)),
			StatusCode: resp.StatusCode,
		}
	}

	return &apierrors.RemoteError{
		Code:       NormalizeCode(body.Error),
		Message:    body.Message,
		StatusCode: resp.StatusCode,
	}
}

// NormalizeCode collapses the upstream error vocabulary into the stable set
// callers are allowed to depend on.
func NormalizeCode(code string) string {
	switch code {
	case "model_not_available", "feature_not_available":
		return code
	case "limit_exceeded", "TOKEN_LIMIT_EXCEEDED", "REQUEST_LIMIT_EXCEEDED":
		return "limit_exceeded"
	default:
		return "api_error"
	}
}
