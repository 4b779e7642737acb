package remote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/notelens/assist-client/internal/apierrors"
	"github.com/notelens/assist-client/internal/types"
)

const (
	syncPath         = "/v1/usage/sync"
	subscriptionPath = "/v1/subscription"

	syncTimeout = 30 * time.Second
)

// Authority talks to the usage-sync and entitlement endpoints of the remote
// authority. Both are plain JSON request/response calls, so resty fits.
type Authority struct {
	client *resty.Client
}

// NewAuthority builds a client for the remote authority at baseURL.
func NewAuthority(baseURL string) *Authority {
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(syncTimeout)
	return &Authority{client: c}
}

// PushUsage submits local aggregates. The endpoint is idempotent on the
// remote side; the response may carry the authority's own aggregates for
// reconciliation.
func (a *Authority) PushUsage(ctx context.Context, req types.UsageSyncRequest, token string) (*types.UsageSyncResponse, error) {
	var out types.UsageSyncResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(&req).
		SetResult(&out).
		Post(syncPath)
	if err != nil {
		return nil, apierrors.NewNetworkError("push usage", err)
	}
	if resp.IsError() {
		// Classification steers the retry policy: 4xx pushes are rejected
		// for good, retrying them wastes the backoff budget.
		return nil, apierrors.ClassifyHTTP(resp.StatusCode(),
			fmt.Errorf("remote: push usage: status %d", resp.StatusCode()))
	}
	return &out, nil
}

// Subscription polls the entitlement endpoint for the current tier/status.
func (a *Authority) Subscription(ctx context.Context, token string) (types.Subscription, error) {
	var out types.Subscription
	resp, err := a.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&out).
		Get(subscriptionPath)
	if err != nil {
		return types.Subscription{}, apierrors.NewNetworkError("subscription", err)
	}
	if resp.IsError() {
		return types.Subscription{}, apierrors.ClassifyHTTP(resp.StatusCode(),
			fmt.Errorf("remote: subscription: status %d", resp.StatusCode()))
	}
	if out.Tier == "" {
		out.Tier = types.TierFree
	}
	return out, nil
}
