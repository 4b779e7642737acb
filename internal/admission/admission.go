// Package admission implements the pre-flight gate every request passes
// before the dispatcher contacts the remote service. Checks run in a fixed
// order and short-circuit on the first failure.
package admission

import (
	"github.com/rs/zerolog"

	"github.com/notelens/assist-client/internal/entitlement"
	"github.com/notelens/assist-client/internal/types"
)

// Controller evaluates requests against tier entitlements and local counters.
type Controller struct {
	catalog *entitlement.Catalog

	// featureGating toggles local feature-flag checks. When disabled the
	// remote authority owns feature gating and Evaluate reports ok for any
	// feature tag.
	featureGating bool

	log zerolog.Logger
}

// NewController builds a Controller over the given catalog.
func NewController(catalog *entitlement.Catalog, featureGating bool, log zerolog.Logger) *Controller {
	if catalog == nil {
		catalog = entitlement.Default()
	}
	return &Controller{catalog: catalog, featureGating: featureGating, log: log}
}

func allow() types.AdmissionDecision {
	return types.AdmissionDecision{Allowed: true, Reason: types.ReasonOK}
}

// Evaluate runs the admission checks for one request. The decision is
// immutable; UpgradeHint is advisory and never affects the outcome.
func (c *Controller) Evaluate(env types.RequestEnvelope, sub types.Subscription, snap types.UsageSnapshot) types.AdmissionDecision {
	ent := c.catalog.Lookup(sub.Tier)

	// 1. Paid tiers must have a live subscription.
	if sub.Tier != types.TierFree {
		if sub.Status == types.SubscriptionExpired || sub.Status == types.SubscriptionCancelled {
			return c.deny(types.AdmissionDecision{
				Reason: types.ReasonSubscriptionExpired,
			})
		}
	}

	// 2. Model allowlist ("*" means every model).
	if env.Model != "" && !ent.AllowsModel(env.Model) {
		required, _ := c.catalog.MinTierForModel(env.Model)
		return c.deny(types.AdmissionDecision{
			Reason:       types.ReasonModelNotAvailable,
			RequiredTier: required,
			UpgradeHint:  true,
		})
	}

	// 3. Feature flags, unless gating is deferred to the remote authority.
	if c.featureGating && env.Feature != "" && !ent.HasFeature(env.Feature) {
		required, _ := c.catalog.MinTierForFeature(env.Feature)
		return c.deny(types.AdmissionDecision{
			Reason:       types.ReasonFeatureNotAvailable,
			RequiredTier: required,
			UpgradeHint:  true,
		})
	}

	// 4. Daily minute budget for time-boxed features. Quota checks are always
	// on, independent of the feature-gating toggle, but only meter features
	// the tier holds; availability of the rest stays the remote authority's
	// call when gating is off.
	if entitlement.IsMetered(env.Feature) && ent.HasFeature(env.Feature) && ent.FeatureMinutesPerDay != nil {
		if minutes := snap.Features.MinutesFor(env.Feature); minutes >= *ent.FeatureMinutesPerDay {
			return c.deny(types.AdmissionDecision{
				Reason:      types.ReasonFeatureMinutesLimit,
				Current:     minutes,
				Limit:       *ent.FeatureMinutesPerDay,
				UpgradeHint: sub.Tier != types.TierPremium,
			})
		}
	}

	// 5. Daily request quota. Equality counts as exceeded: the counter holds
	// completed requests, so at the limit there is no room for one more.
	if ent.RequestsPerDay != nil && snap.Day.Requests >= *ent.RequestsPerDay {
		return c.deny(types.AdmissionDecision{
			Reason:      types.ReasonDailyRequestLimit,
			Current:     snap.Day.Requests,
			Limit:       *ent.RequestsPerDay,
			UpgradeHint: sub.Tier != types.TierPremium,
		})
	}

	// 6. Token pre-flight, only when the caller supplied an estimate.
	if env.EstimatedTokens > 0 {
		if ent.MaxTokensPerRequest != nil && env.EstimatedTokens > *ent.MaxTokensPerRequest {
			return c.deny(types.AdmissionDecision{
				Reason:      types.ReasonMaxTokensPerRequest,
				Current:     env.EstimatedTokens,
				Limit:       *ent.MaxTokensPerRequest,
				UpgradeHint: sub.Tier != types.TierPremium,
			})
		}
		if ent.TokensPerDay != nil && snap.Day.Tokens+env.EstimatedTokens > *ent.TokensPerDay {
			return c.deny(types.AdmissionDecision{
				Reason:      types.ReasonDailyTokenLimit,
				Current:     snap.Day.Tokens,
				Limit:       *ent.TokensPerDay,
				UpgradeHint: sub.Tier != types.TierPremium,
			})
		}
	}

	return allow()
}

func (c *Controller) deny(d types.AdmissionDecision) types.AdmissionDecision {
	d.Allowed = false
	c.log.Debug().
		Str("reason", string(d.Reason)).
		Int("current", d.Current).
		Int("limit", d.Limit).
		Msg("admission denied")
	return d
}
