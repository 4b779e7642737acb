// Package entitlement holds the per-tier quota and feature tables consulted
// by the admission controller. The built-in catalog can be overridden from a
// YAML file, useful when limits are rolled out server-side ahead of a client
// release.
package entitlement

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/notelens/assist-client/internal/types"
)

// Feature tags recognized by the gateway.
const (
	FeatureChat        = "chat"
	FeatureRecording   = "recording"
	FeatureTranslation = "translation"
)

// IsMetered reports whether the feature has a daily minute budget.
func IsMetered(feature string) bool {
	return feature == FeatureRecording || feature == FeatureTranslation
}

func intPtr(v int) *int { return &v }

// Catalog maps tiers to entitlements.
type Catalog struct {
	tiers map[types.Tier]types.Entitlement
}

// Default returns the built-in tier table.
func Default() *Catalog {
	return &Catalog{tiers: map[types.Tier]types.Entitlement{
		types.TierFree: {
			AllowedModels:        []string{"gpt-4o-mini", "claude-3-5-haiku"},
			Features:             []string{FeatureChat},
			TokensPerDay:         intPtr(10_000),
			TokensPerMonth:       intPtr(100_000),
			MaxTokensPerRequest:  intPtr(1_000),
			RequestsPerDay:       intPtr(10),
			RequestsPerMonth:     intPtr(200),
			FeatureMinutesPerDay: intPtr(0),
		},
		types.TierProfessional: {
			AllowedModels:        []string{"gpt-4o-mini", "gpt-4o", "claude-3-5-haiku", "claude-3-5-sonnet"},
			Features:             []string{FeatureChat, FeatureRecording},
			TokensPerDay:         intPtr(100_000),
			TokensPerMonth:       intPtr(1_000_000),
			MaxTokensPerRequest:  intPtr(4_000),
			RequestsPerDay:       intPtr(100),
			RequestsPerMonth:     intPtr(2_000),
			FeatureMinutesPerDay: intPtr(60),
		},
		types.TierPremium: {
			AllowedModels: []string{"*"},
			Features:      []string{FeatureChat, FeatureRecording, FeatureTranslation},
			// Premium is unmetered locally; the remote authority still meters.
		},
	}}
}

// Lookup returns the entitlement for tier, falling back to free for unknown
// tiers so a corrupt cached tier can never widen access.
func (c *Catalog) Lookup(tier types.Tier) types.Entitlement {
	if e, ok := c.tiers[tier]; ok {
		return e
	}
	return c.tiers[types.TierFree]
}

// MinTierForModel returns the lowest tier whose allowed-model set contains
// model, and whether any tier does.
func (c *Catalog) MinTierForModel(model string) (types.Tier, bool) {
	return c.minTier(func(e types.Entitlement) bool { return e.AllowsModel(model) })
}

// MinTierForFeature returns the lowest tier with the feature enabled.
func (c *Catalog) MinTierForFeature(feature string) (types.Tier, bool) {
	return c.minTier(func(e types.Entitlement) bool { return e.HasFeature(feature) })
}

func (c *Catalog) minTier(pred func(types.Entitlement) bool) (types.Tier, bool) {
	best := types.Tier("")
	found := false
	for tier, e := range c.tiers {
		if !pred(e) {
			continue
		}
		if !found || tier.Rank() < best.Rank() {
			best = tier
			found = true
		}
	}
	return best, found
}

// Override replaces the entitlement for a single tier.
func (c *Catalog) Override(tier types.Tier, e types.Entitlement) {
	c.tiers[tier] = e
}

// catalogFile is the YAML shape of an external catalog override.
type catalogFile struct {
	Tiers map[string]types.Entitlement `yaml:"tiers"`
}

// LoadFile reads a catalog from a YAML file. Tiers absent from the file keep
// their built-in entitlements.
func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("entitlement: read catalog: %w", err)
	}
	var cf catalogFile
	if err := yaml.Unmarshal(raw, &cf); err != nil {
		return nil, fmt.Errorf("entitlement: parse catalog: %w", err)
	}

	c := Default()
	for name, e := range cf.Tiers {
		tier := types.Tier(name)
		if tier.Rank() < 0 {
			return nil, fmt.Errorf("entitlement: unknown tier %q in catalog", name)
		}
		c.Override(tier, e)
	}
	return c, nil
}
