package types

import "time"

// ------------------------------
// Tiers and entitlements
// ------------------------------

// Tier is a named entitlement level.
type Tier string

const (
	TierFree         Tier = "free"
	TierProfessional Tier = "professional"
	TierPremium      Tier = "premium"
)

// Rank orders tiers for minimum-tier computations. Unknown tiers rank below free.
func (t Tier) Rank() int {
	switch t {
	case TierFree:
		return 0
	case TierProfessional:
		return 1
	case TierPremium:
		return 2
	default:
		return -1
	}
}

// Subscription is the cached answer from the entitlement endpoint.
// Status values mirror the remote vocabulary: "active", "expired", "cancelled".
type Subscription struct {
	Tier   Tier   `json:"tier"`
	Status string `json:"status"`
}

const (
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

// Entitlement describes what a tier may do. Nil numeric limits mean unlimited.
type Entitlement struct {
	AllowedModels        []string `json:"allowedModels" yaml:"allowed_models"`
	Features             []string `json:"features" yaml:"features"`
	TokensPerDay         *int     `json:"tokensPerDay" yaml:"tokens_per_day"`
	TokensPerMonth       *int     `json:"tokensPerMonth" yaml:"tokens_per_month"`
	MaxTokensPerRequest  *int     `json:"maxTokensPerRequest" yaml:"max_tokens_per_request"`
	RequestsPerDay       *int     `json:"requestsPerDay" yaml:"requests_per_day"`
	RequestsPerMonth     *int     `json:"requestsPerMonth" yaml:"requests_per_month"`
	FeatureMinutesPerDay *int     `json:"featureMinutesPerDay" yaml:"feature_minutes_per_day"`
}

// AllowsModel reports whether the model id is in the allowed set.
// A set containing "*" allows every model.
func (e Entitlement) AllowsModel(model string) bool {
	for _, m := range e.AllowedModels {
		if m == "*" || m == model {
			return true
		}
	}
	return false
}

// HasFeature reports whether the feature tag is enabled for this tier.
func (e Entitlement) HasFeature(feature string) bool {
	for _, f := range e.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// ------------------------------
// Request / result
// ------------------------------

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// RequestEnvelope is the immutable description of one gateway call.
// OnChunk, when set together with Stream, receives incremental content
// synchronously in arrival order.
type RequestEnvelope struct {
	Messages        []Message
	Model           string
	Temperature     *float64
	MaxTokens       *int
	Stream          bool
	Feature         string
	EstimatedTokens int
	OnChunk         func(content string)
}

// Tokens is the normalized token accounting of one call.
type Tokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// CallResult is the only shape callers see, regardless of tier or transport.
type CallResult struct {
	Content     string `json:"content"`
	ProviderID  string `json:"providerId"`
	ModelID     string `json:"modelId"`
	FullModelID string `json:"fullModelId"`
	Tokens      Tokens `json:"tokens"`
	Streamed    bool   `json:"streamed"`
}

// ------------------------------
// Admission
// ------------------------------

// DenyReason is the machine-readable outcome of an admission check.
type DenyReason string

const (
	ReasonOK                    DenyReason = "ok"
	ReasonSubscriptionExpired   DenyReason = "subscription_expired"
	ReasonModelNotAvailable     DenyReason = "model_not_available"
	ReasonFeatureNotAvailable   DenyReason = "feature_not_available"
	ReasonDailyRequestLimit     DenyReason = "daily_request_limit_exceeded"
	ReasonDailyTokenLimit       DenyReason = "daily_token_limit_exceeded"
	ReasonMaxTokensPerRequest   DenyReason = "max_tokens_per_request_exceeded"
	ReasonFeatureMinutesLimit   DenyReason = "feature_minutes_limit_exceeded"
)

// AdmissionDecision is never mutated after creation.
type AdmissionDecision struct {
	Allowed      bool       `json:"allowed"`
	Reason       DenyReason `json:"reason"`
	Current      int        `json:"current,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	RequiredTier Tier       `json:"requiredTier,omitempty"`
	UpgradeHint  bool       `json:"upgradeHint,omitempty"`
}

// ------------------------------
// Usage counters
// ------------------------------

// CallRecord is one completed call as remembered by the usage tracker.
type CallRecord struct {
	ID     string    `json:"id"`
	Time   time.Time `json:"time"`
	Model  string    `json:"model"`
	Tokens Tokens    `json:"tokens"`
}

// DayUsage aggregates one wall-clock day. Date is formatted as 2006-01-02.
type DayUsage struct {
	Date     string       `json:"date"`
	Requests int          `json:"requests"`
	Tokens   int          `json:"tokens"`
	Calls    []CallRecord `json:"calls,omitempty"`
}

// MonthUsage aggregates one calendar month.
type MonthUsage struct {
	Year     int `json:"year"`
	Month    int `json:"month"`
	Requests int `json:"requests"`
	Tokens   int `json:"tokens"`
}

// FeatureUsage holds per-day minute counters for time-boxed features.
type FeatureUsage struct {
	RecordingMinutes   int `json:"recordingMinutes"`
	TranslationMinutes int `json:"translationMinutes"`
}

// MinutesFor returns the counter for a metered feature, zero for features
// without a minute meter.
func (f FeatureUsage) MinutesFor(feature string) int {
	switch feature {
	case "recording":
		return f.RecordingMinutes
	case "translation":
		return f.TranslationMinutes
	default:
		return 0
	}
}

// UsageSnapshot is a read-only view handed to the admission controller.
// Features carries today's minute counters.
type UsageSnapshot struct {
	Day      DayUsage
	Month    MonthUsage
	Features FeatureUsage
}

// SyncState tracks reconciliation with the remote authority.
type SyncState struct {
	LastSyncedAt       time.Time `json:"lastSyncedAt"`
	MigrationCompleted bool      `json:"migrationCompleted"`
}
