package assist

import (
	"github.com/notelens/assist-client/internal/credential"
	"github.com/notelens/assist-client/internal/store"
	"github.com/notelens/assist-client/internal/stream"
	"github.com/notelens/assist-client/internal/types"
)

// Aliases re-export the wire and domain types callers interact with, so the
// public surface stays a single import.

type (
	Tier              = types.Tier
	Subscription      = types.Subscription
	Entitlement       = types.Entitlement
	Message           = types.Message
	RequestEnvelope   = types.RequestEnvelope
	Tokens            = types.Tokens
	CallResult        = types.CallResult
	CallRecord        = types.CallRecord
	AdmissionDecision = types.AdmissionDecision
	DenyReason        = types.DenyReason
	DayUsage          = types.DayUsage
	MonthUsage        = types.MonthUsage
	FeatureUsage      = types.FeatureUsage
	UsageSnapshot     = types.UsageSnapshot

	// Event is a single decoded streaming frame.
	Event = stream.Event

	// Store is the opaque key-value persistence contract. The built-in
	// implementations are in-memory (default) and sqlite (WithSQLiteStore).
	Store = store.Store

	// CredentialProvider acquires bearer credentials from the identity
	// source and drops cached ones on demand.
	CredentialProvider = credential.Provider
	Credential         = credential.Credential

	// StaticCredential is a CredentialProvider backed by a fixed token.
	StaticCredential = credential.Static
)

const (
	TierFree         = types.TierFree
	TierProfessional = types.TierProfessional
	TierPremium      = types.TierPremium

	SubscriptionActive    = types.SubscriptionActive
	SubscriptionExpired   = types.SubscriptionExpired
	SubscriptionCancelled = types.SubscriptionCancelled

	RoleUser      = types.RoleUser
	RoleAssistant = types.RoleAssistant
	RoleSystem    = types.RoleSystem
)

// Denial reasons carried by AdmissionDecision.Reason.
const (
	ReasonSubscriptionExpired = types.ReasonSubscriptionExpired
	ReasonModelNotAvailable   = types.ReasonModelNotAvailable
	ReasonFeatureNotAvailable = types.ReasonFeatureNotAvailable
	ReasonFeatureMinutesLimit = types.ReasonFeatureMinutesLimit
	ReasonDailyRequestLimit   = types.ReasonDailyRequestLimit
	ReasonDailyTokenLimit     = types.ReasonDailyTokenLimit
	ReasonMaxTokensPerRequest = types.ReasonMaxTokensPerRequest
)

// Event types delivered by Stream.Recv.
const (
	EventChunk = types.FrameChunk
	EventDone  = types.FrameDone
)
