package types

import (
	"fmt"
	"strings"
)

// ValidateEnvelope checks the parts of a request the gateway cannot default.
func ValidateEnvelope(env RequestEnvelope) error {
	if len(env.Messages) == 0 {
		return fmt.Errorf("%w: at least one message is required", ErrValidation)
	}
	for i, m := range env.Messages {
		switch m.Role {
		case RoleUser, RoleAssistant, RoleSystem:
		default:
			return fmt.Errorf("%w: message[%d] has unsupported role %q", ErrValidation, i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: message[%d] content is empty", ErrValidation, i)
		}
	}
	if env.EstimatedTokens < 0 {
		return fmt.Errorf("%w: estimatedTokens must not be negative", ErrValidation)
	}
	return nil
}

// SplitModelID separates an optionally compound "provider/model" id.
// Only the trailing model segment is sent to the remote service.
func SplitModelID(id string) (provider, model string) {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i], id[i+1:]
	}
	return "", id
}

// JoinModelID reconstructs the compound form when a provider is known.
func JoinModelID(provider, model string) string {
	if provider == "" {
		return model
	}
	return provider + "/" + model
}
