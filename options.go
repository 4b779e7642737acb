package assist

// Functional options applied by New. Options may fail; New returns the first
// option error instead of panicking.

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/notelens/assist-client/internal/entitlement"
	"github.com/notelens/assist-client/internal/store"
)

// Option configures a Client during construction in New.
type Option func(*Client) error

// WithHTTPTimeout bounds a buffered call end to end, including connection
// setup and reading the response. Must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.httpTimeout = d
		return nil
	}
}

// WithStreamTimeout bounds a streaming call from dispatch to the final
// frame. Must be greater than zero.
func WithStreamTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("stream timeout must be > 0")
		}
		c.streamTimeout = d
		return nil
	}
}

// WithCredentialProvider replaces the default static-token provider.
func WithCredentialProvider(p CredentialProvider) Option {
	return func(c *Client) error {
		if p == nil {
			return fmt.Errorf("credential provider must not be nil")
		}
		c.creds = p
		return nil
	}
}

// WithStore replaces the default in-memory store with a caller-supplied one.
// The client takes ownership and closes it on Close.
func WithStore(s Store) Option {
	return func(c *Client) error {
		if s == nil {
			return fmt.Errorf("store must not be nil")
		}
		c.store = s
		return nil
	}
}

// WithSQLiteStore persists usage state in a sqlite database at path.
func WithSQLiteStore(path string) Option {
	return func(c *Client) error {
		s, err := store.OpenSQLite(path)
		if err != nil {
			return err
		}
		c.store = s
		return nil
	}
}

// WithEntitlementsFile overrides the built-in tier catalog from a YAML file.
func WithEntitlementsFile(path string) Option {
	return func(c *Client) error {
		cat, err := entitlement.LoadFile(path)
		if err != nil {
			return err
		}
		c.catalog = cat
		return nil
	}
}

// WithEntitlementOverride replaces the entitlement table for one tier.
func WithEntitlementOverride(tier Tier, e Entitlement) Option {
	return func(c *Client) error {
		c.catalog.Override(tier, e)
		return nil
	}
}

// WithFeatureGating enables local feature-availability checks during
// admission. Disabled by default: feature availability is then the remote
// authority's decision alone.
func WithFeatureGating(enabled bool) Option {
	return func(c *Client) error {
		c.featureGating = enabled
		return nil
	}
}

// WithClock replaces the wall clock used for day and month boundaries.
func WithClock(now func() time.Time) Option {
	return func(c *Client) error {
		if now == nil {
			return fmt.Errorf("clock must not be nil")
		}
		c.clock = now
		return nil
	}
}

// WithLogger sets the logger used by all client subsystems.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = log
		return nil
	}
}

// WithDebugLogging wraps the transport so each request and response is
// dumped to the log. Not for production use.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		c.debug = enabled
		return nil
	}
}

// WithoutSyncer disables the background usage sync loop. SyncNow still
// works for explicit pushes.
func WithoutSyncer() Option {
	return func(c *Client) error {
		c.syncDisabled = true
		return nil
	}
}

// WithSyncInterval tunes how often the background loop checks whether a
// push is due.
func WithSyncInterval(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("sync interval must be > 0")
		}
		c.syncInterval = d
		return nil
	}
}
