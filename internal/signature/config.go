package signature

import (
	"time"

	"game-portal/internal/common/errors"
)

// Header names shared between the portal and the admin panel.
const (
	// HeaderServiceKey carries the shared service key identifying the portal
	HeaderServiceKey = "X-Service-Key"
	// HeaderTimestamp carries the request timestamp in epoch milliseconds
	HeaderTimestamp = "X-Timestamp"
	// HeaderSignature carries the lowercase hex HMAC-SHA256 of the request
	HeaderSignature = "X-Signature"
)

// DefaultFreshnessWindow bounds |now - timestamp| for a signature to be
// accepted. It limits replay exposure to its duration; it does not prevent
// replay within it.
const DefaultFreshnessWindow = 5 * time.Minute

// Config holds the immutable signing configuration. It is constructed once
// at startup and injected into the Signer and Verifier; the secret is never
// read from the environment at call time and never logged.
type Config struct {
	// Secret is the shared service key. Required.
	Secret []byte

	// FreshnessWindow is the maximum tolerated |now - timestamp|.
	// Defaults to DefaultFreshnessWindow.
	FreshnessWindow time.Duration

	// Now returns the current time. Defaults to time.Now; tests inject a
	// fixed clock.
	Now func() time.Time
}

// SetDefaults applies default values to the configuration
func (c *Config) SetDefaults() {
	if c.FreshnessWindow <= 0 {
		c.FreshnessWindow = DefaultFreshnessWindow
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Secret) == 0 {
		return errors.ConfigError("service key is not configured")
	}
	return nil
}

// nowMillis returns the configured clock's time in epoch milliseconds
func (c *Config) nowMillis() int64 {
	return c.Now().UnixMilli()
}
