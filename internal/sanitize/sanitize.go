// Package sanitize maps arbitrary upstream error strings to a small safe
// vocabulary before they reach the browser. The admin panel's raw error text
// is confined to operator logs; end users only ever see one of the messages
// enumerated here or the caller-supplied fallback.
package sanitize

import (
	"regexp"

	"game-portal/internal/common/logging"
)

// Safe user-facing messages. The full set of strings Sanitize can return is
// these plus the caller's fallback.
const (
	MsgUsernameTaken      = "Username is already taken"
	MsgAccountNotFound    = "Account not found"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgInvalidCredentials = "Invalid username or password"
	MsgServerConfig       = "Server configuration error"
)

// Rule pairs a case-insensitive pattern with its safe message
type Rule struct {
	Pattern *regexp.Regexp
	Message string
}

// rules is the ordered mapping table; first match wins. Keeping the mapping
// in one table instead of ad hoc string checks at call sites makes the full
// vocabulary testable.
var rules = []Rule{
	{regexp.MustCompile(`(?i)already exist`), MsgUsernameTaken},
	{regexp.MustCompile(`(?i)already taken`), MsgUsernameTaken},
	{regexp.MustCompile(`(?i)duplicate`), MsgUsernameTaken},
	{regexp.MustCompile(`(?i)not found|not exist|no such account`), MsgAccountNotFound},
	{regexp.MustCompile(`(?i)connection refused|no such host|server unavailable|service unavailable|timeout|deadline exceeded|circuit breaker`), MsgServiceUnavailable},
	{regexp.MustCompile(`(?i)invalid username|invalid password|invalid character|too short|too long`), MsgInvalidCredentials},
	{regexp.MustCompile(`(?i)unauthorized|forbidden|service key|signature`), MsgServerConfig},
}

// Sanitizer applies the rule table and records originals for the operator
type Sanitizer struct {
	rules  []Rule
	logger logging.Logger
}

// New creates a sanitizer with the default rule table
func New(logger logging.Logger) *Sanitizer {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Sanitizer{
		rules:  rules,
		logger: logger,
	}
}

// Sanitize returns the safe message for raw, or fallback when raw is empty
// or matches no rule. The raw string is logged for the operator and never
// returned.
func (s *Sanitizer) Sanitize(raw, fallback string) string {
	if raw == "" {
		return fallback
	}

	for _, rule := range s.rules {
		if rule.Pattern.MatchString(raw) {
			s.logger.Debug("Sanitized upstream error",
				logging.String("raw", raw),
				logging.String("mapped", rule.Message),
			)
			return rule.Message
		}
	}

	s.logger.Warn("Unmapped upstream error",
		logging.String("raw", raw),
	)
	return fallback
}
