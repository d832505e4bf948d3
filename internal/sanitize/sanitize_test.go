package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeKnownPatterns(t *testing.T) {
	s := New(nil)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"duplicate username", "Username already exists", MsgUsernameTaken},
		{"duplicate case-insensitive", "ERROR: ALREADY EXISTS", MsgUsernameTaken},
		{"missing account", "account does not exist", MsgAccountNotFound},
		{"not found", "user not found in realm db", MsgAccountNotFound},
		{"refused", "dial tcp 10.0.0.5:8081: connection refused", MsgServiceUnavailable},
		{"timeout", "context deadline exceeded", MsgServiceUnavailable},
		{"breaker open", "circuit breaker is open", MsgServiceUnavailable},
		{"bad input", "invalid username: contains spaces", MsgInvalidCredentials},
		{"key rejected", "service key mismatch", MsgServerConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Sanitize(tt.raw, "Something went wrong"))
		})
	}
}

func TestSanitizeFallback(t *testing.T) {
	s := New(nil)

	// Absent raw error
	assert.Equal(t, "X", s.Sanitize("", "X"))

	// Never-seen internals must not leak through
	raw := "panic: runtime error at realmd.go:412 goroutine 7"
	got := s.Sanitize(raw, "X")
	assert.Equal(t, "X", got)
	assert.NotContains(t, got, "realmd")
}

func TestFirstMatchWins(t *testing.T) {
	s := New(nil)

	// Matches both the duplicate and not-found tables; duplicate is ordered
	// first
	assert.Equal(t, MsgUsernameTaken, s.Sanitize("already exists, not found", "X"))
}

func TestReturnedVocabularyIsEnumerable(t *testing.T) {
	s := New(nil)

	known := map[string]bool{
		MsgUsernameTaken:      true,
		MsgAccountNotFound:    true,
		MsgServiceUnavailable: true,
		MsgInvalidCredentials: true,
		MsgServerConfig:       true,
		"fallback":            true,
	}

	inputs := []string{
		"already exists", "not found", "connection refused", "invalid password",
		"unauthorized", "weird new failure mode", "", "stack trace: ...",
	}
	for _, raw := range inputs {
		got := s.Sanitize(raw, "fallback")
		assert.True(t, known[got], "unexpected message %q for input %q", got, raw)
	}
}
