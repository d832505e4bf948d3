package signature

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strconv"

	"game-portal/internal/common/logging"
)

// Reason explains why verification rejected an envelope. Reasons are for
// operator-side logging only; callers collapse every reason into a single
// undifferentiated unauthorized response.
type Reason int

const (
	// ReasonNone means verification succeeded
	ReasonNone Reason = iota
	// ReasonBadKey means the presented service key does not match
	ReasonBadKey
	// ReasonExpired means the timestamp fell outside the freshness window
	ReasonExpired
	// ReasonBadSignature means the recomputed MAC did not match
	ReasonBadSignature
	// ReasonMalformed means the timestamp or signature could not be parsed
	ReasonMalformed
)

// String returns the string representation of a rejection reason
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonBadKey:
		return "bad_key"
	case ReasonExpired:
		return "expired"
	case ReasonBadSignature:
		return "bad_signature"
	case ReasonMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Outcome is the result of verifying an envelope. Mismatches are normal
// outcomes, never errors or panics.
type Outcome struct {
	Valid  bool
	Reason Reason
}

func valid() Outcome {
	return Outcome{Valid: true, Reason: ReasonNone}
}

func invalid(reason Reason) Outcome {
	return Outcome{Valid: false, Reason: reason}
}

// Verifier validates inbound signed envelopes. The portal produces envelopes
// the admin panel verifies; both sides share this contract, so the reference
// verifier lives next to the signer and the tests prove them against each
// other.
type Verifier struct {
	config Config
	logger logging.Logger
}

// NewVerifier creates a new signature verifier. An absent secret is a
// startup configuration failure for the operator, never a per-request
// verification outcome.
func NewVerifier(config Config, logger logging.Logger) (*Verifier, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Verifier{
		config: config,
		logger: logger,
	}, nil
}

// Verify checks an inbound envelope in fixed order: service key, freshness,
// signature. Each check short-circuits. The raw received body bytes are
// verified directly, never a re-serialized copy.
func (v *Verifier) Verify(method, path string, rawBody []byte, timestamp, sig, presentedKey string) Outcome {
	// Step 1: constant-time service key comparison. Length mismatch is
	// inequality; subtle.ConstantTimeCompare handles equal-length input
	// without data-dependent timing.
	presented := []byte(presentedKey)
	if len(presented) != len(v.config.Secret) ||
		subtle.ConstantTimeCompare(presented, v.config.Secret) != 1 {
		return v.reject(method, path, ReasonBadKey)
	}

	// Step 2: freshness window
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return v.reject(method, path, ReasonMalformed)
	}
	skew := v.config.nowMillis() - ts
	if skew < 0 {
		skew = -skew
	}
	if skew > v.config.FreshnessWindow.Milliseconds() {
		return v.reject(method, path, ReasonExpired)
	}

	// Step 3: signature over the raw body bytes
	presentedMAC, err := hex.DecodeString(sig)
	if err != nil {
		return v.reject(method, path, ReasonMalformed)
	}
	expected := computeMAC(v.config.Secret, method, path, timestamp, rawBody)
	expectedMAC, _ := hex.DecodeString(expected)
	if !hmac.Equal(presentedMAC, expectedMAC) {
		return v.reject(method, path, ReasonBadSignature)
	}

	return valid()
}

// VerifyRequest verifies an inbound HTTP request using the envelope headers
// and the already-read body bytes.
func (v *Verifier) VerifyRequest(r *http.Request, body []byte) Outcome {
	return v.Verify(
		r.Method,
		r.URL.Path,
		body,
		r.Header.Get(HeaderTimestamp),
		r.Header.Get(HeaderSignature),
		r.Header.Get(HeaderServiceKey),
	)
}

// reject logs the rejection for the operator and returns the outcome. The
// reason never reaches the caller's response body.
func (v *Verifier) reject(method, path string, reason Reason) Outcome {
	v.logger.Warn("Rejected signed request",
		logging.String("method", method),
		logging.String("path", path),
		logging.String("reason", reason.String()),
	)
	return invalid(reason)
}
