package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
)

// Signer builds authenticated request envelopes for outbound calls from the
// portal to the admin panel. Signing is a pure function of the inputs, the
// configured secret and the current time; a Signer is safe for concurrent
// use.
type Signer struct {
	config Config
	logger logging.Logger
}

// NewSigner creates a new request signer. The shared secret must be
// configured; a missing secret is a configuration error and no signer is
// returned.
func NewSigner(config Config, logger logging.Logger) (*Signer, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Signer{
		config: config,
		logger: logger,
	}, nil
}

// SignedRequest is a single-use request envelope. It is constructed per
// outbound call and discarded after the call completes.
type SignedRequest struct {
	// Method is the HTTP verb the envelope was signed for
	Method string
	// Path is the URL path (no query string) the envelope was signed for
	Path string
	// Body holds the exact serialized bytes that were signed. The HTTP
	// request must send these bytes unmodified or verification fails.
	Body []byte
	// Timestamp is the signing time in epoch milliseconds
	Timestamp int64
	// Signature is the lowercase hex HMAC-SHA256 over the canonical payload
	Signature string
	// Headers is the complete header set for the outbound call
	Headers http.Header
}

// Sign serializes body to JSON and produces the signed envelope for
// method and path. The signature covers
// method + ":" + path + ":" + timestamp + ":" + body.
func (s *Signer) Sign(method, path string, body interface{}) (*SignedRequest, error) {
	var serialized []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, errors.InternalError("failed to serialize request body", err)
		}
		serialized = data
	}

	timestamp := s.config.nowMillis()
	sig := computeMAC(s.config.Secret, method, path, strconv.FormatInt(timestamp, 10), serialized)

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(HeaderServiceKey, string(s.config.Secret))
	headers.Set(HeaderTimestamp, strconv.FormatInt(timestamp, 10))
	headers.Set(HeaderSignature, sig)

	s.logger.Debug("Signed outbound request",
		logging.String("method", method),
		logging.String("path", path),
		logging.Int64("timestamp", timestamp),
	)

	return &SignedRequest{
		Method:    method,
		Path:      path,
		Body:      serialized,
		Timestamp: timestamp,
		Signature: sig,
		Headers:   headers,
	}, nil
}

// computeMAC computes the lowercase hex HMAC-SHA256 over the canonical
// payload. Signer and Verifier must agree on this byte-for-byte.
func computeMAC(secret []byte, method, path, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(method))
	mac.Write([]byte(":"))
	mac.Write([]byte(path))
	mac.Write([]byte(":"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(":"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
