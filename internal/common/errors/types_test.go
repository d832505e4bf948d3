package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorFormatting(t *testing.T) {
	err := UpstreamError("admin panel rejected request", errors.New("status 502")).
		WithCode("ADMIN_502").
		WithContext("operation", "create_account")

	msg := err.Error()
	assert.Contains(t, msg, "upstream")
	assert.Contains(t, msg, "admin panel rejected request")
	assert.Contains(t, msg, "code=ADMIN_502")
	assert.Contains(t, msg, "status 502")
	assert.Contains(t, msg, "operation=create_account")
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ConnectionError("admin panel unreachable", cause)

	assert.True(t, errors.Is(err, cause))
}

func TestIsType(t *testing.T) {
	assert.True(t, IsType(ConfigError("service key not configured"), ErrTypeConfig))
	assert.True(t, IsType(VerificationError("signature mismatch"), ErrTypeVerification))
	assert.False(t, IsType(ValidationError("bad username"), ErrTypeConfig))
	assert.False(t, IsType(nil, ErrTypeConfig))
	assert.False(t, IsType(errors.New("plain"), ErrTypeInternal))
}

func TestGetType(t *testing.T) {
	assert.Equal(t, ErrTypeUpstream, GetType(UpstreamError("bad gateway", nil)))
	assert.Equal(t, ErrTypeInternal, GetType(errors.New("plain")))
	assert.Equal(t, ErrorType(""), GetType(nil))
}
