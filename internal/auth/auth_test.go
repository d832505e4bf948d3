package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-portal/internal/common/errors"
	"game-portal/internal/directory"
	"game-portal/internal/storage/sqlite"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuth(t *testing.T) *Auth {
	t.Helper()

	store, err := sqlite.NewAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a, err := New(testSecret, time.Hour, store, nil)
	require.NoError(t, err)
	return a
}

func TestNewRejectsShortSecret(t *testing.T) {
	_, err := New("short", time.Hour, nil, nil)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestIssueAndValidate(t *testing.T) {
	a := newTestAuth(t)

	user := &directory.User{ID: "user-1", Email: "dev@example.com"}
	token, expiry, err := a.Issue(user, "dir-token-abc", time.Time{})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	session, err := a.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "dev@example.com", session.Email)
	assert.Equal(t, "dir-token-abc", session.DirectoryToken)
}

func TestSessionCappedByDirectoryExpiry(t *testing.T) {
	a := newTestAuth(t)

	directoryExpiry := time.Now().Add(5 * time.Minute)
	_, expiry, err := a.Issue(&directory.User{ID: "user-1"}, "tok", directoryExpiry)
	require.NoError(t, err)
	assert.WithinDuration(t, directoryExpiry, expiry, time.Second)
}

func TestValidateRejectsTamperedToken(t *testing.T) {
	a := newTestAuth(t)

	token, _, err := a.Issue(&directory.User{ID: "user-1"}, "tok", time.Time{})
	require.NoError(t, err)

	_, err = a.Validate(token + "x")
	assert.True(t, errors.IsType(err, errors.ErrTypeAuth))

	_, err = a.Validate("not-a-jwt")
	assert.True(t, errors.IsType(err, errors.ErrTypeAuth))
}

func TestRequireAuth(t *testing.T) {
	a := newTestAuth(t)

	var seen *Session
	handler := a.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// No credentials
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, expiry, err := a.Issue(&directory.User{ID: "user-1", Email: "dev@example.com"}, "tok", time.Time{})
	require.NoError(t, err)

	// Bearer header
	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "user-1", seen.UserID)

	// Cookie
	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: token, Expires: expiry})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
}

func TestRequireRole(t *testing.T) {
	a := newTestAuth(t)
	require.NoError(t, a.storage.GrantRole("user-1", "admin", "root"))

	handler := a.RequireAuth(a.RequireRole("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	adminToken, _, err := a.Issue(&directory.User{ID: "user-1"}, "tok", time.Time{})
	require.NoError(t, err)
	plainToken, _, err := a.Issue(&directory.User{ID: "user-2"}, "tok", time.Time{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/posts", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/posts", nil)
	req.Header.Set("Authorization", "Bearer "+plainToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
