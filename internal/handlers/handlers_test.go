package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-portal/internal/adminclient"
	"game-portal/internal/auth"
	"game-portal/internal/common/errors"
	"game-portal/internal/crypto"
	"game-portal/internal/directory"
	"game-portal/internal/sanitize"
	"game-portal/internal/status"
	"game-portal/internal/storage"
	"game-portal/internal/storage/sqlite"
	"game-portal/internal/timing"
)

type fakePanel struct {
	accounts  map[string]string
	createErr error
	downloads map[string][]byte
}

func newFakePanel() *fakePanel {
	return &fakePanel{
		accounts:  map[string]string{},
		downloads: map[string][]byte{"client-installer.exe": []byte("installer-bytes")},
	}
}

func (p *fakePanel) CreateAccount(ctx context.Context, username, password string) error {
	if p.createErr != nil {
		return p.createErr
	}
	if _, exists := p.accounts[username]; exists {
		return errors.UpstreamError(sanitize.MsgUsernameTaken, nil)
	}
	p.accounts[username] = password
	return nil
}

func (p *fakePanel) CheckCredentials(ctx context.Context, username, password string) error {
	stored, exists := p.accounts[username]
	if !exists || stored != password {
		return errors.UpstreamError(sanitize.MsgInvalidCredentials, nil)
	}
	return nil
}

func (p *fakePanel) DeleteAccount(ctx context.Context, username string) error {
	if _, exists := p.accounts[username]; !exists {
		return errors.UpstreamError(sanitize.MsgAccountNotFound, nil)
	}
	delete(p.accounts, username)
	return nil
}

func (p *fakePanel) ChangePassword(ctx context.Context, username, password string) error {
	if _, exists := p.accounts[username]; !exists {
		return errors.UpstreamError(sanitize.MsgAccountNotFound, nil)
	}
	p.accounts[username] = password
	return nil
}

func (p *fakePanel) FetchDownload(ctx context.Context, fileName string) (*adminclient.Download, error) {
	data, ok := p.downloads[fileName]
	if !ok {
		return nil, errors.UpstreamError(sanitize.MsgServiceUnavailable, nil)
	}
	return &adminclient.Download{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   "application/octet-stream",
		ContentLength: int64(len(data)),
		FileName:      fileName,
	}, nil
}

func (p *fakePanel) Healthy() bool { return true }

type fakeDirectory struct {
	users map[string]string // email -> password
}

func (d *fakeDirectory) SignUp(ctx context.Context, email, password string) (*directory.User, error) {
	if _, exists := d.users[email]; exists {
		return nil, errors.UpstreamError(sanitize.MsgUsernameTaken, nil)
	}
	d.users[email] = password
	return &directory.User{ID: "dir-" + email, Email: email}, nil
}

func (d *fakeDirectory) SignIn(ctx context.Context, email, password string) (*directory.Session, error) {
	if d.users[email] != password {
		return nil, errors.AuthError("directory rejected credentials")
	}
	return &directory.Session{
		UserID:    "dir-" + email,
		Token:     "dtok-" + email,
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (d *fakeDirectory) EnrollMFA(ctx context.Context, token string) (*directory.MFAEnrollment, error) {
	return &directory.MFAEnrollment{Secret: "ABC123", OTPAuthURL: "otpauth://totp/portal"}, nil
}

func (d *fakeDirectory) VerifyMFA(ctx context.Context, token, challengeID, code string) (*directory.Session, error) {
	if code != "000000" {
		return nil, errors.AuthError("bad code")
	}
	return &directory.Session{UserID: "dir-user", Token: token, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (d *fakeDirectory) Refresh(ctx context.Context, refreshToken string) (*directory.Session, error) {
	return nil, errors.AuthError("unknown refresh token")
}

func (d *fakeDirectory) Lookup(ctx context.Context, token string) (*directory.User, error) {
	email := strings.TrimPrefix(token, "dtok-")
	return &directory.User{ID: "dir-" + email, Email: email}, nil
}

type fixture struct {
	handlers *Handlers
	router   *mux.Router
	store    *sqlite.Adapter
	sessions *auth.Auth
	panel    *fakePanel
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store, err := sqlite.NewAdapter(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions, err := auth.New("0123456789abcdef0123456789abcdef", time.Hour, store, nil)
	require.NoError(t, err)

	panel := newFakePanel()
	dir := &fakeDirectory{users: map[string]string{}}
	checker := status.NewChecker(fetcherFunc(func(ctx context.Context) (*adminclient.ServerStatus, error) {
		return &adminclient.ServerStatus{Online: true, Players: 3}, nil
	}), time.Minute, nil)

	encryptor, err := crypto.NewSettingsEncryptor("test-settings-passphrase")
	require.NoError(t, err)

	// A 1ms gate keeps tests fast while still exercising the decorated path
	h := New(store, sessions, dir, panel, checker, timing.NewGate(time.Millisecond), encryptor, nil)
	router := mux.NewRouter()
	h.Routes(router)

	return &fixture{handlers: h, router: router, store: store, sessions: sessions, panel: panel}
}

type fetcherFunc func(ctx context.Context) (*adminclient.ServerStatus, error)

func (f fetcherFunc) Status(ctx context.Context) (*adminclient.ServerStatus, error) { return f(ctx) }

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := f.sessions.Issue(&directory.User{ID: userID, Email: userID + "@example.com"}, "dtok", time.Time{})
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCreateGameAccount(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "user-1")

	rec := f.do(t, http.MethodPost, "/api/accounts", token, map[string]string{
		"account_name": "hero1",
		"password":     "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "longenough", f.panel.accounts["hero1"])

	var account storage.GameAccount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "user-1", account.UserID)

	// Same name again surfaces the sanitized upstream message
	rec = f.do(t, http.MethodPost, "/api/accounts", f.token(t, "user-2"), map[string]string{
		"account_name": "hero1",
		"password":     "longenough",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), sanitize.MsgUsernameTaken)
}

func TestCreateGameAccountValidation(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "user-1")

	cases := []map[string]string{
		{"account_name": "x", "password": "longenough"},
		{"account_name": "has spaces", "password": "longenough"},
		{"account_name": "hero1", "password": "short"},
	}
	for _, body := range cases {
		rec := f.do(t, http.MethodPost, "/api/accounts", token, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
	assert.Empty(t, f.panel.accounts)
}

func TestCreateGameAccountRequiresAuth(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/accounts", "", map[string]string{
		"account_name": "hero1", "password": "longenough",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateGameAccountWithoutPanel(t *testing.T) {
	f := newFixture(t)
	f.handlers.panel = nil

	rec := f.do(t, http.MethodPost, "/api/accounts", f.token(t, "user-1"), map[string]string{
		"account_name": "hero1", "password": "longenough",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), sanitize.MsgServerConfig)
}

func TestClaimGameAccount(t *testing.T) {
	f := newFixture(t)
	f.panel.accounts["veteran"] = "oldsecret"
	token := f.token(t, "user-1")

	// Wrong password surfaces the safe message and records nothing
	rec := f.do(t, http.MethodPost, "/api/accounts/claim", token, map[string]string{
		"account_name": "veteran", "password": "wrong",
	})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), sanitize.MsgInvalidCredentials)

	accounts, err := f.store.ListGameAccounts("user-1")
	require.NoError(t, err)
	assert.Empty(t, accounts)

	rec = f.do(t, http.MethodPost, "/api/accounts/claim", token, map[string]string{
		"account_name": "veteran", "password": "oldsecret",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	accounts, err = f.store.ListGameAccounts("user-1")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "veteran", accounts[0].AccountName)
}

func TestModeratorCanManagePosts(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.GrantRole("mod-1", storage.RoleModerator, "root"))
	modToken := f.token(t, "mod-1")

	rec := f.do(t, http.MethodPost, "/api/admin/posts", modToken, map[string]interface{}{
		"title": "Hotfix", "body": "Server restart at noon", "published": true,
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// Moderators cannot touch roles
	rec = f.do(t, http.MethodPost, "/api/admin/roles", modToken, map[string]string{
		"user_id": "user-1", "role": storage.RoleTester,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChangeGamePasswordOwnershipEnforced(t *testing.T) {
	f := newFixture(t)
	owner := f.token(t, "user-1")
	other := f.token(t, "user-2")

	rec := f.do(t, http.MethodPost, "/api/accounts", owner, map[string]string{
		"account_name": "hero1", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/accounts/hero1/password", other, map[string]string{
		"password": "newpassword",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/accounts/hero1/password", owner, map[string]string{
		"password": "newpassword",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "newpassword", f.panel.accounts["hero1"])
}

func TestDeleteGameAccount(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "user-1")

	rec := f.do(t, http.MethodPost, "/api/accounts", token, map[string]string{
		"account_name": "hero1", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/accounts/hero1", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, f.panel.accounts, "hero1")

	rec = f.do(t, http.MethodGet, "/api/accounts", token, nil)
	var remaining []storage.GameAccount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &remaining))
	assert.Empty(t, remaining)
}

func TestSignUpSignInFlow(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"email": "dev@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "dev@example.com", "password": "longenough",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	rec = f.do(t, http.MethodGet, "/api/me", resp.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dev@example.com")
}

func TestSignInBadCredentials(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"email": "nobody@example.com", "password": "wrongwrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), sanitize.MsgInvalidCredentials)
}

func TestDownloadGrantLifecycle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.GrantRole("user-1", storage.RoleTester, "root"))
	token := f.token(t, "user-1")

	rec := f.do(t, http.MethodPost, "/api/downloads/grants", token, map[string]string{
		"file_name": "client-installer.exe",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var grant struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))

	rec = f.do(t, http.MethodGet, "/download/"+grant.Token, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "installer-bytes", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "client-installer.exe")

	// Single use
	rec = f.do(t, http.MethodGet, "/download/"+grant.Token, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadGrantRequiresTesterRole(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "user-1")

	rec := f.do(t, http.MethodPost, "/api/downloads/grants", token, map[string]string{
		"file_name": "client-installer.exe",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDownloadRejectsForgedToken(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.GrantRole("user-1", storage.RoleTester, "root"))

	rec := f.do(t, http.MethodPost, "/api/downloads/grants", f.token(t, "user-1"), map[string]string{
		"file_name": "client-installer.exe",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var grant struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &grant))
	grantID, _, _ := strings.Cut(grant.Token, ".")

	rec = f.do(t, http.MethodGet, "/download/"+grantID+".wrong-secret", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Forged attempt must not consume the grant
	rec = f.do(t, http.MethodGet, "/download/"+grant.Token, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTesterRequestWorkflow(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.GrantRole("admin-1", storage.RoleAdmin, "root"))
	userToken := f.token(t, "user-1")
	adminToken := f.token(t, "admin-1")

	rec := f.do(t, http.MethodPost, "/api/tester-requests", userToken, map[string]string{
		"message": "I run the nightly builds",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var request storage.TesterRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &request))

	rec = f.do(t, http.MethodGet, "/api/admin/tester-requests", userToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/admin/tester-requests", adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/tester-requests/"+itoa(request.ID)+"/review", adminToken, map[string]bool{
		"approve": true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	has, err := f.store.HasRole("user-1", storage.RoleTester)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPostsAdminAndPublicViews(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.GrantRole("admin-1", storage.RoleAdmin, "root"))
	adminToken := f.token(t, "admin-1")

	rec := f.do(t, http.MethodPost, "/api/admin/posts", adminToken, map[string]interface{}{
		"title": "Launch", "body": "We are live", "published": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/posts", adminToken, map[string]interface{}{
		"title": "Draft", "body": "Not yet",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var public []storage.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &public))
	require.Len(t, public, 1)
	assert.Equal(t, "Launch", public[0].Title)

	rec = f.do(t, http.MethodGet, "/api/admin/posts", adminToken, nil)
	var all []storage.Post
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}

func TestRoleManagement(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.GrantRole("admin-1", storage.RoleAdmin, "root"))
	adminToken := f.token(t, "admin-1")

	rec := f.do(t, http.MethodPost, "/api/admin/roles", adminToken, map[string]string{
		"user_id": "user-1", "role": storage.RoleTester,
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Unknown role is rejected
	rec = f.do(t, http.MethodPost, "/api/admin/roles", adminToken, map[string]string{
		"user_id": "user-1", "role": "superuser",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// An admin cannot revoke their own admin role
	rec = f.do(t, http.MethodDelete, "/api/admin/roles", adminToken, map[string]string{
		"user_id": "admin-1", "role": storage.RoleAdmin,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServerStatusEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/status", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"online":true`)
}

func TestHealthEndpoint(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"healthy":true`)
}

func TestSettingsEncryptedAtRest(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.GrantRole("admin-1", storage.RoleAdmin, "root"))
	adminToken := f.token(t, "admin-1")

	rec := f.do(t, http.MethodPut, "/api/admin/settings/motd", adminToken, map[string]string{
		"value": "Welcome to the beta",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// Stored form is ciphertext
	stored, err := f.store.GetSetting("motd")
	require.NoError(t, err)
	assert.NotEqual(t, "Welcome to the beta", stored)

	rec = f.do(t, http.MethodGet, "/api/admin/settings/motd", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the beta")

	// Unknown keys are rejected
	rec = f.do(t, http.MethodPut, "/api/admin/settings/secret_key", adminToken, map[string]string{
		"value": "x",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
