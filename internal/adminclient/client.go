// Package adminclient is the portal's only path into the game server's admin
// panel. Every call carries a signed envelope; responses that fail are
// reduced to a safe message before anything reaches a player.
package adminclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"game-portal/internal/circuitbreaker"
	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/sanitize"
	"game-portal/internal/signature"
)

// Config holds admin panel connection settings
type Config struct {
	// BaseURL is the admin panel root, e.g. https://panel.internal:8443
	BaseURL string
	// ServiceKey is the shared secret for the signed envelope
	ServiceKey []byte
	// Timeout bounds each admin panel call
	Timeout time.Duration
}

// SetDefaults applies defaults for optional fields
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 15 * time.Second
	}
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return errors.ConfigError("admin panel URL is required")
	}
	if len(c.ServiceKey) == 0 {
		return errors.ConfigError("admin panel service key is required")
	}
	return nil
}

// ServerStatus is the admin panel's view of the game world
type ServerStatus struct {
	Online    bool      `json:"online"`
	Realm     string    `json:"realm"`
	Players   int       `json:"players"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Download is a streamed game client file
type Download struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
	FileName      string
}

// Client calls the admin panel with signed requests. All failures surface as
// AppErrors whose messages are safe to show; the raw upstream text is logged
// only.
type Client struct {
	config    Config
	signer    *signature.Signer
	breaker   *circuitbreaker.Breaker
	sanitizer *sanitize.Sanitizer
	http      *http.Client
	logger    logging.Logger
}

// New creates the admin panel client. Configuration is validated before any
// network use so a missing service key fails at startup, not mid-request.
func New(config Config, logger logging.Logger) (*Client, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	signer, err := signature.NewSigner(signature.Config{Secret: config.ServiceKey}, logger)
	if err != nil {
		return nil, err
	}

	return &Client{
		config:    config,
		signer:    signer,
		breaker:   circuitbreaker.New(circuitbreaker.DefaultConfig("admin-panel"), logger),
		sanitizer: sanitize.New(logger),
		http:      &http.Client{Timeout: config.Timeout},
		logger:    logger,
	}, nil
}

// CreateAccount creates a game account on the server
func (c *Client) CreateAccount(ctx context.Context, username, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/accounts", map[string]string{
		"username": username,
		"password": password,
	}, nil)
	return err
}

// DeleteAccount removes a game account from the server
func (c *Client) DeleteAccount(ctx context.Context, username string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/accounts/"+username, nil, nil)
	return err
}

// CheckCredentials verifies a game account's username and password, used
// when a portal user claims an account created outside the portal
func (c *Client) CheckCredentials(ctx context.Context, username, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/accounts/"+username+"/verify", map[string]string{
		"password": password,
	}, nil)
	return err
}

// ChangePassword sets a new password for a game account
func (c *Client) ChangePassword(ctx context.Context, username, password string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/accounts/"+username+"/password", map[string]string{
		"password": password,
	}, nil)
	return err
}

// Status fetches the current game server status
func (c *Client) Status(ctx context.Context) (*ServerStatus, error) {
	var status ServerStatus
	if _, err := c.do(ctx, http.MethodGet, "/api/status", nil, &status); err != nil {
		return nil, err
	}
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = time.Now().UTC()
	}
	return &status, nil
}

// FetchDownload streams a client file from the admin panel. The caller owns
// the returned body and must close it.
func (c *Client) FetchDownload(ctx context.Context, fileName string) (*Download, error) {
	path := "/api/downloads/" + fileName

	signed, err := c.signer.Sign(http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, errors.InternalError("failed to build admin panel request", err)
	}
	req.Header = signed.Headers

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.ConnectionError("admin panel unreachable", err)
		}
		if resp.StatusCode >= 400 {
			defer resp.Body.Close()
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
			return nil, c.upstreamError(path, resp.StatusCode, data)
		}
		return resp, nil
	})
	if err != nil {
		return nil, c.shed(err)
	}

	resp := result.(*http.Response)
	return &Download{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		FileName:      fileName,
	}, nil
}

// do signs and executes a JSON round trip through the circuit breaker
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) ([]byte, error) {
	signed, err := c.signer.Sign(method, path, body)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if signed.Body != nil {
		reader = bytes.NewReader(signed.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reader)
	if err != nil {
		return nil, errors.InternalError("failed to build admin panel request", err)
	}
	req.Header = signed.Headers

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, errors.ConnectionError("admin panel unreachable", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, errors.ConnectionError("failed to read admin panel response", err)
		}
		if resp.StatusCode >= 400 {
			return nil, c.upstreamError(path, resp.StatusCode, data)
		}
		return data, nil
	})
	if err != nil {
		return nil, c.shed(err)
	}

	data := result.([]byte)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, errors.InternalError("failed to decode admin panel response", err)
		}
	}
	return data, nil
}

// upstreamError turns a non-2xx admin panel response into a sanitized
// AppError. The raw upstream message is logged here and goes no further.
func (c *Client) upstreamError(path string, status int, body []byte) error {
	raw := extractMessage(body)
	c.logger.Warn("Admin panel request failed",
		logging.String("path", path),
		logging.Int("status", status),
		logging.String("upstream_error", raw),
	)

	fallback := sanitize.MsgServiceUnavailable
	if status >= 400 && status < 500 {
		fallback = "Request could not be completed"
	}
	return errors.UpstreamError(c.sanitizer.Sanitize(raw, fallback), nil).
		WithContext("status", status)
}

// shed maps breaker rejections to the generic unavailable message
func (c *Client) shed(err error) error {
	if errors.IsType(err, errors.ErrTypeConnection) {
		return errors.UpstreamError(sanitize.MsgServiceUnavailable, err)
	}
	return err
}

// extractMessage digs the human-readable message out of an admin panel error
// body, which may be JSON ({"error": ...} or {"message": ...}) or plain text
func extractMessage(body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(body))
}

// Healthy reports whether the admin panel looks reachable. Used by the
// health endpoint; a tripped breaker counts as unhealthy.
func (c *Client) Healthy() bool {
	return !c.breaker.IsOpen()
}
