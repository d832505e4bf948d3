package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
)

// HTTPDirectory talks to the provider's REST surface
type HTTPDirectory struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  logging.Logger
}

// NewHTTPDirectory creates a directory client. baseURL and apiKey come from
// configuration and are immutable afterwards.
func NewHTTPDirectory(baseURL, apiKey string, logger logging.Logger) (*HTTPDirectory, error) {
	if baseURL == "" {
		return nil, errors.ConfigError("user directory URL is required")
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &HTTPDirectory{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}, nil
}

func (d *HTTPDirectory) SignUp(ctx context.Context, email, password string) (*User, error) {
	var user User
	err := d.post(ctx, "/v1/signup", "", map[string]string{
		"email":    email,
		"password": password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *HTTPDirectory) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := d.post(ctx, "/v1/signin", "", map[string]string{
		"email":    email,
		"password": password,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *HTTPDirectory) EnrollMFA(ctx context.Context, token string) (*MFAEnrollment, error) {
	var enrollment MFAEnrollment
	err := d.post(ctx, "/v1/mfa/enroll", token, nil, &enrollment)
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (d *HTTPDirectory) VerifyMFA(ctx context.Context, token, challengeID, code string) (*Session, error) {
	var session Session
	err := d.post(ctx, "/v1/mfa/verify", token, map[string]string{
		"challenge_id": challengeID,
		"code":         code,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *HTTPDirectory) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	var session Session
	err := d.post(ctx, "/v1/token/refresh", "", map[string]string{
		"refresh_token": refreshToken,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (d *HTTPDirectory) Lookup(ctx context.Context, token string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/v1/user", nil)
	if err != nil {
		return nil, errors.InternalError("failed to build directory request", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	d.decorate(req)

	var user User
	if err := d.execute(req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// post sends a JSON body to the directory, optionally with a user bearer
// token
func (d *HTTPDirectory) post(ctx context.Context, path, token string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.InternalError("failed to serialize directory request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, reader)
	if err != nil {
		return errors.InternalError("failed to build directory request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	d.decorate(req)

	return d.execute(req, out)
}

func (d *HTTPDirectory) decorate(req *http.Request) {
	if d.apiKey != "" {
		req.Header.Set("X-Api-Key", d.apiKey)
	}
}

func (d *HTTPDirectory) execute(req *http.Request, out interface{}) error {
	resp, err := d.client.Do(req)
	if err != nil {
		return errors.ConnectionError("user directory unreachable", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return errors.ConnectionError("failed to read directory response", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return errors.AuthError("directory rejected credentials")
	}
	if resp.StatusCode >= 400 {
		d.logger.Warn("Directory request failed",
			logging.String("path", req.URL.Path),
			logging.Int("status", resp.StatusCode),
		)
		return errors.UpstreamError(fmt.Sprintf("directory returned status %d", resp.StatusCode), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.InternalError("failed to decode directory response", err)
	}
	return nil
}
