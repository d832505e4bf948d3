// Package handlers implements the portal's HTTP surface: player-facing
// account and download endpoints, the public status and content pages, and
// the admin workflows for roles, posts and tester requests.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"game-portal/internal/adminclient"
	"game-portal/internal/auth"
	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/crypto"
	"game-portal/internal/directory"
	"game-portal/internal/sanitize"
	"game-portal/internal/status"
	"game-portal/internal/storage"
	"game-portal/internal/timing"
)

// AdminPanel is the slice of the admin client the handlers need. It is nil
// when the service key is not configured; handlers then answer with a
// configuration error instead of touching the network.
type AdminPanel interface {
	CreateAccount(ctx context.Context, username, password string) error
	CheckCredentials(ctx context.Context, username, password string) error
	DeleteAccount(ctx context.Context, username string) error
	ChangePassword(ctx context.Context, username, password string) error
	FetchDownload(ctx context.Context, fileName string) (*adminclient.Download, error)
	Healthy() bool
}

// Handlers carries the dependencies shared by all endpoint groups
type Handlers struct {
	storage   storage.Storage
	auth      *auth.Auth
	directory directory.Directory
	panel     AdminPanel
	status    *status.Checker
	gate      *timing.Gate
	encryptor *crypto.SettingsEncryptor
	logger    logging.Logger
}

// New creates the handler set. panel may be nil when the admin panel is not
// configured; encryptor may be nil to store settings in the clear.
func New(
	store storage.Storage,
	sessions *auth.Auth,
	dir directory.Directory,
	panel AdminPanel,
	checker *status.Checker,
	gate *timing.Gate,
	encryptor *crypto.SettingsEncryptor,
	logger logging.Logger,
) *Handlers {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if gate == nil {
		gate = timing.NewGate(timing.DefaultMinDelay)
	}

	return &Handlers{
		storage:   store,
		auth:      sessions,
		directory: dir,
		panel:     panel,
		status:    checker,
		gate:      gate,
		encryptor: encryptor,
		logger:    logger,
	}
}

// writeJSON writes a JSON response with the given status code
func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.logger.Error("Failed to write response", err)
		}
	}
}

// writeError maps an error to a JSON error response. AppError messages are
// already safe for players; anything else collapses to a generic message.
func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	appErr := errors.GetAppError(err)

	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	switch appErr.Type {
	case errors.ErrTypeValidation:
		statusCode = http.StatusBadRequest
		message = appErr.Message
	case errors.ErrTypeAuth:
		statusCode = http.StatusUnauthorized
		message = appErr.Message
	case errors.ErrTypeNotFound:
		statusCode = http.StatusNotFound
		message = appErr.Message
	case errors.ErrTypeRateLimit:
		statusCode = http.StatusTooManyRequests
		message = "Too many requests"
	case errors.ErrTypeUpstream:
		statusCode = http.StatusBadGateway
		message = appErr.Message
	case errors.ErrTypeConnection:
		statusCode = http.StatusBadGateway
		message = sanitize.MsgServiceUnavailable
	case errors.ErrTypeConfig:
		statusCode = http.StatusInternalServerError
		message = sanitize.MsgServerConfig
	default:
		h.logger.Error("Unhandled error", err)
	}

	h.writeJSON(w, statusCode, map[string]string{"error": message})
}

// decode reads a JSON request body into dst, bounding the body size
func (h *Handlers) decode(r *http.Request, dst interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return errors.ValidationError("failed to read request body")
	}
	if len(data) == 0 {
		return errors.ValidationError("request body is required")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return errors.ValidationError("invalid JSON in request body")
	}
	return nil
}

// session returns the authenticated session or writes a 401
func (h *Handlers) session(w http.ResponseWriter, r *http.Request) (*auth.Session, bool) {
	session, ok := auth.FromContext(r.Context())
	if !ok {
		h.writeError(w, errors.AuthError("Authentication required"))
		return nil, false
	}
	return session, true
}

// requirePanel returns the admin panel client or writes the configuration
// error the player is allowed to see
func (h *Handlers) requirePanel(w http.ResponseWriter) (AdminPanel, bool) {
	if h.panel == nil {
		h.writeError(w, errors.ConfigError("admin panel is not configured"))
		return nil, false
	}
	return h.panel, true
}
