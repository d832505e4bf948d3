package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
)

// Portal settings editable by admins. Values are encrypted at rest when a
// settings key is configured.
var knownSettings = map[string]bool{
	"motd":              true,
	"registration_open": true,
	"discord_invite":    true,
}

// GetSetting returns a portal setting. Admin only.
func (h *Handlers) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	if !knownSettings[key] {
		h.writeError(w, errors.NotFoundError("setting"))
		return
	}

	stored, err := h.storage.GetSetting(key)
	if err != nil {
		h.writeError(w, err)
		return
	}

	value := stored
	if h.encryptor != nil {
		value, err = h.encryptor.Decrypt(stored)
		if err != nil {
			h.writeError(w, errors.InternalError("failed to decrypt setting", err))
			return
		}
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"key": key, "value": value})
}

// PutSetting stores a portal setting. Admin only.
func (h *Handlers) PutSetting(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	key := mux.Vars(r)["key"]
	if !knownSettings[key] {
		h.writeError(w, errors.NotFoundError("setting"))
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	stored := req.Value
	if h.encryptor != nil {
		var err error
		stored, err = h.encryptor.Encrypt(req.Value)
		if err != nil {
			h.writeError(w, errors.InternalError("failed to encrypt setting", err))
			return
		}
	}

	if err := h.storage.SetSetting(key, stored); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Setting updated",
		logging.String("key", key),
		logging.String("updated_by", session.UserID),
	)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "setting updated"})
}
