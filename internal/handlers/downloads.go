package handlers

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/storage"
)

const grantTTL = 15 * time.Minute

// allowedDownloads lists the client files the portal will hand out. Path
// traversal is not a concern because names never leave this set.
var allowedDownloads = map[string]bool{
	"client-installer.exe": true,
	"client-full.zip":      true,
	"client-patch.zip":     true,
}

// CreateDownloadGrant issues a short-lived single-use download token for a
// client file. Tester role required at the route level.
func (h *Handlers) CreateDownloadGrant(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		FileName string `json:"file_name"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if !allowedDownloads[req.FileName] {
		h.writeError(w, errors.NotFoundError("file"))
		return
	}

	secret := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		h.writeError(w, errors.InternalError("failed to hash grant secret", err))
		return
	}

	grant := &storage.DownloadGrant{
		ID:         uuid.NewString(),
		UserID:     session.UserID,
		FileName:   req.FileName,
		SecretHash: string(hash),
		ExpiresAt:  time.Now().Add(grantTTL).UTC(),
	}
	if err := h.storage.CreateDownloadGrant(grant); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Download grant issued",
		logging.String("user_id", session.UserID),
		logging.String("file_name", req.FileName),
		logging.String("grant_id", grant.ID),
	)
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"token":      grant.ID + "." + secret,
		"file_name":  grant.FileName,
		"expires_at": grant.ExpiresAt,
	})
}

// RedeemDownload streams a client file for a valid grant token. The token is
// single use; redeeming consumes it before any bytes flow.
func (h *Handlers) RedeemDownload(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	grantID, secret, found := strings.Cut(token, ".")
	if !found || grantID == "" || secret == "" {
		h.writeError(w, errors.NotFoundError("download"))
		return
	}

	grant, err := h.storage.GetDownloadGrant(grantID)
	if err != nil {
		h.writeError(w, errors.NotFoundError("download"))
		return
	}
	if grant.Used || time.Now().After(grant.ExpiresAt) {
		h.writeError(w, errors.NotFoundError("download"))
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(grant.SecretHash), []byte(secret)) != nil {
		h.writeError(w, errors.NotFoundError("download"))
		return
	}

	// Consume first; a concurrent second redemption loses here
	if err := h.storage.MarkGrantUsed(grant.ID); err != nil {
		h.writeError(w, errors.NotFoundError("download"))
		return
	}

	panel, ok := h.requirePanel(w)
	if !ok {
		return
	}

	download, err := panel.FetchDownload(r.Context(), grant.FileName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer download.Body.Close()

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+grant.FileName+`"`)
	if download.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(download.ContentLength, 10))
	}

	if _, err := io.Copy(w, download.Body); err != nil {
		// Headers are gone; all we can do is log
		h.logger.Warn("Download stream interrupted",
			logging.String("grant_id", grant.ID),
			logging.Err(err),
		)
		return
	}

	h.logger.Info("Download served",
		logging.String("user_id", grant.UserID),
		logging.String("file_name", grant.FileName),
	)
}
