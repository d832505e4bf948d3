package handlers

import (
	"context"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/storage"
	"game-portal/internal/timing"
)

const maxAccountsPerUser = 5

var accountNameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)

func validateAccountName(name string) error {
	if !accountNameRe.MatchString(name) {
		return errors.ValidationError("account name must be 3-16 characters: letters, digits or underscore")
	}
	return nil
}

func validateAccountPassword(password string) error {
	if len(password) < 8 || len(password) > 64 {
		return errors.ValidationError("password must be 8-64 characters")
	}
	return nil
}

// CreateGameAccount provisions a game account on the server and records the
// ownership link. The admin panel call runs behind the timing gate so the
// response time does not reveal whether the upstream accepted the name.
func (h *Handlers) CreateGameAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	panel, ok := h.requirePanel(w)
	if !ok {
		return
	}

	var req struct {
		AccountName string `json:"account_name"`
		Password    string `json:"password"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validateAccountName(req.AccountName); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validateAccountPassword(req.Password); err != nil {
		h.writeError(w, err)
		return
	}

	existing, err := h.storage.ListGameAccounts(session.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(existing) >= maxAccountsPerUser {
		h.writeError(w, errors.ValidationError("account limit reached"))
		return
	}

	account, err := timing.Run(h.gate, r.Context(), func(ctx context.Context) (*storage.GameAccount, error) {
		if err := panel.CreateAccount(ctx, req.AccountName, req.Password); err != nil {
			return nil, err
		}

		account := &storage.GameAccount{
			UserID:      session.UserID,
			AccountName: req.AccountName,
		}
		if err := h.storage.CreateGameAccount(account); err != nil {
			// The server-side account exists but the ownership row failed.
			// Roll the upstream account back so the name is not orphaned.
			if delErr := panel.DeleteAccount(ctx, req.AccountName); delErr != nil {
				h.logger.Error("Failed to roll back orphaned game account", delErr,
					logging.String("account_name", req.AccountName),
				)
			}
			return nil, err
		}
		return account, nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Game account created",
		logging.String("user_id", session.UserID),
		logging.String("account_name", account.AccountName),
	)
	h.writeJSON(w, http.StatusCreated, account)
}

// ClaimGameAccount links an existing game account to the caller after the
// admin panel confirms its credentials. Runs behind the timing gate so a
// wrong password takes as long as a right one.
func (h *Handlers) ClaimGameAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	panel, ok := h.requirePanel(w)
	if !ok {
		return
	}

	var req struct {
		AccountName string `json:"account_name"`
		Password    string `json:"password"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validateAccountName(req.AccountName); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Password == "" {
		h.writeError(w, errors.ValidationError("password is required"))
		return
	}

	existing, err := h.storage.ListGameAccounts(session.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if len(existing) >= maxAccountsPerUser {
		h.writeError(w, errors.ValidationError("account limit reached"))
		return
	}

	account, err := timing.Run(h.gate, r.Context(), func(ctx context.Context) (*storage.GameAccount, error) {
		if err := panel.CheckCredentials(ctx, req.AccountName, req.Password); err != nil {
			return nil, err
		}

		account := &storage.GameAccount{
			UserID:      session.UserID,
			AccountName: req.AccountName,
		}
		if err := h.storage.CreateGameAccount(account); err != nil {
			return nil, err
		}
		return account, nil
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Game account claimed",
		logging.String("user_id", session.UserID),
		logging.String("account_name", account.AccountName),
	)
	h.writeJSON(w, http.StatusOK, account)
}

// ListGameAccounts returns the caller's game accounts
func (h *Handlers) ListGameAccounts(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	accounts, err := h.storage.ListGameAccounts(session.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

// ChangeGamePassword updates the password of a game account the caller owns.
// Runs behind the timing gate.
func (h *Handlers) ChangeGamePassword(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	panel, ok := h.requirePanel(w)
	if !ok {
		return
	}

	accountName := mux.Vars(r)["name"]

	var req struct {
		Password string `json:"password"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validateAccountPassword(req.Password); err != nil {
		h.writeError(w, err)
		return
	}

	// Ownership check before touching the admin panel
	if _, err := h.storage.GetGameAccount(session.UserID, accountName); err != nil {
		h.writeError(w, err)
		return
	}

	_, err := timing.Run(h.gate, r.Context(), func(ctx context.Context) (struct{}, error) {
		return struct{}{}, panel.ChangePassword(ctx, accountName, req.Password)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Game account password changed",
		logging.String("user_id", session.UserID),
		logging.String("account_name", accountName),
	)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "password changed"})
}

// DeleteGameAccount removes a game account the caller owns, upstream first
func (h *Handlers) DeleteGameAccount(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}
	panel, ok := h.requirePanel(w)
	if !ok {
		return
	}

	accountName := mux.Vars(r)["name"]

	if _, err := h.storage.GetGameAccount(session.UserID, accountName); err != nil {
		h.writeError(w, err)
		return
	}

	if err := panel.DeleteAccount(r.Context(), accountName); err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.storage.DeleteGameAccount(session.UserID, accountName); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Game account deleted",
		logging.String("user_id", session.UserID),
		logging.String("account_name", accountName),
	)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "account deleted"})
}
