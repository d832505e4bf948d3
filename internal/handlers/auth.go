package handlers

import (
	"context"
	"net/http"
	"net/mail"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/directory"
	"game-portal/internal/sanitize"
	"game-portal/internal/timing"
)

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.ValidationError("invalid email address")
	}
	return nil
}

// SignUp registers a new portal user with the hosted directory
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validateEmail(req.Email); err != nil {
		h.writeError(w, err)
		return
	}
	if err := validateAccountPassword(req.Password); err != nil {
		h.writeError(w, err)
		return
	}

	user, err := timing.Run(h.gate, r.Context(), func(ctx context.Context) (*directory.User, error) {
		return h.directory.SignUp(ctx, req.Email, req.Password)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("User signed up", logging.String("user_id", user.ID))
	h.writeJSON(w, http.StatusCreated, map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
	})
}

// SignIn exchanges credentials for a portal session. The directory call runs
// behind the timing gate so failures take as long as successes. When MFA is
// enrolled no session cookie is issued yet; the client must complete the
// challenge.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	dirSession, err := timing.Run(h.gate, r.Context(), func(ctx context.Context) (*directory.Session, error) {
		return h.directory.SignIn(ctx, req.Email, req.Password)
	})
	if err != nil {
		if errors.IsType(err, errors.ErrTypeAuth) {
			h.writeError(w, errors.AuthError(sanitize.MsgInvalidCredentials))
			return
		}
		h.writeError(w, err)
		return
	}

	if dirSession.MFARequired {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"mfa_required": true,
			"challenge_id": dirSession.ChallengeID,
			"token":        dirSession.Token,
		})
		return
	}

	h.issueSession(w, r, dirSession)
}

// VerifyMFA completes a sign-in challenge and issues the session
func (h *Handlers) VerifyMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		ChallengeID string `json:"challenge_id"`
		Code        string `json:"code"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Code == "" || req.ChallengeID == "" {
		h.writeError(w, errors.ValidationError("challenge_id and code are required"))
		return
	}

	dirSession, err := timing.Run(h.gate, r.Context(), func(ctx context.Context) (*directory.Session, error) {
		return h.directory.VerifyMFA(ctx, req.Token, req.ChallengeID, req.Code)
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.issueSession(w, r, dirSession)
}

// EnrollMFA starts authenticator enrollment for the signed-in user
func (h *Handlers) EnrollMFA(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	enrollment, err := h.directory.EnrollMFA(r.Context(), session.DirectoryToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, enrollment)
}

// RefreshSession exchanges a directory refresh token for a new session
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	dirSession, err := h.directory.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.issueSession(w, r, dirSession)
}

// SignOut clears the session cookie. The directory token is simply dropped.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	h.auth.ClearCookie(w)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// Me returns the caller's identity
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	roles, err := h.storage.GetRoles(session.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": session.UserID,
		"email":   session.Email,
		"roles":   roles,
	})
}

func (h *Handlers) issueSession(w http.ResponseWriter, r *http.Request, dirSession *directory.Session) {
	user, err := h.directory.Lookup(r.Context(), dirSession.Token)
	if err != nil {
		h.writeError(w, err)
		return
	}

	token, expiry, err := h.auth.Issue(user, dirSession.Token, dirSession.ExpiresAt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.auth.SetCookie(w, token, expiry)

	h.logger.Info("User signed in", logging.String("user_id", user.ID))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":         token,
		"expires_at":    expiry,
		"refresh_token": dirSession.RefreshToken,
	})
}
