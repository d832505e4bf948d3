package handlers

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/storage"
)

var knownRoles = map[string]bool{
	storage.RoleAdmin:     true,
	storage.RoleModerator: true,
	storage.RoleTester:    true,
}

// GrantRole assigns a role to a user. Admin only.
func (h *Handlers) GrantRole(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.UserID == "" || !knownRoles[req.Role] {
		h.writeError(w, errors.ValidationError("user_id and a known role are required"))
		return
	}

	if err := h.storage.GrantRole(req.UserID, req.Role, session.UserID); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Role granted",
		logging.String("user_id", req.UserID),
		logging.String("role", req.Role),
		logging.String("granted_by", session.UserID),
	)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "role granted"})
}

// RevokeRole removes a role from a user. Admin only. Admins cannot revoke
// their own admin role, so the portal always keeps at least one admin.
func (h *Handlers) RevokeRole(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		UserID string `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.UserID == session.UserID && req.Role == storage.RoleAdmin {
		h.writeError(w, errors.ValidationError("cannot revoke your own admin role"))
		return
	}

	if err := h.storage.RevokeRole(req.UserID, req.Role); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Role revoked",
		logging.String("user_id", req.UserID),
		logging.String("role", req.Role),
		logging.String("revoked_by", session.UserID),
	)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "role revoked"})
}

// RequestTesterAccess files a tester application for the signed-in user
func (h *Handlers) RequestTesterAccess(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if len(req.Message) > 2000 {
		h.writeError(w, errors.ValidationError("message too long"))
		return
	}

	already, err := h.storage.HasRole(session.UserID, storage.RoleTester)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if already {
		h.writeError(w, errors.ValidationError("you already have tester access"))
		return
	}

	request := &storage.TesterRequest{
		UserID:  session.UserID,
		Message: req.Message,
	}
	if err := h.storage.CreateTesterRequest(request); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Tester access requested", logging.String("user_id", session.UserID))
	h.writeJSON(w, http.StatusCreated, request)
}

// ListTesterRequests returns tester applications by status. Admin only.
func (h *Handlers) ListTesterRequests(w http.ResponseWriter, r *http.Request) {
	statusFilter := r.URL.Query().Get("status")
	if statusFilter == "" {
		statusFilter = storage.TesterStatusPending
	}

	requests, err := h.storage.ListTesterRequests(statusFilter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, requests)
}

// ReviewTesterRequest approves or denies a tester application. Approval
// grants the tester role in the same request. Admin only.
func (h *Handlers) ReviewTesterRequest(w http.ResponseWriter, r *http.Request) {
	session, ok := h.session(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, errors.ValidationError("invalid request id"))
		return
	}

	var req struct {
		Approve bool `json:"approve"`
	}
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	request, err := h.storage.GetTesterRequest(id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	verdict := storage.TesterStatusDenied
	if req.Approve {
		verdict = storage.TesterStatusApproved
	}
	if err := h.storage.ReviewTesterRequest(id, verdict, session.UserID); err != nil {
		h.writeError(w, err)
		return
	}

	if req.Approve {
		if err := h.storage.GrantRole(request.UserID, storage.RoleTester, session.UserID); err != nil {
			h.writeError(w, err)
			return
		}
	}

	h.logger.Info("Tester request reviewed",
		logging.Int64("request_id", id),
		logging.String("verdict", verdict),
		logging.String("reviewed_by", session.UserID),
	)
	h.writeJSON(w, http.StatusOK, map[string]string{"status": verdict})
}
