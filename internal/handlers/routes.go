package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"game-portal/internal/storage"
)

// Routes mounts every endpoint on the router. Middleware that applies
// globally (logging, rate limiting) is attached by the caller.
func (h *Handlers) Routes(router *mux.Router) {
	// Public
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.HandleFunc("/api/status", h.ServerStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/posts", h.ListPosts).Methods(http.MethodGet)
	router.HandleFunc("/api/posts/{id:[0-9]+}", h.GetPost).Methods(http.MethodGet)
	router.HandleFunc("/api/auth/signup", h.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/signin", h.SignIn).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/mfa/verify", h.VerifyMFA).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/refresh", h.RefreshSession).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/signout", h.SignOut).Methods(http.MethodPost)
	router.HandleFunc("/download/{token}", h.RedeemDownload).Methods(http.MethodGet)

	// Signed-in users
	user := router.PathPrefix("/api").Subrouter()
	user.Use(h.auth.RequireAuth)
	user.HandleFunc("/me", h.Me).Methods(http.MethodGet)
	user.HandleFunc("/auth/mfa/enroll", h.EnrollMFA).Methods(http.MethodPost)
	user.HandleFunc("/accounts", h.ListGameAccounts).Methods(http.MethodGet)
	user.HandleFunc("/accounts", h.CreateGameAccount).Methods(http.MethodPost)
	user.HandleFunc("/accounts/claim", h.ClaimGameAccount).Methods(http.MethodPost)
	user.HandleFunc("/accounts/{name}/password", h.ChangeGamePassword).Methods(http.MethodPost)
	user.HandleFunc("/accounts/{name}", h.DeleteGameAccount).Methods(http.MethodDelete)
	user.HandleFunc("/tester-requests", h.RequestTesterAccess).Methods(http.MethodPost)

	// Testers
	tester := router.PathPrefix("/api/downloads").Subrouter()
	tester.Use(h.auth.RequireAuth, h.auth.RequireRole(storage.RoleTester))
	tester.HandleFunc("/grants", h.CreateDownloadGrant).Methods(http.MethodPost)

	// Moderators and admins manage content
	mod := router.PathPrefix("/api/admin/posts").Subrouter()
	mod.Use(h.auth.RequireAuth, h.auth.RequireAnyRole(storage.RoleAdmin, storage.RoleModerator))
	mod.HandleFunc("", h.ListAllPosts).Methods(http.MethodGet)
	mod.HandleFunc("", h.CreatePost).Methods(http.MethodPost)
	mod.HandleFunc("/{id:[0-9]+}", h.UpdatePost).Methods(http.MethodPut)
	mod.HandleFunc("/{id:[0-9]+}", h.DeletePost).Methods(http.MethodDelete)

	// Admins
	admin := router.PathPrefix("/api/admin").Subrouter()
	admin.Use(h.auth.RequireAuth, h.auth.RequireRole(storage.RoleAdmin))
	admin.HandleFunc("/roles", h.GrantRole).Methods(http.MethodPost)
	admin.HandleFunc("/roles", h.RevokeRole).Methods(http.MethodDelete)
	admin.HandleFunc("/tester-requests", h.ListTesterRequests).Methods(http.MethodGet)
	admin.HandleFunc("/tester-requests/{id:[0-9]+}/review", h.ReviewTesterRequest).Methods(http.MethodPost)
	admin.HandleFunc("/settings/{key}", h.GetSetting).Methods(http.MethodGet)
	admin.HandleFunc("/settings/{key}", h.PutSetting).Methods(http.MethodPut)
}
