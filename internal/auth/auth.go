// Package auth manages portal sessions. Credentials and MFA live in the
// hosted user directory; the portal only mints a signed session cookie
// around the directory's opaque token and checks locally stored roles.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"game-portal/internal/common/errors"
	"game-portal/internal/common/logging"
	"game-portal/internal/directory"
	"game-portal/internal/storage"
)

// SessionCookie is the cookie carrying the portal session token
const SessionCookie = "portal_session"

// Claims is the portal session payload
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	// DirectoryToken is the provider's opaque bearer token, carried so the
	// portal can call the directory on the user's behalf
	DirectoryToken string `json:"dtok"`
}

// Session is the authenticated caller attached to a request context
type Session struct {
	UserID         string
	Email          string
	DirectoryToken string
	ExpiresAt      time.Time
}

type contextKey string

const sessionKey contextKey = "portal.session"

// FromContext returns the session attached by RequireAuth
func FromContext(ctx context.Context) (*Session, bool) {
	session, ok := ctx.Value(sessionKey).(*Session)
	return session, ok
}

// Auth issues and validates portal sessions and gates requests on roles
type Auth struct {
	secret  []byte
	ttl     time.Duration
	storage storage.Storage
	logger  logging.Logger
}

// New creates the session manager. The JWT secret is required and loaded
// once at startup.
func New(secret string, ttl time.Duration, store storage.Storage, logger logging.Logger) (*Auth, error) {
	if len(secret) < 32 {
		return nil, errors.ConfigError("session secret must be at least 32 characters")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &Auth{
		secret:  []byte(secret),
		ttl:     ttl,
		storage: store,
		logger:  logger,
	}, nil
}

// Issue mints a session token for a directory user. The session never
// outlives the directory token.
func (a *Auth) Issue(user *directory.User, directoryToken string, directoryExpiry time.Time) (string, time.Time, error) {
	expiry := time.Now().Add(a.ttl)
	if !directoryExpiry.IsZero() && directoryExpiry.Before(expiry) {
		expiry = directoryExpiry
	}

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiry),
			Issuer:    "game-portal",
		},
		Email:          user.Email,
		DirectoryToken: directoryToken,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", time.Time{}, errors.InternalError("failed to sign session token", err)
	}
	return signed, expiry, nil
}

// Validate parses a session token and returns the session it represents
func (a *Auth) Validate(tokenString string) (*Session, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.AuthError("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.AuthError("invalid session")
	}

	session := &Session{
		UserID:         claims.Subject,
		Email:          claims.Email,
		DirectoryToken: claims.DirectoryToken,
	}
	if claims.ExpiresAt != nil {
		session.ExpiresAt = claims.ExpiresAt.Time
	}
	return session, nil
}

// SetCookie writes the session cookie
func (a *Auth) SetCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Expires:  expiry,
	})
}

// ClearCookie removes the session cookie
func (a *Auth) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

// tokenFromRequest pulls the session token from the Authorization header or
// the session cookie
func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// RequireAuth rejects unauthenticated requests and attaches the session to
// the request context
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			unauthorized(w)
			return
		}

		session, err := a.Validate(token)
		if err != nil {
			unauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), sessionKey, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects callers that lack the given role. It must wrap a
// handler already behind RequireAuth.
func (a *Auth) RequireRole(role string) func(http.Handler) http.Handler {
	return a.RequireAnyRole(role)
}

// RequireAnyRole admits callers holding at least one of the given roles
func (a *Auth) RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := FromContext(r.Context())
			if !ok {
				unauthorized(w)
				return
			}

			for _, role := range roles {
				has, err := a.storage.HasRole(session.UserID, role)
				if err != nil {
					a.logger.Error("Role lookup failed", err,
						logging.String("user_id", session.UserID),
						logging.String("role", role),
					)
					http.Error(w, `{"error": "Internal server error"}`, http.StatusInternalServerError)
					return
				}
				if has {
					next.ServeHTTP(w, r)
					return
				}
			}

			http.Error(w, `{"error": "Forbidden"}`, http.StatusForbidden)
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error": "Authentication required"}`))
}
