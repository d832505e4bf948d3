// Package directory consumes the hosted user directory: sign-up, password
// sign-in, MFA enrollment and verification, session refresh and user lookup
// by opaque bearer token. The provider is a black box; the portal never
// sees password hashes or MFA secrets, only tokens and (user-id, email,
// expiry) tuples.
package directory

import (
	"context"
	"time"
)

// User is the directory's view of an account
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	EmailVerified bool      `json:"email_verified"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Session is an issued directory session
type Session struct {
	UserID       string    `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	// MFARequired is set when sign-in succeeded but a second factor is
	// outstanding; Token is then only usable for the MFA endpoints.
	MFARequired bool   `json:"mfa_required"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

// MFAEnrollment carries the data a user needs to register an authenticator
type MFAEnrollment struct {
	Secret     string `json:"secret"`
	OTPAuthURL string `json:"otpauth_url"`
}

// Directory is the portal's contract with the identity provider
type Directory interface {
	SignUp(ctx context.Context, email, password string) (*User, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	EnrollMFA(ctx context.Context, token string) (*MFAEnrollment, error)
	VerifyMFA(ctx context.Context, token, challengeID, code string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Lookup(ctx context.Context, token string) (*User, error)
}
