package storage

import "time"

// GameAccount links a portal user to a game account held by the admin panel.
// The portal never stores game credentials; the admin panel owns those.
type GameAccount struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	AccountName string    `json:"account_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// Role names the portal understands
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleTester    = "tester"
)

// UserRole grants a portal user a role (admin, tester)
type UserRole struct {
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	GrantedBy string    `json:"granted_by"`
	GrantedAt time.Time `json:"granted_at"`
}

// Tester request states
const (
	TesterStatusPending  = "pending"
	TesterStatusApproved = "approved"
	TesterStatusDenied   = "denied"
)

// TesterRequest is a user's application for the tester role, reviewed by an
// admin
type TesterRequest struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	Message    string     `json:"message"`
	Status     string     `json:"status"`
	ReviewedBy string     `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	ReviewedAt *time.Time `json:"reviewed_at,omitempty"`
}

// Post is published content: news, patch notes, announcements
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DownloadGrant is a short-lived, single-use authorization to fetch a binary
// through the portal. Only a bcrypt hash of the grant secret is stored.
type DownloadGrant struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	FileName   string    `json:"file_name"`
	SecretHash string    `json:"-"`
	Used       bool      `json:"used"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}
