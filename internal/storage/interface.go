// Package storage defines the portal's relational store: game-account
// links, user roles, tester requests, published posts, download grants and
// a settings key-value table. SQLite is the default backend; PostgreSQL is
// available for multi-instance deployments.
package storage

import "time"

type Storage interface {
	// Connection management
	Close() error
	Health() error

	// Game account links
	CreateGameAccount(account *GameAccount) error
	GetGameAccount(userID, accountName string) (*GameAccount, error)
	ListGameAccounts(userID string) ([]*GameAccount, error)
	DeleteGameAccount(userID, accountName string) error

	// Roles
	GrantRole(userID, role, grantedBy string) error
	RevokeRole(userID, role string) error
	GetRoles(userID string) ([]string, error)
	HasRole(userID, role string) (bool, error)

	// Tester requests
	CreateTesterRequest(request *TesterRequest) error
	GetTesterRequest(id int64) (*TesterRequest, error)
	ListTesterRequests(status string) ([]*TesterRequest, error)
	ReviewTesterRequest(id int64, status, reviewedBy string) error

	// Published content
	CreatePost(post *Post) error
	GetPost(id int64) (*Post, error)
	ListPosts(publishedOnly bool, limit, offset int) ([]*Post, error)
	UpdatePost(post *Post) error
	DeletePost(id int64) error

	// Download grants
	CreateDownloadGrant(grant *DownloadGrant) error
	GetDownloadGrant(id string) (*DownloadGrant, error)
	MarkGrantUsed(id string) error
	DeleteExpiredGrants(now time.Time) (int64, error)

	// Settings
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}
