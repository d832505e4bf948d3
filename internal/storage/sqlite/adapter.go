package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"game-portal/internal/common/errors"
	"game-portal/internal/storage"
)

type Adapter struct {
	db   *sql.DB
	path string
}

// NewAdapter opens (or creates) the SQLite database at path and runs
// migrations. Use ":memory:" for tests.
func NewAdapter(path string) (*Adapter, error) {
	if path == "" {
		return nil, errors.ConfigError("sqlite database path is required")
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{db: db, path: path}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS game_accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			account_name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_accounts_user ON game_accounts(user_id)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			granted_by TEXT NOT NULL,
			granted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, role)
		)`,
		`CREATE TABLE IF NOT EXISTS tester_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			reviewed_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			reviewed_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			author TEXT NOT NULL,
			published INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS download_grants (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			secret_hash TEXT NOT NULL,
			used INTEGER NOT NULL DEFAULT 0,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}

	for _, stmt := range schema {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) Health() error {
	return a.db.Ping()
}

// Game account links

func (a *Adapter) CreateGameAccount(account *storage.GameAccount) error {
	account.CreatedAt = time.Now().UTC()
	result, err := a.db.Exec(
		`INSERT INTO game_accounts (user_id, account_name, created_at) VALUES (?, ?, ?)`,
		account.UserID, account.AccountName, account.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create game account link: %w", err)
	}

	account.ID, _ = result.LastInsertId()
	return nil
}

func (a *Adapter) GetGameAccount(userID, accountName string) (*storage.GameAccount, error) {
	account := &storage.GameAccount{}
	err := a.db.QueryRow(
		`SELECT id, user_id, account_name, created_at FROM game_accounts
		 WHERE user_id = ? AND account_name = ?`,
		userID, accountName,
	).Scan(&account.ID, &account.UserID, &account.AccountName, &account.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("game account")
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (a *Adapter) ListGameAccounts(userID string) ([]*storage.GameAccount, error) {
	rows, err := a.db.Query(
		`SELECT id, user_id, account_name, created_at FROM game_accounts
		 WHERE user_id = ? ORDER BY created_at`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*storage.GameAccount
	for rows.Next() {
		account := &storage.GameAccount{}
		if err := rows.Scan(&account.ID, &account.UserID, &account.AccountName, &account.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (a *Adapter) DeleteGameAccount(userID, accountName string) error {
	result, err := a.db.Exec(
		`DELETE FROM game_accounts WHERE user_id = ? AND account_name = ?`,
		userID, accountName,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFoundError("game account")
	}
	return nil
}

// Roles

func (a *Adapter) GrantRole(userID, role, grantedBy string) error {
	_, err := a.db.Exec(
		`INSERT OR REPLACE INTO user_roles (user_id, role, granted_by, granted_at)
		 VALUES (?, ?, ?, ?)`,
		userID, role, grantedBy, time.Now().UTC(),
	)
	return err
}

func (a *Adapter) RevokeRole(userID, role string) error {
	result, err := a.db.Exec(
		`DELETE FROM user_roles WHERE user_id = ? AND role = ?`,
		userID, role,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFoundError("role")
	}
	return nil
}

func (a *Adapter) GetRoles(userID string) ([]string, error) {
	rows, err := a.db.Query(`SELECT role FROM user_roles WHERE user_id = ? ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (a *Adapter) HasRole(userID, role string) (bool, error) {
	var count int
	err := a.db.QueryRow(
		`SELECT COUNT(1) FROM user_roles WHERE user_id = ? AND role = ?`,
		userID, role,
	).Scan(&count)
	return count > 0, err
}

// Tester requests

func (a *Adapter) CreateTesterRequest(request *storage.TesterRequest) error {
	request.Status = storage.TesterStatusPending
	request.CreatedAt = time.Now().UTC()
	result, err := a.db.Exec(
		`INSERT INTO tester_requests (user_id, message, status, created_at) VALUES (?, ?, ?, ?)`,
		request.UserID, request.Message, request.Status, request.CreatedAt,
	)
	if err != nil {
		return err
	}
	request.ID, _ = result.LastInsertId()
	return nil
}

func (a *Adapter) GetTesterRequest(id int64) (*storage.TesterRequest, error) {
	request := &storage.TesterRequest{}
	var reviewedAt sql.NullTime
	err := a.db.QueryRow(
		`SELECT id, user_id, message, status, reviewed_by, created_at, reviewed_at
		 FROM tester_requests WHERE id = ?`, id,
	).Scan(&request.ID, &request.UserID, &request.Message, &request.Status,
		&request.ReviewedBy, &request.CreatedAt, &reviewedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("tester request")
	}
	if err != nil {
		return nil, err
	}
	if reviewedAt.Valid {
		request.ReviewedAt = &reviewedAt.Time
	}
	return request, nil
}

func (a *Adapter) ListTesterRequests(status string) ([]*storage.TesterRequest, error) {
	query := `SELECT id, user_id, message, status, reviewed_by, created_at, reviewed_at
		 FROM tester_requests`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at`

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*storage.TesterRequest
	for rows.Next() {
		request := &storage.TesterRequest{}
		var reviewedAt sql.NullTime
		if err := rows.Scan(&request.ID, &request.UserID, &request.Message, &request.Status,
			&request.ReviewedBy, &request.CreatedAt, &reviewedAt); err != nil {
			return nil, err
		}
		if reviewedAt.Valid {
			request.ReviewedAt = &reviewedAt.Time
		}
		requests = append(requests, request)
	}
	return requests, rows.Err()
}

func (a *Adapter) ReviewTesterRequest(id int64, status, reviewedBy string) error {
	if status != storage.TesterStatusApproved && status != storage.TesterStatusDenied {
		return errors.ValidationError("invalid review status: " + status)
	}

	result, err := a.db.Exec(
		`UPDATE tester_requests SET status = ?, reviewed_by = ?, reviewed_at = ?
		 WHERE id = ? AND status = ?`,
		status, reviewedBy, time.Now().UTC(), id, storage.TesterStatusPending,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFoundError("pending tester request")
	}
	return nil
}

// Published content

func (a *Adapter) CreatePost(post *storage.Post) error {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	result, err := a.db.Exec(
		`INSERT INTO posts (title, body, author, published, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.Title, post.Body, post.Author, post.Published, post.CreatedAt, post.UpdatedAt,
	)
	if err != nil {
		return err
	}
	post.ID, _ = result.LastInsertId()
	return nil
}

func (a *Adapter) GetPost(id int64) (*storage.Post, error) {
	post := &storage.Post{}
	err := a.db.QueryRow(
		`SELECT id, title, body, author, published, created_at, updated_at
		 FROM posts WHERE id = ?`, id,
	).Scan(&post.ID, &post.Title, &post.Body, &post.Author, &post.Published,
		&post.CreatedAt, &post.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("post")
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

func (a *Adapter) ListPosts(publishedOnly bool, limit, offset int) ([]*storage.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, title, body, author, published, created_at, updated_at FROM posts`
	args := []interface{}{}
	if publishedOnly {
		query += ` WHERE published = 1`
	}
	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := a.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*storage.Post
	for rows.Next() {
		post := &storage.Post{}
		if err := rows.Scan(&post.ID, &post.Title, &post.Body, &post.Author, &post.Published,
			&post.CreatedAt, &post.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (a *Adapter) UpdatePost(post *storage.Post) error {
	post.UpdatedAt = time.Now().UTC()
	result, err := a.db.Exec(
		`UPDATE posts SET title = ?, body = ?, published = ?, updated_at = ? WHERE id = ?`,
		post.Title, post.Body, post.Published, post.UpdatedAt, post.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFoundError("post")
	}
	return nil
}

func (a *Adapter) DeletePost(id int64) error {
	result, err := a.db.Exec(`DELETE FROM posts WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFoundError("post")
	}
	return nil
}

// Download grants

func (a *Adapter) CreateDownloadGrant(grant *storage.DownloadGrant) error {
	grant.CreatedAt = time.Now().UTC()
	_, err := a.db.Exec(
		`INSERT INTO download_grants (id, user_id, file_name, secret_hash, used, expires_at, created_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)`,
		grant.ID, grant.UserID, grant.FileName, grant.SecretHash, grant.ExpiresAt, grant.CreatedAt,
	)
	return err
}

func (a *Adapter) GetDownloadGrant(id string) (*storage.DownloadGrant, error) {
	grant := &storage.DownloadGrant{}
	err := a.db.QueryRow(
		`SELECT id, user_id, file_name, secret_hash, used, expires_at, created_at
		 FROM download_grants WHERE id = ?`, id,
	).Scan(&grant.ID, &grant.UserID, &grant.FileName, &grant.SecretHash, &grant.Used,
		&grant.ExpiresAt, &grant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("download grant")
	}
	if err != nil {
		return nil, err
	}
	return grant, nil
}

func (a *Adapter) MarkGrantUsed(id string) error {
	// Single-use: the update only succeeds for an unused grant
	result, err := a.db.Exec(
		`UPDATE download_grants SET used = 1 WHERE id = ? AND used = 0`, id,
	)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NotFoundError("unused download grant")
	}
	return nil
}

func (a *Adapter) DeleteExpiredGrants(now time.Time) (int64, error) {
	result, err := a.db.Exec(`DELETE FROM download_grants WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Settings

func (a *Adapter) GetSetting(key string) (string, error) {
	var value string
	err := a.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", errors.NotFoundError("setting")
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (a *Adapter) SetSetting(key, value string) error {
	_, err := a.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
