package postgres

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"game-portal/internal/common/errors"
	"game-portal/internal/storage"
)

type Adapter struct {
	db     *sql.DB
	config *Config
}

// NewAdapter connects to PostgreSQL and runs migrations
func NewAdapter(config *Config) (*Adapter, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid PostgreSQL config: %w", err)
	}

	db, err := sql.Open("pgx", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	adapter := &Adapter{db: db, config: config}

	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return adapter, nil
}

func (a *Adapter) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS game_accounts (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			account_name TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_accounts_user ON game_accounts(user_id)`,
		`CREATE TABLE IF NOT EXISTS user_roles (
			user_id TEXT NOT NULL,
			role TEXT NOT NULL,
			granted_by TEXT NOT NULL,
			granted_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, role)
		)`,
		`CREATE TABLE IF NOT EXISTS tester_requests (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			reviewed_by TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			reviewed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS posts (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL,
			body TEXT NOT NULL,
			author TEXT NOT NULL,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS download_grants (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			file_name TEXT NOT NULL,
			secret_hash TEXT NOT NULL,
			used BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
	err := a.db.QueryRow(
		`INSERT INTO game_accounts (user_id, account_name, created_at)
		 VALUES ($1, $2, $3) RETURNING id`,
		account.UserID, account.AccountName, account.CreatedAt,
	).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to create game account link: %w", err)
	}
	return nil
}

func (a *Adapter) GetGameAccount(userID, accountName string) (*storage.GameAccount, error) {
	account := &storage.GameAccount{}
	err := a.db.QueryRow(
		`SELECT id, user_id, account_name, created_at FROM game_accounts
		 WHERE user_id = $1 AND account_name = $2`,
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
		 WHERE user_id = $1 ORDER BY created_at`,
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
		`DELETE FROM game_accounts WHERE user_id = $1 AND account_name = $2`,
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
		`INSERT INTO user_roles (user_id, role, granted_by, granted_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, role) DO UPDATE SET granted_by = $3, granted_at = $4`,
		userID, role, grantedBy, time.Now().UTC(),
	)
	return err
}

func (a *Adapter) RevokeRole(userID, role string) error {
	result, err := a.db.Exec(
		`DELETE FROM user_roles WHERE user_id = $1 AND role = $2`,
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
	rows, err := a.db.Query(`SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
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
		`SELECT COUNT(1) FROM user_roles WHERE user_id = $1 AND role = $2`,
		userID, role,
	).Scan(&count)
	return count > 0, err
}

// Tester requests

func (a *Adapter) CreateTesterRequest(request *storage.TesterRequest) error {
	request.Status = storage.TesterStatusPending
	request.CreatedAt = time.Now().UTC()
	return a.db.QueryRow(
		`INSERT INTO tester_requests (user_id, message, status, created_at)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		request.UserID, request.Message, request.Status, request.CreatedAt,
	).Scan(&request.ID)
}

func (a *Adapter) GetTesterRequest(id int64) (*storage.TesterRequest, error) {
	request := &storage.TesterRequest{}
	var reviewedAt sql.NullTime
	err := a.db.QueryRow(
		`SELECT id, user_id, message, status, reviewed_by, created_at, reviewed_at
		 FROM tester_requests WHERE id = $1`, id,
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
		query += ` WHERE status = $1`
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
		`UPDATE tester_requests SET status = $1, reviewed_by = $2, reviewed_at = $3
		 WHERE id = $4 AND status = $5`,
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
	return a.db.QueryRow(
		`INSERT INTO posts (title, body, author, published, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		post.Title, post.Body, post.Author, post.Published, post.CreatedAt, post.UpdatedAt,
	).Scan(&post.ID)
}

func (a *Adapter) GetPost(id int64) (*storage.Post, error) {
	post := &storage.Post{}
	err := a.db.QueryRow(
		`SELECT id, title, body, author, published, created_at, updated_at
		 FROM posts WHERE id = $1`, id,
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
	if publishedOnly {
		query += ` WHERE published = TRUE`
	}
	query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := a.db.Query(query, limit, offset)
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
		`UPDATE posts SET title = $1, body = $2, published = $3, updated_at = $4 WHERE id = $5`,
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
	result, err := a.db.Exec(`DELETE FROM posts WHERE id = $1`, id)
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
		 VALUES ($1, $2, $3, $4, FALSE, $5, $6)`,
		grant.ID, grant.UserID, grant.FileName, grant.SecretHash, grant.ExpiresAt, grant.CreatedAt,
	)
	return err
}

func (a *Adapter) GetDownloadGrant(id string) (*storage.DownloadGrant, error) {
	grant := &storage.DownloadGrant{}
	err := a.db.QueryRow(
		`SELECT id, user_id, file_name, secret_hash, used, expires_at, created_at
		 FROM download_grants WHERE id = $1`, id,
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
	result, err := a.db.Exec(
		`UPDATE download_grants SET used = TRUE WHERE id = $1 AND used = FALSE`, id,
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
	result, err := a.db.Exec(`DELETE FROM download_grants WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Settings

func (a *Adapter) GetSetting(key string) (string, error) {
	var value string
	err := a.db.QueryRow(`SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
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
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value,
	)
	return err
}
