package db

import (
	"context"
	"database/sql"
	"time"
)

const getAuthConfig = `SELECT id, client_id, client_secret, access_token, refresh_token, expires_at,
	created_at, updated_at
FROM auth_config WHERE id = 1`

// GetAuthConfig returns sql.ErrNoRows until credentials are saved
func (q *Queries) GetAuthConfig(ctx context.Context) (AuthConfig, error) {
	var (
		c                    AuthConfig
		createdAt, updatedAt int64
	)
	err := q.db.QueryRowContext(ctx, getAuthConfig).Scan(
		&c.ID,
		&c.ClientID,
		&c.ClientSecret,
		&c.AccessToken,
		&c.RefreshToken,
		&c.ExpiresAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return AuthConfig{}, err
	}
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return c, nil
}

const saveAuthConfig = `
INSERT INTO auth_config (id, client_id, client_secret, access_token, refresh_token, expires_at)
VALUES (1, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	client_id = excluded.client_id,
	client_secret = excluded.client_secret,
	access_token = excluded.access_token,
	refresh_token = excluded.refresh_token,
	expires_at = excluded.expires_at,
	updated_at = unixepoch()
`

type SaveAuthConfigParams struct {
	ClientID     string
	ClientSecret string
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
}

// SaveAuthConfig replaces the stored credentials and tokens
func (q *Queries) SaveAuthConfig(ctx context.Context, arg SaveAuthConfigParams) error {
	_, err := q.db.ExecContext(ctx, saveAuthConfig,
		arg.ClientID,
		arg.ClientSecret,
		arg.AccessToken,
		arg.RefreshToken,
		arg.ExpiresAt,
	)
	return err
}

const updateTokens = `
UPDATE auth_config
SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = unixepoch()
WHERE id = 1
`

type UpdateTokensParams struct {
	AccessToken  sql.NullString
	RefreshToken sql.NullString
	ExpiresAt    sql.NullInt64
}

func (q *Queries) UpdateTokens(ctx context.Context, arg UpdateTokensParams) error {
	_, err := q.db.ExecContext(ctx, updateTokens, arg.AccessToken, arg.RefreshToken, arg.ExpiresAt)
	return err
}

const deleteAuthConfig = `DELETE FROM auth_config WHERE id = 1`

func (q *Queries) DeleteAuthConfig(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAuthConfig)
	return err
}
