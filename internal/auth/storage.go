package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joshdurbin/strava-trends/internal/db"
)

// ErrNotAuthenticated means no usable tokens are stored
var ErrNotAuthenticated = errors.New("not authenticated: restart without --no-sync to sign in")

// Store is the subset of db.Queries that persists auth_config
type Store interface {
	GetAuthConfig(ctx context.Context) (db.AuthConfig, error)
	SaveAuthConfig(ctx context.Context, arg db.SaveAuthConfigParams) error
	UpdateTokens(ctx context.Context, arg db.UpdateTokensParams) error
	DeleteAuthConfig(ctx context.Context) error
}

// Storage handles auth data persistence using SQLite
type Storage struct {
	queries Store
	ctx     context.Context
	refresh func(clientID, clientSecret, refreshToken string) (*TokenResponse, error)
}

// NewStorage creates a new Storage instance
func NewStorage(queries Store) *Storage {
	return &Storage{
		queries: queries,
		ctx:     context.Background(),
		refresh: RefreshAccessToken,
	}
}

// SaveTokens replaces the stored tokens, keeping the client credentials
func (s *Storage) SaveTokens(tokens *TokenResponse) error {
	if _, err := s.queries.GetAuthConfig(s.ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("no client config found: %w", ErrNotAuthenticated)
		}
		return fmt.Errorf("checking existing config: %w", err)
	}

	return s.queries.UpdateTokens(s.ctx, db.UpdateTokensParams{
		AccessToken:  sql.NullString{String: tokens.AccessToken, Valid: true},
		RefreshToken: sql.NullString{String: tokens.RefreshToken, Valid: true},
		ExpiresAt:    sql.NullInt64{Int64: tokens.ExpiresAt, Valid: true},
	})
}

// LoadTokens loads tokens from the database
func (s *Storage) LoadTokens() (*StoredTokens, error) {
	config, err := s.queries.GetAuthConfig(s.ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("loading auth config: %w", err)
	}

	if !config.AccessToken.Valid {
		return nil, ErrNotAuthenticated
	}

	return &StoredTokens{
		AccessToken:  config.AccessToken.String,
		RefreshToken: config.RefreshToken.String,
		ExpiresAt:    config.ExpiresAt.Int64,
	}, nil
}

// SaveClientConfig saves client credentials without tokens
func (s *Storage) SaveClientConfig(clientID, clientSecret string) error {
	return s.queries.SaveAuthConfig(s.ctx, db.SaveAuthConfigParams{
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
}

// SaveFullConfig saves client credentials and tokens together
func (s *Storage) SaveFullConfig(clientID, clientSecret string, tokens *TokenResponse) error {
	return s.queries.SaveAuthConfig(s.ctx, db.SaveAuthConfigParams{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AccessToken:  sql.NullString{String: tokens.AccessToken, Valid: true},
		RefreshToken: sql.NullString{String: tokens.RefreshToken, Valid: true},
		ExpiresAt:    sql.NullInt64{Int64: tokens.ExpiresAt, Valid: true},
	})
}

// LoadClientConfig loads client credentials from the database
func (s *Storage) LoadClientConfig() (*ClientConfig, error) {
	config, err := s.queries.GetAuthConfig(s.ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("client not configured: %w", ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("loading auth config: %w", err)
	}

	return &ClientConfig{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
	}, nil
}

// DeleteTokens removes the stored auth config from the database
func (s *Storage) DeleteTokens() error {
	return s.queries.DeleteAuthConfig(s.ctx)
}

// GetValidAccessToken returns a valid access token, refreshing if necessary
func (s *Storage) GetValidAccessToken() (string, error) {
	tokens, err := s.LoadTokens()
	if err != nil {
		return "", err
	}

	if !IsTokenExpired(tokens.ExpiresAt) {
		return tokens.AccessToken, nil
	}

	config, err := s.LoadClientConfig()
	if err != nil {
		return "", fmt.Errorf("loading client config for refresh: %w", err)
	}

	fresh, err := s.refresh(config.ClientID, config.ClientSecret, tokens.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("refreshing token: %w", err)
	}

	if err := s.SaveTokens(fresh); err != nil {
		return "", fmt.Errorf("saving refreshed tokens: %w", err)
	}

	return fresh.AccessToken, nil
}

// StoredTokens represents the tokens stored in the database
type StoredTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64
}

// ClientConfig represents the stored client credentials
type ClientConfig struct {
	ClientID     string
	ClientSecret string
}
