package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/lyricsify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	TokenService = "com.lyricsify.spotify"
	TokenAccount = "spotify_token"
)

// StoredToken is the serialized form of a credential.
type StoredToken struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Scopes       []string   `json:"scopes"`
}

// NewStoredToken converts an [oauth2.Token], reading granted scopes from its "scope" extra.
func NewStoredToken(token *oauth2.Token) StoredToken {
	stored := StoredToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		Scopes:       []string{},
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry.UTC()
		stored.ExpiresAt = &expiry
	}
	if scope, ok := token.Extra("scope").(string); ok && scope != "" {
		stored.Scopes = strings.Fields(scope)
	}
	return stored
}

// OAuth2 converts back to an [oauth2.Token].
func (s StoredToken) OAuth2() *oauth2.Token {
	token := &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
	}
	if s.ExpiresAt != nil {
		token.Expiry = *s.ExpiresAt
	}
	if len(s.Scopes) > 0 {
		token = token.WithExtra(map[string]any{"scope": strings.Join(s.Scopes, " ")})
	}
	return token
}

// TokenRepository is the token store, backed by the secrets table.
type TokenRepository struct {
	db      *sql.DB
	service string
	account string
}

// NewTokenRepository creates a token store keyed by [TokenService] and [TokenAccount].
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db, service: TokenService, account: TokenAccount}
}

// Get loads the stored token. A missing entry is [shared.ErrNotAuthenticated].
func (r *TokenRepository) Get(ctx context.Context) (*oauth2.Token, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM secrets WHERE service = ? AND account = ?`, r.service, r.account,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrNotAuthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token: %w", err)
	}

	var stored StoredToken
	if err := json.Unmarshal([]byte(payload), &stored); err != nil {
		return nil, fmt.Errorf("%w: stored token is unreadable: %v", shared.ErrNotAuthenticated, err)
	}
	if stored.AccessToken == "" {
		return nil, fmt.Errorf("%w: stored token is empty", shared.ErrNotAuthenticated)
	}

	return stored.OAuth2(), nil
}

// Put replaces the stored token.
func (r *TokenRepository) Put(ctx context.Context, token *oauth2.Token) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: token is empty", shared.ErrInvalidArgument)
	}

	payload, err := json.Marshal(NewStoredToken(token))
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO secrets (service, account, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(service, account) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at
	`, r.service, r.account, string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}

	return nil
}

// Clear removes the stored token. Clearing an empty store is not an error.
func (r *TokenRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM secrets WHERE service = ? AND account = ?`, r.service, r.account,
	); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}
