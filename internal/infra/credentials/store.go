package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"mrwiat/internal/infra"
	"mrwiat/internal/sqlinline"
)

const (
	ProviderRenderer = "renderer"
)

var ErrEmptyToken = errors.New("token is required")

// Store keeps provider API keys in the integration_tokens table so they can
// be rotated without redeploying.
type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

func (s *Store) RendererAPIKey(ctx context.Context) (string, error) {
	return s.Token(ctx, ProviderRenderer)
}

// Token returns the stored token for provider, or "" when none is set.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QCredentialGet, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(token), nil
}

func (s *Store) SetRendererAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyToken
	}
	return s.upsert(ctx, ProviderRenderer, key, map[string]any{
		"rotated_at": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	_, err = s.sql.Exec(ctx, sqlinline.QCredentialUpsert, provider, token, raw)
	return err
}
