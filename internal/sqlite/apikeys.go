package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kjbranchesi/ALF-Coach-sub002/internal/repository"
)

// APIKeyRepository stores hashed bearer tokens for the remote store.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Create issues a new token for ownerID and returns it in clear text once.
func (r *APIKeyRepository) Create(ctx context.Context, ownerID, description string) (string, error) {
	if strings.TrimSpace(ownerID) == "" {
		return "", repository.ErrInvalidInput
	}
	token := "alf_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := r.Register(ctx, ownerID, token, description); err != nil {
		return "", err
	}
	return token, nil
}

// Register stores a caller-supplied token. Registering the same token again is a no-op.
func (r *APIKeyRepository) Register(ctx context.Context, ownerID, token, description string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, owner_id, description)
		VALUES (?, ?, ?)
		ON CONFLICT(key_hash) DO NOTHING
	`, HashToken(token), ownerID, description)
	if err != nil {
		return fmt.Errorf("failed to register api key: %w", err)
	}
	return nil
}

// ResolveOwner maps a bearer token to its owner and records its use.
func (r *APIKeyRepository) ResolveOwner(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", repository.ErrNotFound
	}
	hash := HashToken(token)

	var ownerID string
	err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM api_keys WHERE key_hash = ?`, hash).Scan(&ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, time.Now().UTC(), hash); err != nil {
		return "", fmt.Errorf("failed to touch api key: %w", err)
	}
	return ownerID, nil
}
