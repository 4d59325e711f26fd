// Package auth provides the API key registry for the discovery store's HTTP
// surface. Raw keys are never persisted, only their SHA-256 hashes.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/google/uuid"

	"github.com/scopeworks/discovery/errors"
)

// Key is one registered API key. The raw secret is only available at
// creation time.
type Key struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsActive  bool       `json:"is_active"`
}

// Store handles persistence of API keys.
type Store struct {
	db *sql.DB
}

// NewStore creates a new auth key store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create registers a new API key and returns the record plus the raw secret.
// A nil expiresAt means the key never expires.
func (s *Store) Create(ctx context.Context, name string, expiresAt *time.Time) (*Key, string, error) {
	if name == "" {
		return nil, "", errors.NewInvalidRequestf("key name cannot be empty")
	}

	raw, err := generateSecret()
	if err != nil {
		return nil, "", errors.Wrap(err, "generate key secret")
	}

	key := &Key{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now(),
		ExpiresAt: expiresAt,
		IsActive:  true,
	}

	var expiresCol sql.NullInt64
	if expiresAt != nil {
		expiresCol = sql.NullInt64{Int64: expiresAt.UnixMilli(), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO auth_keys (id, key_hash, name, created_at, expires_at, is_active)
		 VALUES (?, ?, ?, ?, ?, 1)`,
		key.ID, hashKey(raw), key.Name, key.CreatedAt.UnixMilli(), expiresCol,
	)
	if err != nil {
		return nil, "", errors.Wrap(err, "create auth key")
	}

	return key, raw, nil
}

// Validate looks up a raw key and returns its record only when the key is
// active and unexpired. Unknown, revoked, and expired keys all surface the
// same not-found error so callers cannot distinguish them.
func (s *Store) Validate(ctx context.Context, rawKey string) (*Key, error) {
	key := &Key{}
	var createdAt int64
	var expiresAt sql.NullInt64
	var isActive int

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at, expires_at, is_active
		 FROM auth_keys WHERE key_hash = ?`,
		hashKey(rawKey),
	).Scan(&key.ID, &key.Name, &createdAt, &expiresAt, &isActive)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundf("api key")
	}
	if err != nil {
		return nil, errors.Wrap(err, "look up api key")
	}

	key.CreatedAt = time.UnixMilli(createdAt).UTC()
	key.IsActive = isActive != 0
	if expiresAt.Valid {
		t := time.UnixMilli(expiresAt.Int64).UTC()
		key.ExpiresAt = &t
	}

	if !key.IsActive {
		return nil, errors.NewNotFoundf("api key")
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
		return nil, errors.NewNotFoundf("api key")
	}

	return key, nil
}

// Revoke deactivates a key by id. Revoking an already-revoked key is a
// no-op; revoking an unknown id is a not-found error.
func (s *Store) Revoke(ctx context.Context, keyID string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE auth_keys SET is_active = 0 WHERE id = ?", keyID)
	if err != nil {
		return errors.Wrap(err, "revoke auth key")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if n == 0 {
		return errors.NewNotFoundf("auth key %s", keyID)
	}
	return nil
}

// List returns all registered keys, newest first.
func (s *Store) List(ctx context.Context) ([]*Key, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, created_at, expires_at, is_active
		 FROM auth_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "list auth keys")
	}
	defer rows.Close()

	var keys []*Key
	for rows.Next() {
		key := &Key{}
		var createdAt int64
		var expiresAt sql.NullInt64
		var isActive int

		if err := rows.Scan(&key.ID, &key.Name, &createdAt, &expiresAt, &isActive); err != nil {
			return nil, errors.Wrap(err, "scan auth key")
		}
		key.CreatedAt = time.UnixMilli(createdAt).UTC()
		key.IsActive = isActive != 0
		if expiresAt.Valid {
			t := time.UnixMilli(expiresAt.Int64).UTC()
			key.ExpiresAt = &t
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// hashKey creates a SHA-256 hash of a raw key for storage and lookup.
func hashKey(rawKey string) string {
	hash := sha256.Sum256([]byte(rawKey))
	return hex.EncodeToString(hash[:])
}

// generateSecret produces a 32-byte hex-encoded random key.
func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
