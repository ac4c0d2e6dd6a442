package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/infobase/internal/store"
)

// NextValue increments the named sequence atomically.
func (s *Store) NextValue(ctx context.Context, name string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO sequences (name, value) VALUES (?, 1)
		ON CONFLICT(name) DO UPDATE SET value = value + 1
		RETURNING value
	`, name).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("next value %s: %w", name, err)
	}
	return v, nil
}

// CurrentValue returns the last value issued by the named sequence, 0 if
// it was never used.
func (s *Store) CurrentValue(ctx context.Context, name string) (int64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT value FROM sequences WHERE name = ?`, name).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current value %s: %w", name, err)
	}
	return v, nil
}

// NewKey returns a key no Thing uses and no earlier call returned.
func (s *Store) NewKey(ctx context.Context, typeKey string, hints map[string]string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("new key: begin tx: %w", err)
	}
	defer tx.Rollback()

	key, err := store.GenerateKey(ctx, typeKey, hints, func(ctx context.Context, key string) (bool, error) {
		var taken bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM things WHERE key = ?)
			    OR EXISTS (SELECT 1 FROM issued_keys WHERE key = ?)
		`, key, key).Scan(&taken)
		return taken, err
	})
	if err != nil {
		return "", err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO issued_keys (key) VALUES (?)`, key); err != nil {
		return "", fmt.Errorf("new key: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("new key: commit: %w", err)
	}
	return key, nil
}

// GetUserDetails returns the credentials of user key.
func (s *Store) GetUserDetails(ctx context.Context, key string) (*store.UserDetails, error) {
	var (
		u     store.UserDetails
		email sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT key, email, enc_password FROM users WHERE key = ?
	`, key).Scan(&u.Key, &email, &u.EncryptedPassword)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", key, err)
	}
	u.Email = email.String
	return &u, nil
}

// UpdateUserDetails creates or updates user key.
func (s *Store) UpdateUserDetails(ctx context.Context, key, email, encryptedPassword string) error {
	if key == "" {
		return fmt.Errorf("update user: %w: empty key", store.ErrValidation)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update user: begin tx: %w", err)
	}
	defer tx.Rollback()

	var (
		curEmail sql.NullString
		curPass  string
	)
	err = tx.QueryRowContext(ctx, `SELECT email, enc_password FROM users WHERE key = ?`, key).Scan(&curEmail, &curPass)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("update user %s: %w", key, err)
	}

	if email != "" {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT key FROM users WHERE email = ? AND key != ?`, email, key).Scan(&owner)
		if err == nil {
			return fmt.Errorf("update user %s: %w: email already in use", key, store.ErrValidation)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("update user %s: %w", key, err)
		}
		curEmail = sql.NullString{String: email, Valid: true}
	}
	if encryptedPassword != "" {
		curPass = encryptedPassword
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO users (key, email, enc_password) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET email = excluded.email, enc_password = excluded.enc_password
	`, key, curEmail, curPass)
	if isUniqueViolation(err) {
		return fmt.Errorf("update user %s: %w: email already in use", key, store.ErrValidation)
	}
	if err != nil {
		return fmt.Errorf("update user %s: %w", key, err)
	}
	return tx.Commit()
}

// FindUser returns the key of the user with the given email.
func (s *Store) FindUser(ctx context.Context, email string) (string, error) {
	var key string
	err := s.db.QueryRowContext(ctx, `SELECT key FROM users WHERE email = ?`, email).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find user %s: %w", email, store.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find user %s: %w", email, err)
	}
	return key, nil
}
