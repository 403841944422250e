package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TokenRepo persists/validates refresh tokens (single 'token_hash' column).
// Rows are deleted rather than flagged: a session ends when its row is gone.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// FindValid succeeds only when a row with tokenHash exists, belongs to
// userID and has not expired at now.  Any mismatch is ErrNotFound.
func (r *TokenRepo) FindValid(ctx context.Context, tokenHash, userID string, now time.Time) error {
	var (
		owner     string
		expiresAt time.Time
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id, expires_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&owner, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if owner != userID || !now.UTC().Before(expiresAt) {
		return ErrNotFound
	}
	return nil
}

// DeleteByHash removes a session.  Deleting a missing row is not an error.
func (r *TokenRepo) DeleteByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE token_hash=?", tokenHash)
	return err
}

// Rotate replaces oldHash with newHash for the same user in one
// transaction.  When oldHash is already gone (logged out or rotated by a
// concurrent request) nothing is inserted and ErrNotFound is returned, so
// one logical session never yields two live rows.
func (r *TokenRepo) Rotate(ctx context.Context, userID, oldHash, newHash string, exp time.Time) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx,
		"DELETE FROM refresh_tokens WHERE token_hash=? AND user_id=?", oldHash, userID)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, newHash, exp.UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// DeleteExpired purges rows whose expiry is at or before now and reports
// how many were removed.
func (r *TokenRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at <= ?", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
