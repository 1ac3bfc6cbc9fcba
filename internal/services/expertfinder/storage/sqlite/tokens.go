package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/expertfinder/internal/services/expertfinder/signin"
)

// SavePendingSignIn stores a completed OAuth flow behind its verification
// code.
func (s *Store) SavePendingSignIn(ctx context.Context, pending signin.PendingSignIn) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	if strings.TrimSpace(pending.UserID) == "" || strings.TrimSpace(pending.Code) == "" {
		return fmt.Errorf("pending sign-in user and code are required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO pending_sign_ins (user_id, code, access_token, token_expires_at, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, code) DO UPDATE SET
			access_token = excluded.access_token,
			token_expires_at = excluded.token_expires_at,
			expires_at = excluded.expires_at,
			created_at = excluded.created_at`,
		pending.UserID, pending.Code, pending.Token.AccessToken,
		toMillis(pending.Token.ExpiresAt), toMillis(pending.ExpiresAt), toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("save pending sign-in: %w", err)
	}
	return nil
}

// RedeemPendingSignIn consumes a matching unexpired pending sign-in and
// makes its token the user's active token.
func (s *Store) RedeemPendingSignIn(ctx context.Context, userID, code string, now time.Time) (signin.Token, bool, error) {
	if err := s.ensureDB(); err != nil {
		return signin.Token{}, false, err
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return signin.Token{}, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var accessToken string
	var tokenExpiresAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT access_token, token_expires_at FROM pending_sign_ins
		WHERE user_id = ? AND code = ? AND expires_at > ?`,
		userID, code, toMillis(now),
	).Scan(&accessToken, &tokenExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return signin.Token{}, false, nil
	}
	if err != nil {
		return signin.Token{}, false, fmt.Errorf("load pending sign-in: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_sign_ins WHERE user_id = ? AND code = ?`, userID, code); err != nil {
		return signin.Token{}, false, fmt.Errorf("consume pending sign-in: %w", err)
	}
	token := signin.Token{AccessToken: accessToken, ExpiresAt: fromMillis(tokenExpiresAt)}
	if !token.ExpiresAt.After(now.UTC()) {
		if err := tx.Commit(); err != nil {
			return signin.Token{}, false, fmt.Errorf("commit: %w", err)
		}
		return signin.Token{}, false, nil
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_tokens (user_id, access_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token = excluded.access_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		userID, accessToken, tokenExpiresAt, toMillis(now),
	); err != nil {
		return signin.Token{}, false, fmt.Errorf("store active token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return signin.Token{}, false, fmt.Errorf("commit: %w", err)
	}
	return token, true, nil
}

// ActiveToken returns the user's unexpired token.
func (s *Store) ActiveToken(ctx context.Context, userID string, now time.Time) (signin.Token, bool, error) {
	if err := s.ensureDB(); err != nil {
		return signin.Token{}, false, err
	}
	var token signin.Token
	var expiresAt int64
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT access_token, expires_at FROM user_tokens WHERE user_id = ? AND expires_at > ?`,
		userID, toMillis(now),
	).Scan(&token.AccessToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return signin.Token{}, false, nil
	}
	if err != nil {
		return signin.Token{}, false, fmt.Errorf("load active token: %w", err)
	}
	token.ExpiresAt = fromMillis(expiresAt)
	return token, true, nil
}

// CleanupExpired deletes expired pending sign-ins and tokens.
func (s *Store) CleanupExpired(ctx context.Context, now time.Time) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	cutoff := toMillis(now)
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM pending_sign_ins WHERE expires_at <= ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup pending sign-ins: %w", err)
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM user_tokens WHERE expires_at <= ?`, cutoff); err != nil {
		return fmt.Errorf("cleanup tokens: %w", err)
	}
	return nil
}
