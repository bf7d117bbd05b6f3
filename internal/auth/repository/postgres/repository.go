package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fintrack/auth-service/internal/auth/domain"
)

// Querier is the subset of pgxpool.Pool the repository needs; pgxmock
// pools implement it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, full_name, email, password_hash, role, status,
			failed_login_attempts, locked_until, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, user.ID, user.FullName, user.Email, user.PasswordHash, user.Role, user.Status,
		user.FailedLoginAttempts, user.LockedUntil, user.PasswordChangedAt, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *Repository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id, full_name, email, password_hash, role, status,
			failed_login_attempts, locked_until, password_changed_at, created_at, updated_at
		FROM users
		WHERE lower(email) = lower($1)
		LIMIT 1;
	`
	return r.scanUser(r.db.QueryRow(ctx, query, email))
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, full_name, email, password_hash, role, status,
			failed_login_attempts, locked_until, password_changed_at, created_at, updated_at
		FROM users
		WHERE id = $1
		LIMIT 1;
	`
	return r.scanUser(r.db.QueryRow(ctx, query, id))
}

// UpdateLoginSecurity writes the failure counter and lock timestamp in one
// statement. Two concurrent failed logins can both read the pre-increment
// counter and write the same value; the under-count of one attempt is an
// accepted trade-off.
func (r *Repository) UpdateLoginSecurity(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET failed_login_attempts = $2, locked_until = $3, updated_at = now()
		WHERE id = $1
	`, userID, failedAttempts, lockedUntil)

	return err
}

func (r *Repository) UpdatePassword(ctx context.Context, userID, passwordHash string, changedAt time.Time) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET password_hash = $2, password_changed_at = $3, updated_at = now()
		WHERE id = $1
	`, userID, passwordHash, changedAt)

	return err
}

// Deactivate soft-deletes the record; the row is kept.
func (r *Repository) Deactivate(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users SET status = 'deactivated', updated_at = now() WHERE id = $1
	`, userID)

	return err
}

func (r *Repository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	query := `INSERT INTO refresh_tokens (id, user_id, token_hash, ip_address, expires_at, created_at, revoked)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.Exec(ctx, query,
		rt.ID, rt.UserID, rt.TokenHash, rt.IPAddress, rt.ExpiresAt, rt.CreatedAt, rt.Revoked)

	return err
}

func (r *Repository) GetRefreshTokenByID(ctx context.Context, id string) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token_hash, ip_address, expires_at, created_at, revoked
		FROM refresh_tokens
		WHERE id = $1
		LIMIT 1;
	`
	row := r.db.QueryRow(ctx, query, id)

	var rt domain.RefreshToken
	err := row.Scan(&rt.ID, &rt.UserID, &rt.TokenHash, &rt.IPAddress, &rt.ExpiresAt, &rt.CreatedAt, &rt.Revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &rt, nil
}

func (r *Repository) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1
	`, id)

	return err
}

func (r *Repository) RevokeAllRefreshTokens(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE
	`, userID)

	return err
}

func (r *Repository) GetActiveTokenCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM refresh_tokens
		WHERE user_id = $1 AND revoked = FALSE AND expires_at > now()
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active tokens: %w", err)
	}

	return count, nil
}

func (r *Repository) DeleteOldestRefreshToken(ctx context.Context, userID string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE id = (
			SELECT id FROM refresh_tokens
			WHERE user_id = $1
			ORDER BY created_at ASC
			LIMIT 1
		)
	`, userID)

	return err
}

func (r *Repository) DeleteExpiredRefreshTokens(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens WHERE expires_at < now()
	`)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (r *Repository) RecordLoginAttempt(ctx context.Context, userID, email, ip string, success bool) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO login_attempts (id, user_id, email, ip_address, attempt_time, successful)
		VALUES (gen_random_uuid(), $1, $2, $3, now(), $4)
	`, userID, email, ip, success)

	return err
}

// TrimLoginAttempts keeps the most recent rows per user so the history
// behaves as a bounded ring buffer.
func (r *Repository) TrimLoginAttempts(ctx context.Context, keep int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM login_attempts a
		USING (
			SELECT id, row_number() OVER (PARTITION BY user_id ORDER BY attempt_time DESC) AS rn
			FROM login_attempts
		) ranked
		WHERE a.id = ranked.id AND ranked.rn > $1
	`, keep)

	return err
}

func (r *Repository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &user.Role, &user.Status,
		&user.FailedLoginAttempts, &user.LockedUntil, &user.PasswordChangedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}
