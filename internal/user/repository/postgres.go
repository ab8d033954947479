package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"lapra-tech/backend/internal/user/domain"
)

// verifiedSlotLockKey is the advisory lock key serializing slot claims across
// all server instances sharing the database. Concurrent verifications queue on
// this lock so the count-and-claim sequence never interleaves.
const verifiedSlotLockKey int64 = 0x4c505254 // "LPRT"

const uniqueViolation = "23505"

const userColumns = "id, name, email, mobile, password_hash, is_verified, otp_hash, otp_expires_at, registration_order, created_at, updated_at"

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetByEmailOrMobile returns a user matching either the email or the mobile
// number, or nil if none match. At most one row can match each field because
// both carry uniqueness constraints.
func (r *PostgresRepository) GetByEmailOrMobile(ctx context.Context, email, mobile string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = $1 OR mobile = $2 LIMIT 1", email, mobile)
	return scanUser(row)
}

// Create persists the user to the database. The user must have ID set; it is
// not assigned by this method. Uniqueness violations are translated to
// ErrDuplicateEmail / ErrDuplicateMobile by inspecting the violated constraint.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, mobile, password_hash, is_verified, otp_hash, otp_expires_at, registration_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		u.ID, u.Name, u.Email, u.Mobile, u.PasswordHash, u.IsVerified,
		nullString(u.OTPHash), nullTime(u.OTPExpiresAt), nullInt(u.RegistrationOrder),
		u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return translateUnique(err)
	}
	return nil
}

// UpdateOTP replaces the pending OTP hash and expiry on an unverified user.
// A verified or missing user is left untouched.
func (r *PostgresRepository) UpdateOTP(ctx context.Context, id, otpHash string, expiresAt, updatedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET otp_hash = $2, otp_expires_at = $3, updated_at = $4
		 WHERE id = $1 AND NOT is_verified`,
		id, otpHash, expiresAt, updatedAt)
	return err
}

// CountVerified returns the number of users currently holding verified status.
func (r *PostgresRepository) CountVerified(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT count(*) FROM users WHERE is_verified").Scan(&n)
	return n, err
}

// VerifyAndClaimSlot marks the user verified, clears the OTP, and claims a
// registration slot. The whole sequence runs in one transaction behind a
// transaction-scoped advisory lock, so two concurrent claims for the last slot
// cannot both succeed. The UPDATE only matches a pending user; a user already
// verified (or deleted) by a concurrent request is reported via
// ErrAlreadyVerified / ErrUserNotFound instead of being claimed again. When
// maxUsers slots are already taken, the user's row is deleted and claimed is
// false.
func (r *PostgresRepository) VerifyAndClaimSlot(ctx context.Context, id string, maxUsers int, updatedAt time.Time) (int, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", verifiedSlotLockKey); err != nil {
		return 0, false, fmt.Errorf("slot lock: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET is_verified = TRUE, otp_hash = NULL, otp_expires_at = NULL, updated_at = $2
		 WHERE id = $1 AND NOT is_verified`, id, updatedAt)
	if err != nil {
		return 0, false, fmt.Errorf("mark verified: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("mark verified: %w", err)
	}
	if affected == 0 {
		var verified bool
		err := tx.QueryRowContext(ctx,
			"SELECT is_verified FROM users WHERE id = $1", id).Scan(&verified)
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, ErrUserNotFound
		}
		if err != nil {
			return 0, false, fmt.Errorf("recheck user: %w", err)
		}
		return 0, false, ErrAlreadyVerified
	}

	var prior int
	if err := tx.QueryRowContext(ctx,
		"SELECT count(*) FROM users WHERE is_verified AND id <> $1", id).Scan(&prior); err != nil {
		return 0, false, fmt.Errorf("count verified: %w", err)
	}

	if prior >= maxUsers {
		if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id); err != nil {
			return 0, false, fmt.Errorf("release overflow user: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return 0, false, fmt.Errorf("commit: %w", err)
		}
		return 0, false, nil
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET registration_order = $2 WHERE id = $1", id, prior); err != nil {
		return 0, false, fmt.Errorf("assign order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return prior, true, nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u       domain.User
		otpHash sql.NullString
		otpExp  sql.NullTime
		order   sql.NullInt32
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Mobile, &u.PasswordHash, &u.IsVerified,
		&otpHash, &otpExp, &order, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if otpHash.Valid {
		u.OTPHash = otpHash.String
	}
	if otpExp.Valid {
		u.OTPExpiresAt = otpExp.Time
	}
	if order.Valid {
		n := int(order.Int32)
		u.RegistrationOrder = &n
	}
	return &u, nil
}

func translateUnique(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrDuplicateEmail
		case strings.Contains(pgErr.ConstraintName, "mobile"):
			return ErrDuplicateMobile
		}
	}
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullInt(p *int) sql.NullInt32 {
	if p == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*p), Valid: true}
}
