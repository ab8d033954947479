package repository

import (
	"context"
	"errors"
	"time"

	"lapra-tech/backend/internal/user/domain"
)

// Duplicate-key errors returned by Create when a uniqueness constraint is hit.
// The store enforces uniqueness on email and mobile independently; these tell
// callers which field collided.
var (
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrDuplicateMobile = errors.New("mobile already exists")
)

// Claim errors returned by VerifyAndClaimSlot. The claim transaction is the
// authority on verification state: a user observed as pending before the
// transaction may have been verified or deleted by a concurrent request by the
// time the claim runs.
var (
	ErrAlreadyVerified = errors.New("user already verified")
	ErrUserNotFound    = errors.New("user not found")
)

// Repository defines persistence for users.
type Repository interface {
	// GetByID returns the user for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.User, error)
	// GetByEmailOrMobile returns a user matching either field, or nil if none match.
	GetByEmailOrMobile(ctx context.Context, email, mobile string) (*domain.User, error)
	// Create persists a new user. Returns ErrDuplicateEmail or ErrDuplicateMobile
	// when the insert loses a uniqueness race.
	Create(ctx context.Context, u *domain.User) error
	// UpdateOTP replaces the pending OTP on an unverified user.
	UpdateOTP(ctx context.Context, id, otpHash string, expiresAt, updatedAt time.Time) error
	// CountVerified returns the number of verified users.
	CountVerified(ctx context.Context) (int, error)
	// VerifyAndClaimSlot marks the user verified and claims a registration slot,
	// all in one serialized transaction. When fewer than maxUsers users were
	// verified before this one, the user keeps the slot and order is their
	// 0-indexed rank among verified users. Otherwise the user's record is
	// deleted and claimed is false. Only a pending user can claim: a user
	// already verified by a concurrent request yields ErrAlreadyVerified and a
	// deleted one ErrUserNotFound, so a slot is never claimed twice.
	VerifyAndClaimSlot(ctx context.Context, id string, maxUsers int, updatedAt time.Time) (order int, claimed bool, err error)
}
