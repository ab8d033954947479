// Package service implements the gated-registration workflows: register with
// OTP issuance, OTP verification with first-N slot claiming, and OTP resend.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lapra-tech/backend/internal/otp"
	"lapra-tech/backend/internal/security"
	"lapra-tech/backend/internal/user/domain"
	"lapra-tech/backend/internal/user/repository"
)

// Sentinel errors for signup workflows; the handler maps them to HTTP statuses.
var (
	ErrEmailAlreadyVerified    = errors.New("this email is already registered and verified")
	ErrMobileAlreadyVerified   = errors.New("this mobile number is already registered and verified")
	ErrEmailAlreadyRegistered  = errors.New("this email is already registered")
	ErrMobileAlreadyRegistered = errors.New("this mobile number is already registered")
	ErrUserNotFound            = errors.New("user not found")
	ErrAlreadyVerified         = errors.New("user is already verified")
	ErrInvalidOTP              = errors.New("invalid or expired OTP")
	ErrSlotsExhausted          = errors.New("all the free access slots have been filled")
)

// UserRepo is the user store the signup service needs.
type UserRepo interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmailOrMobile(ctx context.Context, email, mobile string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdateOTP(ctx context.Context, id, otpHash string, expiresAt, updatedAt time.Time) error
	CountVerified(ctx context.Context) (int, error)
	VerifyAndClaimSlot(ctx context.Context, id string, maxUsers int, updatedAt time.Time) (order int, claimed bool, err error)
}

// Notifier delivers OTP emails. Implementations must not block the caller and
// must never fail the workflow; delivery outcome is logged, not returned.
type Notifier interface {
	SendOTPAsync(email, name, code string)
}

// RegisterResult is the outcome of Register: the user the OTP now belongs to,
// whether that user already existed (resend path), and the plaintext code for
// the dev-mode echo. The code is never persisted in the clear.
type RegisterResult struct {
	UserID string
	Resent bool
	OTP    string
}

// ResendResult is the outcome of ResendOTP.
type ResendResult struct {
	OTP string
}

// LimitStatus reports how many verified slots are taken.
type LimitStatus struct {
	VerifiedCount int
	MaxUsers      int
	LimitReached  bool
}

// SignupService orchestrates registration, verification, and resend against
// the user store. The slot limit is enforced by the store's transactional
// claim, not by in-process locking.
type SignupService struct {
	repo        UserRepo
	notifier    Notifier
	hasher      *security.Hasher
	otpValidity time.Duration
	maxUsers    int
	nowF        func() time.Time
}

// NewSignupService returns a SignupService with the given dependencies.
func NewSignupService(repo UserRepo, notifier Notifier, hasher *security.Hasher, otpValidity time.Duration, maxUsers int) *SignupService {
	return &SignupService{
		repo:        repo,
		notifier:    notifier,
		hasher:      hasher,
		otpValidity: otpValidity,
		maxUsers:    maxUsers,
		nowF:        func() time.Time { return time.Now().UTC() },
	}
}

// Register creates an unverified user with a fresh OTP, or reissues the OTP
// when the same email is still pending verification. A verified record, or an
// unverified record matching only by mobile, rejects the attempt. The OTP
// email is dispatched asynchronously; delivery failure does not fail Register.
func (s *SignupService) Register(ctx context.Context, name, email, mobile, password string) (*RegisterResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	existing, err := s.repo.GetByEmailOrMobile(ctx, email, mobile)
	if err != nil {
		return nil, fmt.Errorf("lookup existing user: %w", err)
	}
	if existing != nil {
		if existing.IsVerified {
			if existing.Email == email {
				return nil, ErrEmailAlreadyVerified
			}
			return nil, ErrMobileAlreadyVerified
		}
		if existing.Email == email {
			// Pending verification: reissue the OTP on the same record.
			code, err := s.issueOTP(ctx, existing.ID)
			if err != nil {
				return nil, err
			}
			s.notifier.SendOTPAsync(existing.Email, name, code)
			return &RegisterResult{UserID: existing.ID, Resent: true, OTP: code}, nil
		}
		// Mobile taken by a pending record with a different email. No resend
		// here: the submitter may not control that mobile number.
		return nil, ErrMobileAlreadyRegistered
	}

	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	code, expiresAt, err := otp.Generate(s.otpValidity)
	if err != nil {
		return nil, fmt.Errorf("generate otp: %w", err)
	}

	now := s.nowF()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Mobile:       mobile,
		PasswordHash: hashed,
		OTPHash:      otp.Hash(code),
		OTPExpiresAt: expiresAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, user); err != nil {
		// Lost an insert race; report the same duplicate family as the lookup path.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailAlreadyRegistered
		}
		if errors.Is(err, repository.ErrDuplicateMobile) {
			return nil, ErrMobileAlreadyRegistered
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.notifier.SendOTPAsync(user.Email, user.Name, code)
	return &RegisterResult{UserID: user.ID, OTP: code}, nil
}

// VerifyOTP checks the submitted code for the pending user, then claims a
// verified slot through the store's serialized transaction. The returned order
// is the user's 0-indexed rank among verified users. When every slot is taken
// the user's record is deleted and ErrSlotsExhausted is returned.
func (s *SignupService) VerifyOTP(ctx context.Context, userID, code string) (int, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return 0, ErrUserNotFound
	}
	if user.IsVerified {
		return 0, ErrAlreadyVerified
	}
	if !otp.Verify(code, user.OTPHash, user.OTPExpiresAt, s.nowF()) {
		return 0, ErrInvalidOTP
	}

	order, claimed, err := s.repo.VerifyAndClaimSlot(ctx, user.ID, s.maxUsers, s.nowF())
	if err != nil {
		// The claim transaction re-checks state under its lock; a concurrent
		// request may have won the race since the lookup above.
		if errors.Is(err, repository.ErrAlreadyVerified) {
			return 0, ErrAlreadyVerified
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("claim slot: %w", err)
	}
	if !claimed {
		return 0, ErrSlotsExhausted
	}
	return order, nil
}

// ResendOTP reissues the OTP on a pending user and dispatches a fresh email.
func (s *SignupService) ResendOTP(ctx context.Context, userID string) (*ResendResult, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	code, err := s.issueOTP(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	s.notifier.SendOTPAsync(user.Email, user.Name, code)
	return &ResendResult{OTP: code}, nil
}

// Limit returns how many verified slots are taken and whether the cap is reached.
func (s *SignupService) Limit(ctx context.Context) (*LimitStatus, error) {
	n, err := s.repo.CountVerified(ctx)
	if err != nil {
		return nil, fmt.Errorf("count verified: %w", err)
	}
	return &LimitStatus{
		VerifiedCount: n,
		MaxUsers:      s.maxUsers,
		LimitReached:  n >= s.maxUsers,
	}, nil
}

func (s *SignupService) issueOTP(ctx context.Context, userID string) (string, error) {
	code, expiresAt, err := otp.Generate(s.otpValidity)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	if err := s.repo.UpdateOTP(ctx, userID, otp.Hash(code), expiresAt, s.nowF()); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}
	return code, nil
}
