package domain

import (
	"errors"
	"time"
)

// User is the core user entity. A user is created unverified with a pending
// OTP; verification either claims a registration slot (RegistrationOrder set)
// or deletes the record when all slots are taken.
type User struct {
	ID           string
	Name         string
	Email        string // unique across all records
	Mobile       string // unique across all records; 10 digits
	PasswordHash string // never returned to clients
	IsVerified   bool
	// OTPHash is the SHA-256 hex hash of the pending OTP; empty once verified.
	OTPHash string
	// OTPExpiresAt is when the pending OTP stops being valid; zero once verified.
	OTPExpiresAt time.Time
	// RegistrationOrder is the 0-indexed rank among verified users, assigned at
	// the moment of successful verification. Nil while unverified.
	RegistrationOrder *int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Mobile == "" {
		return errors.New("mobile is required")
	}
	if u.PasswordHash == "" {
		return errors.New("password hash is required")
	}
	return nil
}
