// Package security hashes the credentials stored at signup.
package security

import "golang.org/x/crypto/bcrypt"

// Hasher wraps bcrypt with a fixed cost. The plaintext only exists for the
// duration of the call; everything persisted is the bcrypt digest.
type Hasher struct {
	Cost int
}

// NewHasher returns a Hasher at the given bcrypt cost. Out-of-range costs are
// clamped into bcrypt's supported window; zero and below fall back to the
// library default.
func NewHasher(cost int) *Hasher {
	switch {
	case cost <= 0:
		cost = bcrypt.DefaultCost
	case cost < bcrypt.MinCost:
		cost = bcrypt.MinCost
	case cost > bcrypt.MaxCost:
		cost = bcrypt.MaxCost
	}
	return &Hasher{Cost: cost}
}

// Hash returns the bcrypt digest of password, ready for storage.
func (h *Hasher) Hash(password []byte) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(password, h.Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Compare reports whether password matches the stored digest. A nil return
// means they match; bcrypt.ErrMismatchedHashAndPassword means they do not.
func (h *Hasher) Compare(digest string, password []byte) error {
	return bcrypt.CompareHashAndPassword([]byte(digest), password)
}
