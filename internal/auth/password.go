package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128

	// DefaultGeneratedPasswordLength is used by GenerateSecurePassword for short requests.
	DefaultGeneratedPasswordLength = 12

	// bcrypt ignores everything past its first 72 input bytes.
	bcryptInputLimit = 72
)

var (
	ErrHashing      = errors.New("failed to hash password")
	ErrVerification = errors.New("failed to verify password")
)

// PasswordStrength is the outcome of ValidatePasswordStrength.
type PasswordStrength struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidatePasswordStrength checks the length rules, counted in characters.
func ValidatePasswordStrength(password string) PasswordStrength {
	n := utf8.RuneCountInString(password)
	errs := []string{}
	if n < MinPasswordLength {
		errs = append(errs, fmt.Sprintf("Password must be at least %d characters long", MinPasswordLength))
	}
	if n > MaxPasswordLength {
		errs = append(errs, fmt.Sprintf("Password must be less than %d characters", MaxPasswordLength))
	}
	return PasswordStrength{IsValid: len(errs) == 0, Errors: errs}
}

// PasswordHasher produces and checks bcrypt digests.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher creates a hasher. Out-of-range costs fall back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

// Hash returns a salted bcrypt digest of password.
func (h *PasswordHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(bcryptInput(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrHashing, err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A mismatch is (false, nil);
// a malformed digest is (false, ErrVerification).
func (h *PasswordHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), bcryptInput(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, fmt.Errorf("%w: %v", ErrVerification, err)
	}
}

// bcryptInput pre-hashes passwords that would otherwise be truncated by bcrypt.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptInputLimit {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*"

// GenerateSecurePassword returns a random password of the given length.
// Lengths below MinPasswordLength use DefaultGeneratedPasswordLength.
func GenerateSecurePassword(length int) (string, error) {
	if length < MinPasswordLength {
		length = DefaultGeneratedPasswordLength
	}
	if length > MaxPasswordLength {
		length = MaxPasswordLength
	}

	limit := big.NewInt(int64(len(passwordCharset)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		out[i] = passwordCharset[n.Int64()]
	}
	return string(out), nil
}

// GenerateSessionSecret creates a random 32-byte secret for cookie signing.
func GenerateSessionSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
