package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		name     string
		password string
		valid    bool
		errors   []string
	}{
		{name: "too short", password: "abc", errors: []string{"Password must be at least 6 characters long"}},
		{name: "empty", password: "", errors: []string{"Password must be at least 6 characters long"}},
		{name: "minimum", password: "abcdef", valid: true},
		{name: "maximum", password: strings.Repeat("a", 128), valid: true},
		{name: "too long", password: strings.Repeat("a", 129), errors: []string{"Password must be less than 128 characters"}},
		// Six runes, twelve bytes.
		{name: "counts characters not bytes", password: "пароль", valid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidatePasswordStrength(tt.password)
			assert.Equal(t, tt.valid, got.IsValid)
			if tt.errors == nil {
				assert.Empty(t, got.Errors)
			} else {
				assert.Equal(t, tt.errors, got.Errors)
			}
		})
	}
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	digest, err := hasher.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", digest)

	ok, err := hasher.Verify("correct horse", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("wrong horse", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_SaltsEachHash(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	first, err := hasher.Hash("password1")
	require.NoError(t, err)
	second, err := hasher.Hash("password1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestPasswordHasher_LongPasswords(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)
	prefix := strings.Repeat("a", 80)

	digest, err := hasher.Hash(prefix + "1")
	require.NoError(t, err)

	ok, err := hasher.Verify(prefix+"1", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	// Differences beyond byte 72 still matter.
	ok, err = hasher.Verify(prefix+"2", digest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordHasher_MalformedDigest(t *testing.T) {
	hasher := NewPasswordHasher(bcrypt.MinCost)

	ok, err := hasher.Verify("password", "not-a-bcrypt-digest")

	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrVerification)
}

func TestNewPasswordHasher_InvalidCost(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(99).cost)
	assert.Equal(t, 4, NewPasswordHasher(4).cost)
}

func TestGenerateSecurePassword(t *testing.T) {
	password, err := GenerateSecurePassword(0)
	require.NoError(t, err)
	assert.Len(t, password, DefaultGeneratedPasswordLength)
	assert.True(t, ValidatePasswordStrength(password).IsValid)

	password, err = GenerateSecurePassword(20)
	require.NoError(t, err)
	assert.Len(t, password, 20)
	for _, r := range password {
		assert.Contains(t, passwordCharset, string(r))
	}

	other, err := GenerateSecurePassword(20)
	require.NoError(t, err)
	assert.NotEqual(t, password, other)
}

func TestGenerateSessionSecret(t *testing.T) {
	secret, err := GenerateSessionSecret()
	require.NoError(t, err)
	assert.Len(t, secret, 64)
}
