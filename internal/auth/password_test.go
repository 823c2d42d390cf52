package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "acquisitions/internal/errors"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := NewBcryptHasher(4)

	hashed, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hashed)

	ok, err := h.Verify("password123", hashed)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong-password", hashed)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_SaltsEveryHash(t *testing.T) {
	h := NewBcryptHasher(4)

	first, err := h.Hash("password123")
	require.NoError(t, err)
	second, err := h.Hash("password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestBcryptHasher_MalformedHashIsAFault(t *testing.T) {
	h := NewBcryptHasher(4)

	ok, err := h.Verify("password123", "not-a-bcrypt-hash")

	assert.False(t, ok)
	assert.ErrorIs(t, err, apperrors.ErrHashing)
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	h := NewBcryptHasher(4)
	long := strings.Repeat("a", 128)

	hashed, err := h.Hash(long)
	require.NoError(t, err)

	ok, err := h.Verify(long, hashed)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestNewBcryptHasher_InvalidCostFallsBack(t *testing.T) {
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(0).cost)
	assert.Equal(t, DefaultBcryptCost, NewBcryptHasher(99).cost)
}
