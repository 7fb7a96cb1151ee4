package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(hash, "scrypt$32768$8$1$"))
	assert.True(t, VerifyPassword("hunter2", hash))
	assert.False(t, VerifyPassword("hunter3", hash))
}

func TestHashesAreSalted(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyLegacyDigest(t *testing.T) {
	stored := LegacySHA256("oldpass")
	assert.True(t, VerifyPassword("oldpass", stored))
	assert.False(t, VerifyPassword("wrong", stored))
}

func TestVerifyRejectsMangledHash(t *testing.T) {
	assert.False(t, VerifyPassword("x", "scrypt$abc$8$1$00$00"))
	assert.False(t, VerifyPassword("x", "scrypt$32768$8"))
	assert.False(t, VerifyPassword("x", ""))
}
