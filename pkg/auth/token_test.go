package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateNumericCode(t *testing.T) {
	sixDigits := regexp.MustCompile(`^\d{6}$`)

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := GenerateNumericCode(6)
		require.NoError(t, err)
		assert.Regexp(t, sixDigits, code)
		seen[code] = true
	}

	// 200 draws from a million values should essentially never collide down to a handful
	assert.Greater(t, len(seen), 190)
}

func TestGenerateNumericCode_InvalidLength(t *testing.T) {
	_, err := GenerateNumericCode(0)
	assert.Error(t, err)

	_, err = GenerateNumericCode(19)
	assert.Error(t, err)
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.Len(t, token, 64)

	other, err := GenerateSecureToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestGenerateURLToken(t *testing.T) {
	token, err := GenerateURLToken(18)
	require.NoError(t, err)
	assert.Len(t, token, 24)
	assert.NotContains(t, token, "=")
}

func TestHashToken(t *testing.T) {
	// echo -n "abc" | sha256sum
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
}
