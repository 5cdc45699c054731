package helpers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenOTPCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenOTPCode()
		require.NoError(t, err)
		assert.Len(t, code, OTPCodeLength)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(otpAlphabet, r), "unexpected rune %q", r)
		}
		seen[code] = true
	}
	// 50 draws from a 62^6 space colliding down to a handful would mean the
	// generator is broken.
	assert.Greater(t, len(seen), 45)
}

func TestHashAndCompareOTPCode(t *testing.T) {
	code, err := GenOTPCode()
	require.NoError(t, err)

	hash, err := HashOTPCode(code)
	require.NoError(t, err)
	assert.NotEqual(t, code, hash)

	assert.True(t, CompareOTPCode(hash, code))
	assert.False(t, CompareOTPCode(hash, "AAAAAA"))
	assert.False(t, CompareOTPCode(hash, strings.ToLower(code)+"x"))
}
