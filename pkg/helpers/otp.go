package helpers

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// OTP helpers

const otpAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// OTPCodeLength is the number of characters in a generated one-time code.
// 6 chars over a 62-symbol alphabet is ~35.7 bits, enough to resist guessing
// within the 15-minute challenge window.
const OTPCodeLength = 6

// GenOTPCode generates a secure random mixed-case alphanumeric one-time code
func GenOTPCode() (string, error) {
	max := big.NewInt(int64(len(otpAlphabet)))
	b := make([]byte, OTPCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = otpAlphabet[n.Int64()]
	}
	return string(b), nil
}

// HashOTPCode hashes a plain one-time code using bcrypt before it is stored
func HashOTPCode(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CompareOTPCode compares a stored bcrypt hash with a submitted plain code
func CompareOTPCode(hash string, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
