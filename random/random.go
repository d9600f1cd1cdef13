package random

import (
	crand "crypto/rand"
	"math/big"
	mrand "math/rand/v2"
)

const charset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const digits = "0123456789"

func String(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[mrand.IntN(len(charset))]
	}
	return string(b)
}

// Digits returns length uniformly drawn decimal digits. Leading zeros are
// kept, so callers must treat the result as text.
func Digits(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = digits[mrand.IntN(len(digits))]
	}
	return string(b)
}

func StringSecure(length int) (string, error) {
	b := make([]byte, length)
	for i := range b {
		l := big.NewInt(int64(len(charset)))
		num, err := crand.Int(crand.Reader, l)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
