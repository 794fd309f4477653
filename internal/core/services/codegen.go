package services

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var alphabetSize = big.NewInt(int64(len(codeAlphabet)))

// RandomCode returns a cryptographically random base62 code of length n.
// Uniqueness is probabilistic; callers must still check the store for
// collisions before using a candidate.
func RandomCode(n int) (string, error) {
	if n <= 0 {
		n = 7
	}
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		b.WriteByte(codeAlphabet[idx.Int64()])
	}
	return b.String(), nil
}
