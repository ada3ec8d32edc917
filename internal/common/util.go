package common

import (
	"crypto/rand"
	"encoding/hex"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The resulting string is twice as long as size, since each byte expands to
// two hex characters. It returns an error if the random source fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateRandByteArray returns n cryptographically random bytes.
// It panics if the system random source is broken.
func GenerateRandByteArray(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// WipeByteArray overwrites the contents of b with zeros. Used to drop
// passwords and derived keys from memory after use. Nil is a no-op.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
