// Package cryptox holds the key-derivation helpers shared by the client
// identity directory and the sync server. Passwords never leave the client:
// only a salt and a verifier derived from the master key are stored or sent.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/dmitrijs2005/foodie/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of freshly generated salts, in bytes.
const SaltSize = 32

// NewSalt returns a random salt suitable for DeriveMasterKey.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// DeriveMasterKey stretches password with argon2id (1 pass, 64 MiB, 4 lanes)
// into a 32-byte key.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier hashes a master key into the value persisted as the
// credential secret.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// Verifier derives the verifier for password under salt and wipes the
// intermediate master key.
func Verifier(password []byte, salt []byte) []byte {
	key := DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)
	return MakeVerifier(key)
}

// CheckVerifier reports whether candidate matches the stored verifier,
// in constant time.
func CheckVerifier(stored []byte, candidate []byte) bool {
	return len(stored) > 0 && subtle.ConstantTimeCompare(stored, candidate) == 1
}
