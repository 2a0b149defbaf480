// Package password derives and checks the double-salted password digests
// stored on user rows.
//
// The default scheme is a single pass:
//
//	digest = hex(SHA-512(salt1 + hex(SHA-256(raw)) + salt2))
//
// It has no work factor. The argon2id scheme swaps the inner SHA-256 stage
// for Argon2id keyed by salt1, which changes the stored digest, so the scheme
// is recorded per user and never mixed.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

type Scheme string

const (
	SchemeSHA2     Scheme = "sha2"
	SchemeArgon2id Scheme = "argon2id"
)

const (
	// SaltSize is the number of random bytes behind each hex-encoded salt.
	SaltSize = 256

	argonTime = 1
	argonMem  = 64 * 1024
	argonPar  = 4
	argonLen  = 32
)

func ParseScheme(s string) (Scheme, error) {
	switch Scheme(s) {
	case SchemeSHA2, "":
		return SchemeSHA2, nil
	case SchemeArgon2id:
		return SchemeArgon2id, nil
	}
	return "", fmt.Errorf("unknown password scheme %q", s)
}

// Hash computes the stored digest for raw under the given scheme.
func Hash(scheme Scheme, raw, salt1, salt2 string) string {
	var inner string
	switch scheme {
	case SchemeArgon2id:
		inner = hex.EncodeToString(argon2.IDKey([]byte(raw), []byte(salt1), argonTime, argonMem, argonPar, argonLen))
	default:
		sum := sha256.Sum256([]byte(raw))
		inner = hex.EncodeToString(sum[:])
	}
	outer := sha512.Sum512([]byte(salt1 + inner + salt2))
	return hex.EncodeToString(outer[:])
}

// Verify recomputes the digest and compares it to stored in constant time.
func Verify(scheme Scheme, raw, salt1, salt2, stored string) bool {
	got := Hash(scheme, raw, salt1, salt2)
	return subtle.ConstantTimeCompare([]byte(got), []byte(stored)) == 1
}

// NewSalt returns SaltSize random bytes, hex encoded.
func NewSalt() (string, error) {
	b := make([]byte, SaltSize)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Credentials is a freshly salted digest ready to be written to a user row.
type Credentials struct {
	Hash   string
	Salt1  string
	Salt2  string
	Scheme Scheme
}

// New salts and hashes raw with two independent salts.
func New(scheme Scheme, raw string) (Credentials, error) {
	salt1, err := NewSalt()
	if err != nil {
		return Credentials{}, err
	}
	salt2, err := NewSalt()
	if err != nil {
		return Credentials{}, err
	}
	return Credentials{
		Hash:   Hash(scheme, raw, salt1, salt2),
		Salt1:  salt1,
		Salt2:  salt2,
		Scheme: scheme,
	}, nil
}
