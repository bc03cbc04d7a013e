// Package crypto provides the hash and keyed-signature primitives the
// ledger is built on: SHA3-512 digests and HMAC-SHA3-512 signatures.
//
// Chain hash inputs concatenate fields without delimiters. That is an
// inherited compatibility contract — already-issued signatures depend on
// the exact byte layout, so it must not change.
package crypto

import (
	"crypto/hmac"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Genesis is the sentinel chain value standing in for "no predecessor".
// Only the first record ever stored carries it as previous_hash.
const Genesis = "GENESIS"

// Hash returns the lowercase hex SHA3-512 digest of data.
func Hash(data []byte) string {
	sum := sha3.Sum512(data)
	return hex.EncodeToString(sum[:])
}

// HashString is a convenience wrapper for hashing UTF-8 text.
func HashString(s string) string {
	return Hash([]byte(s))
}

// Signer produces and checks HMAC-SHA3-512 signatures with a single
// symmetric key. The key is injected at construction and lives only in
// process memory; it is never persisted alongside its signatures.
type Signer struct {
	key []byte
}

// NewSigner returns a Signer for the given secret key.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("signer: empty secret key")
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &Signer{key: k}, nil
}

// Sign returns the lowercase hex HMAC-SHA3-512 of the given hex digest.
// The digest string itself is the MAC input, matching the chain contract.
func (s *Signer) Sign(hexDigest string) string {
	mac := hmac.New(sha3.New512, s.key)
	mac.Write([]byte(hexDigest))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid MAC for hexDigest.
// Comparison is constant-time.
func (s *Signer) Verify(hexDigest, signature string) bool {
	want := s.Sign(hexDigest)
	return subtle.ConstantTimeCompare([]byte(want), []byte(signature)) == 1
}
