package hash

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
)

// Digest is SHA-256 rendered as standard, padded base64.
type Digest struct{}

func NewDigest() *Digest { return &Digest{} }

func (Digest) Hash(plaintext string) ([]byte, error) {
	return []byte(Sum(plaintext)), nil
}

func (Digest) Verify(hashed, plaintext string) bool {
	return subtle.ConstantTimeCompare([]byte(hashed), []byte(Sum(plaintext))) == 1
}

// Sum is the package-level form of Digest.Hash.
func Sum(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return base64.StdEncoding.EncodeToString(sum[:])
}
