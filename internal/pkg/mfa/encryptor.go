// Package mfa holds the cryptographic helpers behind MFA methods: sealing
// TOTP secrets at rest and generating backup codes.
package mfa

// Encryptor seals secrets bound to a Scope.
type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) ([]byte, error)
	Decrypt(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider returns a 32-byte AES-256 key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}
