package jwt

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by KeyStore when no active key exists.
var ErrKeyNotFound = errors.New("signing key not found")

// StoredKey is a persisted private key.
type StoredKey struct {
	ID            int64
	KID           string
	Algorithm     string
	PrivateKeyPEM []byte
	CreatedAt     time.Time
}

// KeyStore persists signing keys. Insert must be a no-op (false, nil) when an
// active key for the algorithm already exists.
type KeyStore interface {
	ActiveKey(ctx context.Context, algorithm string) (*StoredKey, error)
	Insert(ctx context.Context, key StoredKey) (bool, error)
}

func encodePrivateKey(key *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der}), nil
}

func decodePrivateKey(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("jwt: no PEM block in stored key")
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("jwt: stored key is not RSA")
	}
	return key, nil
}
