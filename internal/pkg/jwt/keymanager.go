package jwt

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/atomic"
)

// AlgRS256 is the only algorithm the key manager issues keys for.
const AlgRS256 = "RS256"

const defaultRSABits = 2048

type numberID interface {
	Generate() int64
}

type signingKey struct {
	kid     string
	private *rsa.PrivateKey
}

// KeyManager lazily creates, persists and caches the RSA signing key.
//
// The first caller on a fresh database generates a key and inserts it; the
// store's unique index lets exactly one replica win and every caller then
// re-reads the winner. The cached key is immutable so it is published through
// an atomic pointer rather than a lock.
type KeyManager struct {
	store   KeyStore
	bits    int
	clock   clocker
	uuid    generator
	ids     numberID
	current atomic.Pointer[signingKey]
}

// KeyManagerConfig configures NewKeyManager.
type KeyManagerConfig struct {
	Store KeyStore
	Bits  int
	Clock clocker
	UUID  generator
	IDs   numberID
}

func NewKeyManager(cfg KeyManagerConfig) *KeyManager {
	bits := cfg.Bits
	if bits <= 0 {
		bits = defaultRSABits
	}
	return &KeyManager{store: cfg.Store, bits: bits, clock: cfg.Clock, uuid: cfg.UUID, ids: cfg.IDs}
}

func (m *KeyManager) signingKey(ctx context.Context) (*signingKey, error) {
	if k := m.current.Load(); k != nil {
		return k, nil
	}

	stored, err := m.store.ActiveKey(ctx, AlgRS256)
	if errors.Is(err, ErrKeyNotFound) {
		stored, err = m.create(ctx)
	}
	if err != nil {
		return nil, err
	}

	private, err := decodePrivateKey(stored.PrivateKeyPEM)
	if err != nil {
		return nil, err
	}

	k := &signingKey{kid: stored.KID, private: private}
	if m.current.CompareAndSwap(nil, k) {
		return k, nil
	}
	return m.current.Load(), nil
}

func (m *KeyManager) create(ctx context.Context) (*StoredKey, error) {
	private, err := rsa.GenerateKey(rand.Reader, m.bits)
	if err != nil {
		return nil, err
	}
	pemBytes, err := encodePrivateKey(private)
	if err != nil {
		return nil, err
	}

	if _, err := m.store.Insert(ctx, StoredKey{
		ID:            m.ids.Generate(),
		KID:           m.uuid.Generate(),
		Algorithm:     AlgRS256,
		PrivateKeyPEM: pemBytes,
		CreatedAt:     m.clock.Now(),
	}); err != nil {
		return nil, err
	}

	// losing the insert race is fine: read back whichever key won
	var stored *StoredKey
	backoff := retry.WithMaxRetries(3, retry.NewConstant(50*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		k, err := m.store.ActiveKey(ctx, AlgRS256)
		if errors.Is(err, ErrKeyNotFound) {
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		stored = k
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// JWK is the public half of a signing key in RFC 7517 form.
type JWK struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// JWKSet is served from the jwks endpoint.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}

// JWKS returns the active public key, generating it if needed.
func (m *KeyManager) JWKS(ctx context.Context) (JWKSet, error) {
	k, err := m.signingKey(ctx)
	if err != nil {
		return JWKSet{}, err
	}
	return JWKSet{Keys: []JWK{newRSAJWK(k.kid, &k.private.PublicKey)}}, nil
}
