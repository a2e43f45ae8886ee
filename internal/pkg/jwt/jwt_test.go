package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"math/big"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memKeyStore struct {
	mu      sync.Mutex
	keys    []StoredKey
	inserts int
}

func (s *memKeyStore) ActiveKey(_ context.Context, alg string) (*StoredKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k.Algorithm == alg {
			k := k
			return &k, nil
		}
	}
	return nil, ErrKeyNotFound
}

func (s *memKeyStore) Insert(_ context.Context, key StoredKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inserts++
	for _, k := range s.keys {
		if k.Algorithm == key.Algorithm {
			return false, nil
		}
	}
	s.keys = append(s.keys, key)
	return true, nil
}

type seqID struct {
	mu sync.Mutex
	n  int64
}

func (s *seqID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

type seqUUID struct{ ids seqID }

func (s *seqUUID) Generate() string { return "kid-" + strconv.FormatInt(s.ids.Generate(), 10) }

func newTestKeys(store KeyStore, clk clocker) *KeyManager {
	return NewKeyManager(KeyManagerConfig{Store: store, Bits: 1024, Clock: clk, UUID: &seqUUID{}, IDs: &seqID{}})
}

func TestKeyManager_SingleKeyAcrossReplicas(t *testing.T) {
	store := &memKeyStore{}
	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))

	const replicas = 6
	kids := make([]string, replicas)
	var wg sync.WaitGroup
	for i := range replicas {
		wg.Go(func() {
			set, err := newTestKeys(store, clk).JWKS(context.Background())
			assert.NoError(t, err)
			if assert.Len(t, set.Keys, 1) {
				kids[i] = set.Keys[0].Kid
			}
		})
	}
	wg.Wait()

	require.Len(t, store.keys, 1)
	for _, kid := range kids {
		assert.Equal(t, store.keys[0].KID, kid)
	}
}

func TestKeyManager_ReusesPersistedKey(t *testing.T) {
	store := &memKeyStore{}
	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))

	first, err := newTestKeys(store, clk).JWKS(context.Background())
	require.NoError(t, err)

	km := newTestKeys(store, clk)
	second, err := km.JWKS(context.Background())
	require.NoError(t, err)
	_, err = km.JWKS(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.inserts)
}

func TestRS256_SignVerify(t *testing.T) {
	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	keys := newTestKeys(&memKeyStore{}, clk)
	signer := NewRS256(Config{Keys: keys, Issuer: "credbite", Audiences: []string{"api"}, Clock: clk, UUID: &seqUUID{}})
	ctx := context.Background()

	token, err := signer.Sign(ctx, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "guest@example.com",
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
		Scope:      "shortlist:r1:read",
		ResourceID: "r1",
		AccessType: "guest",
	})
	require.NoError(t, err)

	clm, err := signer.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "guest@example.com", clm.Subject)
	assert.Equal(t, []string{"shortlist:r1:read"}, clm.Scopes())
	assert.Equal(t, "credbite", clm.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"api"}, clm.Audience)
	assert.NotEmpty(t, clm.ID)

	clk.Advance(2 * time.Hour)
	_, err = signer.Verify(ctx, token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRS256_RejectsForeignKey(t *testing.T) {
	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	exp := jwt.NewNumericDate(clk.Now().Add(time.Hour))
	a := NewRS256(Config{Keys: newTestKeys(&memKeyStore{}, clk), Issuer: "credbite", Clock: clk, UUID: &seqUUID{}})
	b := NewRS256(Config{Keys: newTestKeys(&memKeyStore{}, clk), Issuer: "credbite", Clock: clk, UUID: &seqUUID{}})

	token, err := a.Sign(context.Background(), Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", ExpiresAt: exp}})
	require.NoError(t, err)

	// b generated its own key with the same kid sequence, so the signature check must fail
	_, err = b.Verify(context.Background(), token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = a.Sign(context.Background(), Claims{})
	assert.Error(t, err)
}

func TestJWKS_MatchesSigningKey(t *testing.T) {
	clk := clock.NewFixed(time.Unix(1_700_000_000, 0))
	keys := newTestKeys(&memKeyStore{}, clk)

	set, err := keys.JWKS(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)

	jwk := set.Keys[0]
	assert.Equal(t, "RSA", jwk.Kty)
	assert.Equal(t, "sig", jwk.Use)
	assert.Equal(t, AlgRS256, jwk.Alg)

	n, err := base64.RawURLEncoding.DecodeString(jwk.N)
	require.NoError(t, err)
	e, err := base64.RawURLEncoding.DecodeString(jwk.E)
	require.NoError(t, err)

	k, err := keys.signingKey(context.Background())
	require.NoError(t, err)
	want := &k.private.PublicKey
	assert.True(t, want.Equal(&rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(new(big.Int).SetBytes(e).Int64())}))
}

func TestAuthContext(t *testing.T) {
	assert.Nil(t, GetAuth(context.Background()))

	clm := &Claims{Authorities: []string{"ROLE_ADMIN"}}
	got := GetAuth(SetAuth(context.Background(), clm))
	assert.Same(t, clm, got)
	assert.True(t, got.HasAuthority("ROLE_ADMIN"))
	assert.False(t, got.HasAuthority("ROLE_USER"))
}
