package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

// RS256 signs and verifies access tokens with the KeyManager key.
type RS256 struct {
	keys      *KeyManager
	issuer    string
	audiences []string
	clock     clocker
	uuid      generator
}

// Config configures NewRS256.
type Config struct {
	Keys      *KeyManager
	Issuer    string
	Audiences []string
	Clock     clocker
	UUID      generator
}

func NewRS256(cfg Config) *RS256 {
	return &RS256{keys: cfg.Keys, issuer: cfg.Issuer, audiences: cfg.Audiences, clock: cfg.Clock, uuid: cfg.UUID}
}

// Sign stamps iss, aud (when unset), iat, nbf and jti, then signs. The caller
// owns sub and exp.
func (s *RS256) Sign(ctx context.Context, clm Claims) (string, error) {
	if clm.ExpiresAt == nil {
		return "", errors.New("jwt: exp is required")
	}

	key, err := s.keys.signingKey(ctx)
	if err != nil {
		return "", err
	}

	now := s.clock.Now()
	clm.Issuer = s.issuer
	if len(clm.Audience) == 0 {
		clm.Audience = s.audiences
	}
	clm.IssuedAt = jwt.NewNumericDate(now)
	clm.NotBefore = jwt.NewNumericDate(now)
	clm.ID = s.uuid.Generate()

	t := jwt.NewWithClaims(jwt.SigningMethodRS256, clm)
	t.Header["kid"] = key.kid
	return t.SignedString(key.private)
}

func (s *RS256) Verify(ctx context.Context, token string) (*Claims, error) {
	key, err := s.keys.signingKey(ctx)
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if len(s.audiences) > 0 {
		opts = append(opts, jwt.WithAudience(s.audiences...))
	}

	var clm Claims
	parsed, err := jwt.ParseWithClaims(token, &clm, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != key.kid {
			return nil, ErrUnknownKey
		}
		return &key.private.PublicKey, nil
	}, opts...)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrInvalidToken
	case err != nil:
		return nil, err
	case !parsed.Valid:
		return nil, ErrInvalidToken
	}
	return &clm, nil
}

func newRSAJWK(kid string, pub *rsa.PublicKey) JWK {
	return JWK{
		Kty: "RSA",
		Use: "sig",
		Kid: kid,
		Alg: AlgRS256,
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}
