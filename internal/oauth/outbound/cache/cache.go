// Package cache keeps authorization records in Redis in front of Postgres.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/valueobject"
)

const (
	keyRecord  = "oauth2:authorization:"
	keyToken   = "oauth2:authorization:token:"
	keyRevoked = "oauth2:authorization:revoked:"

	// revokedTTL bounds how long a read that started before a delete may take
	// to write its result back.
	revokedTTL = time.Minute
)

// fillLua writes a record and its token index unless the record was revoked.
//
//	KEYS[1] revoked marker, KEYS[2] record, KEYS[3..] token index
//	ARGV[1] record json, ARGV[2] record id, ARGV[3] ttl in milliseconds
var fillLua = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('SET', KEYS[2], ARGV[1], 'PX', ARGV[3])
for i = 3, #KEYS do
  redis.call('SET', KEYS[i], ARGV[2], 'PX', ARGV[3])
end
return 1
`)

type token struct {
	Hash      string    `json:"hash"`
	Type      string    `json:"type"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type record struct {
	ID                 int64               `json:"id"`
	RegisteredClientID string              `json:"registered_client_id"`
	PrincipalName      string              `json:"principal_name"`
	GrantType          string              `json:"grant_type"`
	AuthorizedScopes   []string            `json:"authorized_scopes"`
	AccessToken        token               `json:"access_token"`
	RefreshToken       *token              `json:"refresh_token,omitempty"`
	Attributes         valueobject.JSONMap `json:"attributes"`
	Metadata           valueobject.JSONMap `json:"metadata"`
}

func fromEntity(rec entity.AuthorizationRecord) record {
	r := record{
		ID:                 rec.ID,
		RegisteredClientID: rec.RegisteredClientID,
		PrincipalName:      rec.PrincipalName,
		GrantType:          rec.GrantType,
		AuthorizedScopes:   rec.AuthorizedScopes,
		AccessToken:        token{rec.AccessToken.Hash, rec.AccessToken.Type, rec.AccessToken.IssuedAt, rec.AccessToken.ExpiresAt},
		Attributes:         rec.Attributes,
		Metadata:           rec.Metadata,
	}
	if rt := rec.RefreshToken; rt != nil {
		r.RefreshToken = &token{rt.Hash, rt.Type, rt.IssuedAt, rt.ExpiresAt}
	}
	return r
}

func (r record) toEntity() *entity.AuthorizationRecord {
	rec := &entity.AuthorizationRecord{
		ID:                 r.ID,
		RegisteredClientID: r.RegisteredClientID,
		PrincipalName:      r.PrincipalName,
		GrantType:          r.GrantType,
		AuthorizedScopes:   r.AuthorizedScopes,
		AccessToken:        entity.Token{Hash: r.AccessToken.Hash, Type: r.AccessToken.Type, IssuedAt: r.AccessToken.IssuedAt, ExpiresAt: r.AccessToken.ExpiresAt},
		Attributes:         r.Attributes,
		Metadata:           r.Metadata,
	}
	if rt := r.RefreshToken; rt != nil {
		rec.RefreshToken = &entity.Token{Hash: rt.Hash, Type: rt.Type, IssuedAt: rt.IssuedAt, ExpiresAt: rt.ExpiresAt}
	}
	return rec
}

// Cache stores a record under its id plus one index key per token hash.
// Raw token values are never written.
type Cache struct {
	client redis.UniversalClient
	ttl    time.Duration
	ins    instrument.Instrumentation
}

func NewCache(client redis.UniversalClient, ttl time.Duration, ins instrument.Instrumentation) *Cache {
	return &Cache{client: client, ttl: ttl, ins: ins}
}

func (c *Cache) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return c.ins.Tracer("oauth.outbound.cache").Start(ctx, name)
}

func (c *Cache) endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func recordKey(id int64) string { return keyRecord + strconv.FormatInt(id, 10) }

func revokedKey(id int64) string { return keyRevoked + strconv.FormatInt(id, 10) }

func (c *Cache) GetAuthorization(ctx context.Context, id int64) (_ *entity.AuthorizationRecord, err error) {
	ctx, span := c.startSpan(ctx, "GetAuthorization")
	defer func() { c.endSpan(span, err) }()

	return c.get(ctx, recordKey(id))
}

func (c *Cache) GetAuthorizationByTokenHash(ctx context.Context, tokenHash string) (_ *entity.AuthorizationRecord, err error) {
	ctx, span := c.startSpan(ctx, "GetAuthorizationByTokenHash")
	defer func() { c.endSpan(span, err) }()

	id, err := c.client.Get(ctx, keyToken+tokenHash).Result()
	if errors.Is(err, redis.Nil) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return c.get(ctx, keyRecord+id)
}

func (c *Cache) get(ctx context.Context, key string) (*entity.AuthorizationRecord, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return r.toEntity(), nil
}

func (c *Cache) SetAuthorization(ctx context.Context, rec entity.AuthorizationRecord) (err error) {
	ctx, span := c.startSpan(ctx, "SetAuthorization")
	defer func() { c.endSpan(span, err) }()

	raw, err := json.Marshal(fromEntity(rec))
	if err != nil {
		return err
	}

	id := strconv.FormatInt(rec.ID, 10)
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keyRecord+id, raw, c.ttl)
		p.Set(ctx, keyToken+rec.AccessToken.Hash, id, c.ttl)
		if rec.RefreshToken != nil {
			p.Set(ctx, keyToken+rec.RefreshToken.Hash, id, c.ttl)
		}
		return nil
	})
	return err
}

// FillAuthorization caches a record read from Postgres. It reports false and
// writes nothing when the record was deleted after it was read.
func (c *Cache) FillAuthorization(ctx context.Context, rec entity.AuthorizationRecord) (_ bool, err error) {
	ctx, span := c.startSpan(ctx, "FillAuthorization")
	defer func() { c.endSpan(span, err) }()

	raw, err := json.Marshal(fromEntity(rec))
	if err != nil {
		return false, err
	}

	keys := []string{revokedKey(rec.ID), recordKey(rec.ID), keyToken + rec.AccessToken.Hash}
	if rec.RefreshToken != nil {
		keys = append(keys, keyToken+rec.RefreshToken.Hash)
	}

	n, err := fillLua.Run(ctx, c.client, keys, raw, rec.ID, c.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// DeleteAuthorization evicts a record and marks it revoked so a concurrent
// FillAuthorization cannot bring it back.
func (c *Cache) DeleteAuthorization(ctx context.Context, rec entity.AuthorizationRecord) (err error) {
	ctx, span := c.startSpan(ctx, "DeleteAuthorization")
	defer func() { c.endSpan(span, err) }()

	keys := []string{recordKey(rec.ID), keyToken + rec.AccessToken.Hash}
	if rec.RefreshToken != nil {
		keys = append(keys, keyToken+rec.RefreshToken.Hash)
	}
	_, err = c.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, revokedKey(rec.ID), "1", revokedTTL)
		p.Del(ctx, keys...)
		return nil
	})
	return err
}
