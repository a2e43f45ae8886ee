package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/valueobject"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(client, 10*time.Minute, instrument.NewNoop()), mr
}

func TestCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	rec := entity.AuthorizationRecord{
		ID:                 42,
		RegisteredClientID: "web",
		PrincipalName:      "grace@example.com",
		GrantType:          entity.GrantTypeGuestCode,
		AuthorizedScopes:   []string{"shortlist:r1:read"},
		AccessToken:        entity.Token{Value: "raw-token", Hash: "h-access", Type: entity.TokenTypeBearer, IssuedAt: issued, ExpiresAt: issued.Add(time.Hour)},
		RefreshToken:       &entity.Token{Hash: "h-refresh", Type: entity.TokenTypeBearer, IssuedAt: issued, ExpiresAt: issued.Add(24 * time.Hour)},
		Attributes:         valueobject.JSONMap{"resource_id": "r1"},
	}

	_, err := c.GetAuthorization(ctx, 42)
	assert.ErrorIs(t, err, goerror.ErrNotFound)
	_, err = c.GetAuthorizationByTokenHash(ctx, "h-access")
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	require.NoError(t, c.SetAuthorization(ctx, rec))
	assert.Equal(t, 10*time.Minute, mr.TTL("oauth2:authorization:42"))
	assert.NotContains(t, mustGet(t, mr, "oauth2:authorization:42"), "raw-token")

	got, err := c.GetAuthorization(ctx, 42)
	require.NoError(t, err)
	assert.Empty(t, got.AccessToken.Value)
	assert.Equal(t, "h-access", got.AccessToken.Hash)
	assert.True(t, issued.Equal(got.AccessToken.IssuedAt))
	assert.Equal(t, "r1", got.Attributes.GetString("resource_id"))

	got, err = c.GetAuthorizationByTokenHash(ctx, "h-refresh")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	require.NotNil(t, got.RefreshToken)
	assert.Equal(t, "h-refresh", got.RefreshToken.Hash)

	require.NoError(t, c.DeleteAuthorization(ctx, rec))
	assert.False(t, mr.Exists("oauth2:authorization:42"))
	assert.False(t, mr.Exists("oauth2:authorization:token:h-access"))
	assert.False(t, mr.Exists("oauth2:authorization:token:h-refresh"))
}

func TestCache_Expires(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)

	require.NoError(t, c.SetAuthorization(ctx, entity.AuthorizationRecord{ID: 1, AccessToken: entity.Token{Hash: "h1"}}))
	mr.FastForward(11 * time.Minute)

	_, err := c.GetAuthorizationByTokenHash(ctx, "h1")
	assert.ErrorIs(t, err, goerror.ErrNotFound)
}

func TestCache_FillSkipsRevokedRecord(t *testing.T) {
	ctx := context.Background()
	c, mr := newTestCache(t)
	rec := entity.AuthorizationRecord{
		ID:           7,
		AccessToken:  entity.Token{Hash: "h-access"},
		RefreshToken: &entity.Token{Hash: "h-refresh"},
	}

	ok, err := c.FillAuthorization(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Minute, mr.TTL("oauth2:authorization:7"))
	assert.Equal(t, "7", mustGet(t, mr, "oauth2:authorization:token:h-refresh"))

	require.NoError(t, c.DeleteAuthorization(ctx, rec))
	assert.True(t, mr.Exists("oauth2:authorization:revoked:7"))

	// a read that saw the row before the delete cannot repopulate the cache
	ok, err = c.FillAuthorization(ctx, rec)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("oauth2:authorization:7"))
	assert.False(t, mr.Exists("oauth2:authorization:token:h-access"))

	_, err = c.GetAuthorizationByTokenHash(ctx, "h-access")
	assert.ErrorIs(t, err, goerror.ErrNotFound)

	mr.FastForward(revokedTTL + time.Second)
	ok, err = c.FillAuthorization(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
