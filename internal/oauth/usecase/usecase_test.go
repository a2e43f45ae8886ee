package usecase

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

const testConfig = `
modules:
  oauth:
    default_expiry_hours: 24
`

const testRBAC = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && r.obj == p.obj && r.act == p.act
`

const testClientSecret = "web-client-secret-0001"

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeDB struct {
	mu         sync.Mutex
	clients    map[string]entity.RegisteredClient
	users      map[string]entity.User
	records    map[int64]entity.AuthorizationRecord
	failCreate error
	// afterTokenRead runs once, after a token lookup returned and before the
	// caller sees the result.
	afterTokenRead func()
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		clients: map[string]entity.RegisteredClient{},
		users:   map[string]entity.User{},
		records: map[int64]entity.AuthorizationRecord{},
	}
}

func (f *fakeDB) GetClientByClientID(_ context.Context, clientID string) (*entity.RegisteredClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[clientID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &c, nil
}

func (f *fakeDB) UpsertClient(_ context.Context, c entity.RegisteredClient) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clients[c.ClientID] = c
	return nil
}

func (f *fakeDB) GetUserByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &u, nil
}

func (f *fakeDB) GetUserByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeDB) CreateUser(_ context.Context, u entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.users {
		if e.Email == u.Email {
			return goerror.ErrConflict
		}
	}
	f.users[u.ID] = u
	return nil
}

func (f *fakeDB) CreateAuthorization(_ context.Context, rec entity.AuthorizationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	rec.AccessToken.Value = ""
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeDB) GetAuthorizationByID(_ context.Context, id int64) (*entity.AuthorizationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &rec, nil
}

func (f *fakeDB) GetAuthorizationByTokenHash(_ context.Context, tokenHash string, kind entity.TokenKind) (*entity.AuthorizationRecord, error) {
	f.mu.Lock()
	var found *entity.AuthorizationRecord
	for _, rec := range f.records {
		if matchesKind(&rec, tokenHash, kind) {
			found = &rec
			break
		}
	}
	hook := f.afterTokenRead
	f.afterTokenRead = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if found == nil {
		return nil, goerror.ErrNotFound
	}
	return found, nil
}

func (f *fakeDB) GetAuthorizationsByPrincipal(_ context.Context, principal string) ([]entity.AuthorizationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.AuthorizationRecord
	for _, rec := range f.records {
		if rec.PrincipalName == principal {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b entity.AuthorizationRecord) int { return int(b.ID - a.ID) })
	return out, nil
}

func (f *fakeDB) GetValidAuthorizations(_ context.Context, now time.Time, limit, offset int) ([]entity.AuthorizationRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.AuthorizationRecord
	for _, rec := range f.records {
		if rec.AccessToken.ExpiresAt.After(now) {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b entity.AuthorizationRecord) int {
		if c := b.AccessToken.IssuedAt.Compare(a.AccessToken.IssuedAt); c != 0 {
			return c
		}
		return int(b.ID - a.ID)
	})
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	return out[offset:min(offset+limit, len(out))], total, nil
}

func (f *fakeDB) DeleteAuthorization(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.records[id]
	delete(f.records, id)
	return ok, nil
}

func (f *fakeDB) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type fakeCache struct {
	mu      sync.Mutex
	byID    map[int64]entity.AuthorizationRecord
	byToken map[string]int64
	revoked map[int64]bool
	fail    error
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		byID:    map[int64]entity.AuthorizationRecord{},
		byToken: map[string]int64{},
		revoked: map[int64]bool{},
	}
}

func (f *fakeCache) GetAuthorization(_ context.Context, id int64) (*entity.AuthorizationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	rec, ok := f.byID[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	f.hits++
	return &rec, nil
}

func (f *fakeCache) GetAuthorizationByTokenHash(_ context.Context, tokenHash string) (*entity.AuthorizationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	id, ok := f.byToken[tokenHash]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	f.hits++
	rec := f.byID[id]
	return &rec, nil
}

func (f *fakeCache) SetAuthorization(_ context.Context, rec entity.AuthorizationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.byID[rec.ID] = rec
	f.byToken[rec.AccessToken.Hash] = rec.ID
	if rec.RefreshToken != nil {
		f.byToken[rec.RefreshToken.Hash] = rec.ID
	}
	return nil
}

func (f *fakeCache) FillAuthorization(ctx context.Context, rec entity.AuthorizationRecord) (bool, error) {
	f.mu.Lock()
	revoked := f.revoked[rec.ID]
	f.mu.Unlock()
	if revoked {
		return false, nil
	}
	return true, f.SetAuthorization(ctx, rec)
}

func (f *fakeCache) DeleteAuthorization(_ context.Context, rec entity.AuthorizationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.revoked[rec.ID] = true
	delete(f.byID, rec.ID)
	delete(f.byToken, rec.AccessToken.Hash)
	if rec.RefreshToken != nil {
		delete(f.byToken, rec.RefreshToken.Hash)
	}
	return nil
}

func (f *fakeCache) cached(id int64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok
}

type fakeMQ struct {
	mu     sync.Mutex
	events []AccessCodeIssuedEvent
	fail   error
}

func (f *fakeMQ) PublishAccessCodeIssued(_ context.Context, msg AccessCodeIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.events = append(f.events, msg)
	return nil
}

type fakeSigner struct {
	mu     sync.Mutex
	n      int
	last   jwt.Claims
	fail   error
	issued []string
}

func (f *fakeSigner) Sign(_ context.Context, clm jwt.Claims) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return "", f.fail
	}
	f.n++
	f.last = clm
	tok := "access-" + strconv.Itoa(f.n)
	f.issued = append(f.issued, tok)
	return tok, nil
}

type fakeKeys struct{ err error }

func (f fakeKeys) JWKS(context.Context) (jwt.JWKSet, error) {
	if f.err != nil {
		return jwt.JWKSet{}, f.err
	}
	return jwt.JWKSet{Keys: []jwt.JWK{{Kty: "RSA", Kid: "k1", Alg: jwt.AlgRS256, Use: "sig", N: "n", E: "AQAB"}}}, nil
}

type seqUUID struct {
	mu sync.Mutex
	n  int
}

func (s *seqUUID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "code-" + strconv.Itoa(s.n)
}

type seqNumber struct {
	mu sync.Mutex
	n  int64
}

func (s *seqNumber) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n
}

type harness struct {
	uc     *Usecase
	db     *fakeDB
	cache  *fakeCache
	mq     *fakeMQ
	signer *fakeSigner
	mr     *miniredis.Miniredis
	clock  *clock.Fixed
	enf    *casbin.Enforcer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	m, err := model.NewModelFromString(testRBAC)
	require.NoError(t, err)
	enf, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	_, err = enf.AddPolicies([][]string{
		{"owner", "guest_code", "create"},
		{"owner", "guest_code", "validate"},
		{"owner", "guest_code", "revoke"},
		{"owner", "share_code", "create"},
		{"owner", "share_code", "validate"},
		{"owner", "share_code", "revoke"},
		{"admin", "oauth2_tokens", "read"},
		{"admin", "oauth2_tokens", "revoke"},
	})
	require.NoError(t, err)

	h := &harness{
		db:     newFakeDB(),
		cache:  newFakeCache(),
		mq:     &fakeMQ{},
		signer: &fakeSigner{},
		mr:     mr,
		clock:  clock.NewFixed(testNow),
		enf:    enf,
	}
	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoCache:     h.cache,
		RepoMessaging: h.mq,
		Store:         credstore.NewRedis(client),
		Validator:     v,
		Config:        cfg,
		SecretHash:    hash.NewBcrypt(4, ""),
		Signer:        h.signer,
		Keys:          fakeKeys{},
		UID:           &seqNumber{},
		UUID:          &seqUUID{},
		Clock:         h.clock,
		Instrument:    instrument.NewNoop(),
		Enforcer:      enf,
	})

	require.NoError(t, h.uc.RegisterClient(context.Background(), RegisterClientInput{
		ClientID:     "web",
		ClientSecret: testClientSecret,
		ClientName:   "Web",
		GrantTypes:   []string{entity.GrantTypeGuestCode, entity.GrantTypeShareCode},
	}))
	h.db.users["u1"] = entity.User{ID: "u1", Email: "ada@example.com", FullName: "Ada Lovelace", Status: entity.UserStatusActive, Roles: []string{"member"}}

	return h
}

func ownerCtx() context.Context {
	clm := &jwt.Claims{Authorities: []string{"owner"}, Email: "owner@example.com"}
	clm.Subject = "owner-1"
	return jwt.SetAuth(context.Background(), clm)
}

func adminCtx() context.Context {
	clm := &jwt.Claims{Authorities: []string{"admin"}}
	clm.Subject = "admin-1"
	return jwt.SetAuth(context.Background(), clm)
}

func plainCtx() context.Context {
	clm := &jwt.Claims{}
	clm.Subject = "someone"
	return jwt.SetAuth(context.Background(), clm)
}

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, goerror.CodeOf(err), err.Error())
}

func assertOAuth2Error(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var oerr *entity.OAuth2Error
	require.True(t, errors.As(err, &oerr), err.Error())
	assert.Equal(t, code, oerr.Code, err.Error())
}
