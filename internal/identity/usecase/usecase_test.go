package usecase

import (
	"bytes"
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
	libotp "github.com/pquerna/otp"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/mfa"
	"github.com/shandysiswandi/credbite/internal/pkg/otp"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

const testConfig = `
modules:
  identity:
    code_ttl_seconds: 300
    url_token_ttl_seconds: 300
    reset_token_ttl_seconds: 900
    cooldown_seconds: 60
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

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeDB struct {
	mu      sync.Mutex
	users   map[string]entity.User
	methods map[string]entity.MFAMethod
	failGet error
}

func newFakeDB() *fakeDB {
	return &fakeDB{users: map[string]entity.User{}, methods: map[string]entity.MFAMethod{}}
}

func (f *fakeDB) addUser(u entity.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[u.ID] = u
}

func (f *fakeDB) addMethod(m entity.MFAMethod) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.methods[m.ID] = m
}

func (f *fakeDB) method(id string) (entity.MFAMethod, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.methods[id]
	return m, ok
}

func (f *fakeDB) GetUserByID(_ context.Context, id string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, f.failGet
	}
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

func (f *fakeDB) GetMFAMethodByID(_ context.Context, id string) (*entity.MFAMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.methods[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &m, nil
}

func (f *fakeDB) GetMFAMethodsByUserID(_ context.Context, userID string) ([]entity.MFAMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entity.MFAMethod
	for _, m := range f.methods {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b entity.MFAMethod) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out, nil
}

func (f *fakeDB) GetDefaultMFAMethod(_ context.Context, userID string) (*entity.MFAMethod, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.methods {
		if m.UserID == userID && m.IsDefault {
			return &m, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (f *fakeDB) CreateMFAMethod(_ context.Context, m entity.MFAMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.methods {
		if e.UserID == m.UserID && e.Type == m.Type {
			return goerror.ErrConflict
		}
	}
	f.methods[m.ID] = m
	return nil
}

func (f *fakeDB) UpdateMFAVerified(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.methods[id]
	if !ok {
		return goerror.ErrNotFound
	}
	m.Status = entity.MFAStatusEnabled
	m.LastVerifiedAt = &at
	f.methods[id] = m
	return nil
}

func (f *fakeDB) SetDefaultMFAMethod(_ context.Context, userID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, m := range f.methods {
		if m.UserID == userID {
			m.IsDefault = k == id
			f.methods[k] = m
		}
	}
	return nil
}

func (f *fakeDB) SetBackupCodesHash(_ context.Context, userID, joined string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for k, m := range f.methods {
		if m.UserID == userID {
			m.BackupCodesHash = joined
			f.methods[k] = m
		}
	}
	return nil
}

func (f *fakeDB) ReplaceBackupCodesHash(_ context.Context, userID, oldHash, newHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	swapped := false
	for k, m := range f.methods {
		if m.UserID == userID && m.BackupCodesHash == oldHash {
			m.BackupCodesHash = newHash
			f.methods[k] = m
			swapped = true
		}
	}
	return swapped, nil
}

func (f *fakeDB) DeleteMFAMethod(_ context.Context, userID, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.methods[id]
	if !ok || m.UserID != userID {
		return false, nil
	}
	delete(f.methods, id)
	return true, nil
}

type fakeMQ struct {
	mu      sync.Mutex
	codes   []VerificationCodeIssuedEvent
	links   []VerificationLinkIssuedEvent
	resets  []PasswordResetRequestedEvent
	failAll error
}

func (f *fakeMQ) PublishVerificationCodeIssued(_ context.Context, msg VerificationCodeIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.codes = append(f.codes, msg)
	return nil
}

func (f *fakeMQ) PublishVerificationLinkIssued(_ context.Context, msg VerificationLinkIssuedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.links = append(f.links, msg)
	return nil
}

func (f *fakeMQ) PublishPasswordResetRequested(_ context.Context, msg PasswordResetRequestedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll != nil {
		return f.failAll
	}
	f.resets = append(f.resets, msg)
	return nil
}

func (f *fakeMQ) lastCode() VerificationCodeIssuedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.codes[len(f.codes)-1]
}

type seqUUID struct {
	mu sync.Mutex
	n  int
}

func (s *seqUUID) Generate() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return "id-" + strconv.Itoa(s.n)
}

type harness struct {
	uc    *Usecase
	db    *fakeDB
	mq    *fakeMQ
	mr    *miniredis.Miniredis
	clock *clock.Fixed
	totp  *otp.TOTP
	enf   *casbin.Enforcer
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

	h := &harness{
		db:    newFakeDB(),
		mq:    &fakeMQ{},
		mr:    mr,
		clock: clock.NewFixed(testNow),
		totp:  otp.NewTOTP("credbite", 30, 1, libotp.DigitsSix),
		enf:   enf,
	}
	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoMessaging: h.mq,
		Store:         credstore.NewRedis(client),
		Validator:     v,
		Config:        cfg,
		MFAEncryptor:  mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: bytes.Repeat([]byte{3}, 32)}),
		Totp:          h.totp,
		UUID:          &seqUUID{},
		Clock:         h.clock,
		Instrument:    instrument.NewNoop(),
		Enforcer:      enf,
	})

	h.db.addUser(entity.User{ID: "u1", Email: "ada@example.com", FullName: "Ada", Phone: "+620000", Status: entity.UserStatusActive})
	return h
}

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, goerror.CodeOf(err), err.Error())
}

func assertInvalidCredential(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, entity.ErrInvalidOrExpiredCredential), err.Error())
}

func authCtx(sub string, roles ...string) context.Context {
	clm := &jwt.Claims{Authorities: roles}
	clm.Subject = sub
	return jwt.SetAuth(context.Background(), clm)
}
