package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/uid"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

const (
	defaultExpiryHours = 24
	maxPageSize        = 100
)

type AccessCodeIssuedEvent struct {
	EventID        string
	Kind           string
	Code           string
	Resource       string
	ResourceID     string
	Write          bool
	RecipientName  string
	RecipientEmail string
	OwnerEmail     string
	RedirectURL    string
	ExpiresAt      time.Time
}

type repoMessaging interface {
	PublishAccessCodeIssued(ctx context.Context, msg AccessCodeIssuedEvent) error
}

type repoDB interface {
	GetClientByClientID(ctx context.Context, clientID string) (*entity.RegisteredClient, error)
	UpsertClient(ctx context.Context, c entity.RegisteredClient) error

	GetUserByID(ctx context.Context, id string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	CreateUser(ctx context.Context, u entity.User) error

	CreateAuthorization(ctx context.Context, rec entity.AuthorizationRecord) error
	GetAuthorizationByID(ctx context.Context, id int64) (*entity.AuthorizationRecord, error)
	GetAuthorizationByTokenHash(ctx context.Context, tokenHash string, kind entity.TokenKind) (*entity.AuthorizationRecord, error)
	GetAuthorizationsByPrincipal(ctx context.Context, principal string) ([]entity.AuthorizationRecord, error)
	GetValidAuthorizations(ctx context.Context, now time.Time, limit, offset int) ([]entity.AuthorizationRecord, int64, error)
	DeleteAuthorization(ctx context.Context, id int64) (bool, error)
}

// repoCache returns goerror.ErrNotFound on a miss.
type repoCache interface {
	GetAuthorization(ctx context.Context, id int64) (*entity.AuthorizationRecord, error)
	GetAuthorizationByTokenHash(ctx context.Context, tokenHash string) (*entity.AuthorizationRecord, error)
	SetAuthorization(ctx context.Context, rec entity.AuthorizationRecord) error
	// FillAuthorization reports false when rec was deleted after it was read.
	FillAuthorization(ctx context.Context, rec entity.AuthorizationRecord) (bool, error)
	DeleteAuthorization(ctx context.Context, rec entity.AuthorizationRecord) error
}

type keySet interface {
	JWKS(ctx context.Context) (jwt.JWKSet, error)
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	records       *recordStore
	guestCodes    *codeService[entity.GuestClaims]
	shareCodes    *codeService[entity.ShareClaims]
	grants        map[string]grantProvider
	validator     validator.Validator
	cfg           config.Config
	secretHash    hash.Hash
	signer        jwt.Signer
	keys          keySet
	uid           uid.NumberID
	uuid          uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	enforcer      *casbin.Enforcer
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	Store         credstore.Store
	Validator     validator.Validator
	Config        config.Config
	SecretHash    hash.Hash
	Signer        jwt.Signer
	Keys          keySet
	UID           uid.NumberID
	UUID          uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Enforcer      *casbin.Enforcer
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		records:       &recordStore{db: dep.RepoDB, cache: dep.RepoCache},
		guestCodes:    newCodeService[entity.GuestClaims](dep.Store, "guest_code:", dep.Clock),
		shareCodes:    newCodeService[entity.ShareClaims](dep.Store, "share_code:", dep.Clock),
		validator:     dep.Validator,
		cfg:           dep.Config,
		secretHash:    dep.SecretHash,
		signer:        dep.Signer,
		keys:          dep.Keys,
		uid:           dep.UID,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
	}

	s.grants = map[string]grantProvider{
		entity.GrantTypeGuestCode: &guestGrant{codes: s.guestCodes},
		entity.GrantTypeShareCode: &shareGrant{codes: s.shareCodes, users: dep.RepoDB},
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("oauth.usecase").Start(ctx, name)
}

func (s *Usecase) defaultExpiryHours() int {
	if h := s.cfg.GetInt("modules.oauth.default_expiry_hours"); h > 0 {
		return h
	}
	return defaultExpiryHours
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	for _, sub := range append([]string{clm.Subject}, clm.Authorities...) {
		ok, err := s.enforcer.Enforce(sub, obj, act)
		if err != nil {
			slog.ErrorContext(ctx, "failed to check authorization", "user_id", clm.Subject, "error", err)
			return nil, goerror.NewServer(err)
		}
		if ok {
			return clm, nil
		}
	}

	slog.WarnContext(ctx, "account not allowed", "user_id", clm.Subject, "object", obj, "action", act)
	return nil, goerror.NewBusiness("Account not allowed to access this resource", goerror.CodeForbidden)
}
