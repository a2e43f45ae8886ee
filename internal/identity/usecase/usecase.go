package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/casbin/casbin/v3"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/mfa"
	"github.com/shandysiswandi/credbite/internal/pkg/uid"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

const (
	defaultCodeTTL       = 5 * time.Minute
	defaultURLTokenTTL   = 5 * time.Minute
	defaultResetTokenTTL = 15 * time.Minute
	defaultCooldown      = time.Minute
)

type VerificationCodeIssuedEvent struct {
	EventID   string
	UserID    string
	Email     string
	Phone     string
	FullName  string
	Channel   entity.MFAType
	ForMFA    bool
	Code      string
	ExpiresAt time.Time
}

type VerificationLinkIssuedEvent struct {
	EventID   string
	UserID    string
	ClientID  string
	Email     string
	FullName  string
	Token     string
	ExpiresAt time.Time
}

type PasswordResetRequestedEvent struct {
	EventID   string
	UserID    string
	Email     string
	FullName  string
	Token     string
	ExpiresAt time.Time
}

type repoMessaging interface {
	PublishVerificationCodeIssued(ctx context.Context, msg VerificationCodeIssuedEvent) error
	PublishVerificationLinkIssued(ctx context.Context, msg VerificationLinkIssuedEvent) error
	PublishPasswordResetRequested(ctx context.Context, msg PasswordResetRequestedEvent) error
}

type repoDB interface {
	GetUserByID(ctx context.Context, id string) (*entity.User, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)

	GetMFAMethodByID(ctx context.Context, id string) (*entity.MFAMethod, error)
	GetMFAMethodsByUserID(ctx context.Context, userID string) ([]entity.MFAMethod, error)
	GetDefaultMFAMethod(ctx context.Context, userID string) (*entity.MFAMethod, error)

	CreateMFAMethod(ctx context.Context, m entity.MFAMethod) error
	UpdateMFAVerified(ctx context.Context, id string, at time.Time) error
	SetDefaultMFAMethod(ctx context.Context, userID, id string) error
	SetBackupCodesHash(ctx context.Context, userID, joinedHash string) error
	ReplaceBackupCodesHash(ctx context.Context, userID, oldHash, newHash string) (bool, error)
	DeleteMFAMethod(ctx context.Context, userID, id string) (bool, error)
}

type totpProvider interface {
	Generate(accountName string) (secret, uri string, err error)
	URI(accountName, secret string) (string, error)
	Validate(code, secret string, at time.Time) bool
}

type Usecase struct {
	repoDB        repoDB
	repoMessaging repoMessaging
	store         credstore.Store
	validator     validator.Validator
	cfg           config.Config
	mfaEncryptor  mfa.Encryptor
	totp          totpProvider
	uuid          uid.StringID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	enforcer      *casbin.Enforcer
}

type Dependency struct {
	RepoDB        repoDB
	RepoMessaging repoMessaging
	Store         credstore.Store
	Validator     validator.Validator
	Config        config.Config
	MFAEncryptor  mfa.Encryptor
	Totp          totpProvider
	UUID          uid.StringID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Enforcer      *casbin.Enforcer
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoMessaging: dep.RepoMessaging,
		store:         dep.Store,
		validator:     dep.Validator,
		cfg:           dep.Config,
		mfaEncryptor:  dep.MFAEncryptor,
		totp:          dep.Totp,
		uuid:          dep.UUID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) ttl(key string, def time.Duration) time.Duration {
	if d := s.cfg.GetSecond(key); d > 0 {
		return d
	}
	return def
}

func (s *Usecase) codeTTL() time.Duration {
	return s.ttl("modules.identity.code_ttl_seconds", defaultCodeTTL)
}

func (s *Usecase) urlTokenTTL() time.Duration {
	return s.ttl("modules.identity.url_token_ttl_seconds", defaultURLTokenTTL)
}

func (s *Usecase) resetTokenTTL() time.Duration {
	return s.ttl("modules.identity.reset_token_ttl_seconds", defaultResetTokenTTL)
}

func (s *Usecase) cooldown() time.Duration {
	return s.ttl("modules.identity.cooldown_seconds", defaultCooldown)
}

// attemptWindow is zero unless configured, which keeps counters until a
// successful verification or an administrative reset.
func (s *Usecase) attemptWindow() time.Duration {
	return s.cfg.GetMinute("modules.identity.mfa_attempt_window_minutes")
}

func errRateLimited(retryAfter time.Duration) error {
	msg := "Please wait before requesting a new credential"
	if secs := int64(math.Ceil(retryAfter.Seconds())); secs > 0 {
		msg = fmt.Sprintf("Please wait %d seconds before requesting a new credential", secs)
	}
	return goerror.NewBusinessCause(entity.ErrRateLimited, msg, goerror.CodeTooManyRequest)
}

func errInvalidCredential() error {
	return goerror.NewBusinessCause(entity.ErrInvalidOrExpiredCredential, "Invalid or expired credential", goerror.CodeUnauthorized)
}

func errLocked() error {
	return goerror.NewBusinessCause(entity.ErrLocked, "Too many failed attempts, method is locked", goerror.CodeLocked)
}

func (s *Usecase) currentUserID(ctx context.Context) (string, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.Subject == "" {
		return "", goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return clm.Subject, nil
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}

	// the subject itself, then each role it carries
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

	return nil, goerror.NewBusiness("Account not allowed", goerror.CodeForbidden)
}
