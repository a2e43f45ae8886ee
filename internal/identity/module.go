package identity

import (
	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shandysiswandi/credbite/internal/identity/inbound"
	"github.com/shandysiswandi/credbite/internal/identity/outbound/db"
	"github.com/shandysiswandi/credbite/internal/identity/outbound/mq"
	"github.com/shandysiswandi/credbite/internal/identity/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/messaging"
	"github.com/shandysiswandi/credbite/internal/pkg/mfa"
	"github.com/shandysiswandi/credbite/internal/pkg/otp"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
	"github.com/shandysiswandi/credbite/internal/pkg/uid"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

type Dependency struct {
	DBConn       *pgxpool.Pool              `validate:"required"`
	Store        credstore.Store            `validate:"required"`
	Enforcer     *casbin.Enforcer           `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Messaging    messaging.Publisher        `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UUID         uid.StringID               `validate:"required"`
	MFAEncryptor mfa.Encryptor              `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Totp         *otp.TOTP                  `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoMessaging: repoMsg,
		Store:         dep.Store,
		Validator:     dep.Validator,
		Config:        dep.Config,
		MFAEncryptor:  dep.MFAEncryptor,
		Totp:          dep.Totp,
		UUID:          dep.UUID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
