package app

import (
	"context"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goroutine"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/mail"
	"github.com/shandysiswandi/credbite/internal/pkg/messaging"
	"github.com/shandysiswandi/credbite/internal/pkg/mfa"
	"github.com/shandysiswandi/credbite/internal/pkg/otp"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
	"github.com/shandysiswandi/credbite/internal/pkg/uid"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine    *goroutine.Manager
	validator    validator.Validator
	clock        clock.Clocker
	bcrypt       hash.Hash
	uid          uid.NumberID
	uuid         uid.StringID
	totp         *otp.TOTP
	mfaEncryptor mfa.Encryptor

	// resources
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	store     credstore.Store
	mail      mail.Mail
	messaging messaging.Messaging
	casbin    *casbin.Enforcer
	keys      *jwt.KeyManager
	jwt       *jwt.RS256

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initDatabase()
	app.initCache()
	app.initMail()
	app.initMessaging()
	app.initCasbin()
	app.initJWT()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
