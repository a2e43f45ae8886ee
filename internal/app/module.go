package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/credbite/internal/identity"
	"github.com/shandysiswandi/credbite/internal/notification"
	"github.com/shandysiswandi/credbite/internal/oauth"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			DBConn:       a.dbConn,
			Store:        a.store,
			Enforcer:     a.casbin,
			Router:       a.router,
			Messaging:    a.messaging,
			Config:       a.config,
			Instrument:   a.ins,
			UUID:         a.uuid,
			MFAEncryptor: a.mfaEncryptor,
			Clock:        a.clock,
			Totp:         a.totp,
			Validator:    a.validator,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.oauth.enabled") {
		if err := oauth.New(oauth.Dependency{
			DBConn:     a.dbConn,
			Redis:      a.cacheConn,
			Store:      a.store,
			Enforcer:   a.casbin,
			Router:     a.router,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			UID:        a.uid,
			Clock:      a.clock,
			SecretHash: a.bcrypt,
			Signer:     a.jwt,
			Keys:       a.keys,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module oauth", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			Redis:      a.cacheConn,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Mail:       a.mail,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
