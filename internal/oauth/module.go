package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/shandysiswandi/credbite/internal/oauth/inbound"
	"github.com/shandysiswandi/credbite/internal/oauth/outbound/cache"
	"github.com/shandysiswandi/credbite/internal/oauth/outbound/db"
	"github.com/shandysiswandi/credbite/internal/oauth/outbound/mq"
	"github.com/shandysiswandi/credbite/internal/oauth/usecase"
	"github.com/shandysiswandi/credbite/internal/pkg/clock"
	"github.com/shandysiswandi/credbite/internal/pkg/config"
	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
	"github.com/shandysiswandi/credbite/internal/pkg/instrument"
	"github.com/shandysiswandi/credbite/internal/pkg/jwt"
	"github.com/shandysiswandi/credbite/internal/pkg/messaging"
	"github.com/shandysiswandi/credbite/internal/pkg/router"
	"github.com/shandysiswandi/credbite/internal/pkg/uid"
	"github.com/shandysiswandi/credbite/internal/pkg/validator"
)

const defaultRecordCacheTTL = 10 * time.Minute

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Redis      redis.UniversalClient      `validate:"required"`
	Store      credstore.Store            `validate:"required"`
	Enforcer   *casbin.Enforcer           `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Publisher        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	SecretHash hash.Hash                  `validate:"required"`
	Signer     jwt.Signer                 `validate:"required"`
	Keys       *jwt.KeyManager            `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	ttl := dep.Config.GetSecond("modules.oauth.record_cache_ttl_seconds")
	if ttl <= 0 {
		ttl = defaultRecordCacheTTL
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)
	repoCache := cache.NewCache(dep.Redis, ttl, dep.Instrument)
	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoCache:     repoCache,
		RepoMessaging: repoMsg,
		Store:         dep.Store,
		Validator:     dep.Validator,
		Config:        dep.Config,
		SecretHash:    dep.SecretHash,
		Signer:        dep.Signer,
		Keys:          dep.Keys,
		UID:           dep.UID,
		UUID:          dep.UUID,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
	})

	if err := seedClients(context.Background(), uc, dep.Config); err != nil {
		return err
	}

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

// seedClients registers the clients listed under modules.oauth.client_ids,
// each configured at modules.oauth.clients.<id>.
func seedClients(ctx context.Context, uc *usecase.Usecase, cfg config.Config) error {
	for _, id := range cfg.GetArray("modules.oauth.client_ids") {
		prefix := "modules.oauth.clients." + id + "."
		if err := uc.RegisterClient(ctx, usecase.RegisterClientInput{
			ClientID:       id,
			ClientSecret:   cfg.GetString(prefix + "secret"),
			ClientName:     cfg.GetString(prefix + "name"),
			GrantTypes:     cfg.GetArray(prefix + "grant_types"),
			Scopes:         cfg.GetArray(prefix + "scopes"),
			AccessTokenTTL: cfg.GetSecond(prefix + "access_token_ttl_seconds"),
		}); err != nil {
			return fmt.Errorf("oauth: seed client %q: %w", id, err)
		}
		slog.Info("oauth client seeded", "client_id", id)
	}
	return nil
}
