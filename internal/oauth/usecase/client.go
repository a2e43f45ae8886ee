package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

type RegisterClientInput struct {
	ClientID       string   `validate:"required,max=100"`
	ClientSecret   string   `validate:"required,min=16"`
	ClientName     string   `validate:"max=200"`
	GrantTypes     []string `validate:"required,min=1,dive,oneof=urn:ietf:params:oauth:grant-type:guest_code urn:ietf:params:oauth:grant-type:share_code"`
	Scopes         []string
	AccessTokenTTL time.Duration `validate:"gte=0"`
}

// RegisterClient creates or replaces a client. The secret is stored as a
// bcrypt hash.
func (s *Usecase) RegisterClient(ctx context.Context, in RegisterClientInput) error {
	ctx, span := s.startSpan(ctx, "RegisterClient")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	secretHash, err := s.secretHash.Hash(in.ClientSecret)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash client secret", "client_id", in.ClientID, "error", err)
		return goerror.NewServer(err)
	}

	if err := s.repoDB.UpsertClient(ctx, entity.RegisteredClient{
		ID:               s.uuid.Generate(),
		ClientID:         in.ClientID,
		ClientSecretHash: string(secretHash),
		ClientName:       in.ClientName,
		GrantTypes:       in.GrantTypes,
		Scopes:           in.Scopes,
		AccessTokenTTL:   in.AccessTokenTTL,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to upsert client", "client_id", in.ClientID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "client registered", "client_id", in.ClientID)
	return nil
}
