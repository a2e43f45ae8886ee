package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/lo"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
)

// TokenInfo is the management view of an authorization record.
type TokenInfo struct {
	ID            int64
	PrincipalName string
	ClientID      string
	GrantType     string
	TokenType     string
	IssuedAt      time.Time
	ExpiresAt     time.Time
	Scopes        []string
}

func toTokenInfo(rec entity.AuthorizationRecord, _ int) TokenInfo {
	return TokenInfo{
		ID:            rec.ID,
		PrincipalName: rec.PrincipalName,
		ClientID:      rec.RegisteredClientID,
		GrantType:     rec.GrantType,
		TokenType:     rec.AccessToken.Type,
		IssuedAt:      rec.AccessToken.IssuedAt,
		ExpiresAt:     rec.AccessToken.ExpiresAt,
		Scopes:        rec.AuthorizedScopes,
	}
}

type ListTokensInput struct {
	Page int `validate:"gte=1"`
	Size int `validate:"gte=1"`
}

type ListTokensOutput struct {
	Items []TokenInfo
	Total int64
	Page  int
	Size  int
}

// ListTokens pages every live access token, newest first.
func (s *Usecase) ListTokens(ctx context.Context, in ListTokensInput) (*ListTokensOutput, error) {
	ctx, span := s.startSpan(ctx, "ListTokens")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	in.Size = min(in.Size, maxPageSize)

	if _, err := s.authenticatedAndAuthorized(ctx, "oauth2_tokens", "read"); err != nil {
		return nil, err
	}

	recs, total, err := s.records.findAllValid(ctx, s.clock.Now(), in.Page, in.Size)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list valid authorizations", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &ListTokensOutput{
		Items: lo.Map(recs, toTokenInfo),
		Total: total,
		Page:  in.Page,
		Size:  in.Size,
	}, nil
}

type PrincipalTokensInput struct {
	PrincipalName string `validate:"required"`
}

func (s *Usecase) ListPrincipalTokens(ctx context.Context, in PrincipalTokensInput) ([]TokenInfo, error) {
	ctx, span := s.startSpan(ctx, "ListPrincipalTokens")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if _, err := s.authenticatedAndAuthorized(ctx, "oauth2_tokens", "read"); err != nil {
		return nil, err
	}

	recs, err := s.records.findByPrincipalName(ctx, in.PrincipalName)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list principal authorizations", "principal", in.PrincipalName, "error", err)
		return nil, goerror.NewServer(err)
	}

	return lo.Map(recs, toTokenInfo), nil
}

type RevokeTokenInput struct {
	ID int64 `validate:"required,gt=0"`
}

func (s *Usecase) RevokeToken(ctx context.Context, in RevokeTokenInput) error {
	ctx, span := s.startSpan(ctx, "RevokeToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "oauth2_tokens", "revoke")
	if err != nil {
		return err
	}

	rec, err := s.records.findByID(ctx, in.ID)
	if errors.Is(err, goerror.ErrNotFound) {
		return goerror.NewBusiness("Token not found", goerror.CodeNotFound)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get authorization", "authorization_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	if _, err := s.records.remove(ctx, *rec); err != nil {
		slog.ErrorContext(ctx, "failed to remove authorization", "authorization_id", in.ID, "error", err)
		return goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "token revoked", "authorization_id", in.ID, "by_user_id", clm.Subject)
	return nil
}

type RevokePrincipalTokensInput struct {
	PrincipalName string `validate:"required"`
	// ClientID limits revocation to one client when set.
	ClientID string
}

type RevokePrincipalTokensOutput struct {
	Revoked int
}

func (s *Usecase) RevokePrincipalTokens(ctx context.Context, in RevokePrincipalTokensInput) (*RevokePrincipalTokensOutput, error) {
	ctx, span := s.startSpan(ctx, "RevokePrincipalTokens")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "oauth2_tokens", "revoke")
	if err != nil {
		return nil, err
	}

	n, err := s.records.revokeByPrincipal(ctx, in.PrincipalName, in.ClientID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to revoke principal tokens", "principal", in.PrincipalName, "client_id", in.ClientID, "error", err)
		return nil, goerror.NewServer(err)
	}

	slog.InfoContext(ctx, "principal tokens revoked", "principal", in.PrincipalName, "client_id", in.ClientID, "count", n, "by_user_id", clm.Subject)
	return &RevokePrincipalTokensOutput{Revoked: n}, nil
}
