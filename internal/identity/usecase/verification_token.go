package usecase

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/credbite/internal/pkg/credstore"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
)

const tokenEntropyBytes = 32

// Cooldown keys carry the credential kind so a client id can never land on
// the password reset cooldown of a user.
func urlTokenKey(clientID, userID string) string {
	return "verification:email-token:" + clientID + ":" + userID
}

func urlTokenCooldownKey(clientID, userID string) string {
	return "verification:cooldown:email-token:" + clientID + ":" + userID
}

func resetTokenKey(userID string) string { return "verification:password-reset:" + userID }

func resetTokenCooldownKey(userID string) string {
	return "verification:cooldown:password-reset:" + userID
}

// newToken returns base64url(prefix + ":" + base64url(32 random bytes)).
// Only its SHA-256 digest is ever stored.
func newToken(prefix string) (string, error) {
	var buf [tokenEntropyBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	payload := prefix + ":" + base64.RawURLEncoding.EncodeToString(buf[:])
	return base64.RawURLEncoding.EncodeToString([]byte(payload)), nil
}

// splitToken decodes a token and returns its n-1 leading fields.
func splitToken(token string, n int) ([]string, bool) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, false
	}
	parts := strings.SplitN(string(raw), ":", n)
	if len(parts) != n {
		return nil, false
	}
	for _, p := range parts {
		if p == "" {
			return nil, false
		}
	}
	return parts[:n-1], true
}

type GenerateURLTokenInput struct {
	ClientID string `validate:"required,excludes=:"`
	UserID   string `validate:"required,excludes=:"`
}

// GenerateURLToken issues an email verification link token bound to the
// client and user.
func (s *Usecase) GenerateURLToken(ctx context.Context, in GenerateURLTokenInput) (string, error) {
	ctx, span := s.startSpan(ctx, "GenerateURLToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return "", goerror.NewInvalidInput(err)
	}

	return s.issueToken(ctx, in.UserID, in.ClientID+":"+in.UserID,
		urlTokenKey(in.ClientID, in.UserID), urlTokenCooldownKey(in.ClientID, in.UserID), s.urlTokenTTL())
}

type VerifyURLTokenInput struct {
	Token string `validate:"required"`
}

type VerifyURLTokenOutput struct {
	ClientID string
	UserID   string
}

func (s *Usecase) VerifyURLToken(ctx context.Context, in VerifyURLTokenInput) (*VerifyURLTokenOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyURLToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	fields, ok := splitToken(in.Token, 3)
	if !ok {
		slog.WarnContext(ctx, "malformed url token")
		return nil, errInvalidCredential()
	}
	clientID, userID := fields[0], fields[1]

	if err := s.consumeToken(ctx, userID, in.Token, urlTokenKey(clientID, userID), urlTokenCooldownKey(clientID, userID)); err != nil {
		return nil, err
	}

	return &VerifyURLTokenOutput{ClientID: clientID, UserID: userID}, nil
}

type InvalidateURLTokenInput struct {
	// ClientID may be empty to drop the user's tokens of every client.
	ClientID string `validate:"excludes=:"`
	UserID   string `validate:"required,excludes=:"`
}

func (s *Usecase) InvalidateURLToken(ctx context.Context, in InvalidateURLTokenInput) error {
	ctx, span := s.startSpan(ctx, "InvalidateURLToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	if in.ClientID != "" {
		return s.invalidate(ctx, in.UserID, urlTokenKey(in.ClientID, in.UserID), urlTokenCooldownKey(in.ClientID, in.UserID))
	}

	for _, pattern := range []string{urlTokenKey("*", in.UserID), urlTokenCooldownKey("*", in.UserID)} {
		n, err := s.store.DeleteByPattern(ctx, pattern)
		if err != nil {
			slog.ErrorContext(ctx, "failed to invalidate url tokens", "user_id", in.UserID, "error", err)
			return goerror.NewServer(err)
		}
		slog.InfoContext(ctx, "url tokens invalidated", "user_id", in.UserID, "keys", n)
	}
	return nil
}

type GeneratePasswordResetTokenInput struct {
	UserID string `validate:"required,excludes=:"`
}

func (s *Usecase) GeneratePasswordResetToken(ctx context.Context, in GeneratePasswordResetTokenInput) (string, error) {
	ctx, span := s.startSpan(ctx, "GeneratePasswordResetToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return "", goerror.NewInvalidInput(err)
	}

	return s.issueToken(ctx, in.UserID, in.UserID,
		resetTokenKey(in.UserID), resetTokenCooldownKey(in.UserID), s.resetTokenTTL())
}

type VerifyResetTokenInput struct {
	Token string `validate:"required"`
}

// VerifyResetToken returns the user the token was issued to and consumes it.
func (s *Usecase) VerifyResetToken(ctx context.Context, in VerifyResetTokenInput) (string, error) {
	ctx, span := s.startSpan(ctx, "VerifyResetToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return "", goerror.NewInvalidInput(err)
	}

	fields, ok := splitToken(in.Token, 2)
	if !ok {
		slog.WarnContext(ctx, "malformed reset token")
		return "", errInvalidCredential()
	}
	userID := fields[0]

	if err := s.consumeToken(ctx, userID, in.Token, resetTokenKey(userID), resetTokenCooldownKey(userID)); err != nil {
		return "", err
	}

	return userID, nil
}

type InvalidatePasswordResetTokenInput struct {
	UserID string `validate:"required"`
}

func (s *Usecase) InvalidatePasswordResetToken(ctx context.Context, in InvalidatePasswordResetTokenInput) error {
	ctx, span := s.startSpan(ctx, "InvalidatePasswordResetToken")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	return s.invalidate(ctx, in.UserID, resetTokenKey(in.UserID), resetTokenCooldownKey(in.UserID))
}

func (s *Usecase) issueToken(ctx context.Context, userID, prefix, key, cooldownKey string, ttl time.Duration) (string, error) {
	if err := s.ensureNoCooldown(ctx, cooldownKey, userID); err != nil {
		return "", err
	}

	token, err := newToken(prefix)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate token", "user_id", userID, "error", err)
		return "", goerror.NewServer(err)
	}

	if err := s.store.Set(ctx, key, hash.Sum(token), ttl); err != nil {
		slog.ErrorContext(ctx, "failed to store token hash", "user_id", userID, "error", err)
		return "", goerror.NewServer(err)
	}

	if err := s.store.Set(ctx, cooldownKey, "1", s.cooldown()); err != nil {
		slog.ErrorContext(ctx, "failed to store token cooldown", "user_id", userID, "error", err)
		return "", goerror.NewServer(err)
	}

	return token, nil
}

func (s *Usecase) consumeToken(ctx context.Context, userID, token, key, cooldownKey string) error {
	stored, err := s.store.Get(ctx, key)
	if errors.Is(err, credstore.ErrNotFound) {
		slog.WarnContext(ctx, "token not found or expired", "user_id", userID)
		return errInvalidCredential()
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to get token hash", "user_id", userID, "error", err)
		return goerror.NewServer(err)
	}

	if subtle.ConstantTimeCompare([]byte(stored), []byte(hash.Sum(token))) != 1 {
		slog.WarnContext(ctx, "token hash mismatch", "user_id", userID)
		return errInvalidCredential()
	}

	return s.consume(ctx, userID, key, cooldownKey)
}
