package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/goerror"
	"github.com/shandysiswandi/credbite/internal/pkg/hash"
)

// recordStore is the cache-aside authorization record store. Postgres is the
// source of truth; cache failures are logged and fall through.
type recordStore struct {
	db    repoDB
	cache repoCache
}

func (r *recordStore) save(ctx context.Context, rec entity.AuthorizationRecord) error {
	if err := r.db.CreateAuthorization(ctx, rec); err != nil {
		return err
	}
	if err := r.cache.SetAuthorization(ctx, rec); err != nil {
		slog.WarnContext(ctx, "failed to cache authorization", "authorization_id", rec.ID, "error", err)
	}
	return nil
}

func (r *recordStore) findByID(ctx context.Context, id int64) (*entity.AuthorizationRecord, error) {
	rec, err := r.cache.GetAuthorization(ctx, id)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "failed to read cached authorization", "authorization_id", id, "error", err)
	}

	rec, err = r.db.GetAuthorizationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, *rec)
	return rec, nil
}

// findByToken hashes value and matches it against the token kind; any kind
// matches both the access and refresh hash.
func (r *recordStore) findByToken(ctx context.Context, value string, kind entity.TokenKind) (*entity.AuthorizationRecord, error) {
	tokenHash := hash.Sum(value)

	rec, err := r.cache.GetAuthorizationByTokenHash(ctx, tokenHash)
	if err == nil && matchesKind(rec, tokenHash, kind) {
		return rec, nil
	}
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "failed to read cached authorization by token", "error", err)
	}

	rec, err = r.db.GetAuthorizationByTokenHash(ctx, tokenHash, kind)
	if err != nil {
		return nil, err
	}
	r.fill(ctx, *rec)
	return rec, nil
}

// findByTokenHint looks the token up as the hinted kind first and then as any
// kind. Unknown hints are ignored, as RFC 7009 and RFC 7662 require.
func (r *recordStore) findByTokenHint(ctx context.Context, value, hint string) (*entity.AuthorizationRecord, error) {
	kind, ok := entity.ParseTokenKind(hint)
	if !ok || kind == entity.TokenKindAny {
		return r.findByToken(ctx, value, entity.TokenKindAny)
	}

	rec, err := r.findByToken(ctx, value, kind)
	if errors.Is(err, goerror.ErrNotFound) {
		return r.findByToken(ctx, value, entity.TokenKindAny)
	}
	return rec, err
}

func (r *recordStore) findByPrincipalName(ctx context.Context, principal string) ([]entity.AuthorizationRecord, error) {
	return r.db.GetAuthorizationsByPrincipal(ctx, principal)
}

// findAllValid pages records whose access token is still live, newest first.
func (r *recordStore) findAllValid(ctx context.Context, now time.Time, page, size int) ([]entity.AuthorizationRecord, int64, error) {
	return r.db.GetValidAuthorizations(ctx, now, size, (page-1)*size)
}

// remove is idempotent and reports whether a row was deleted. The row goes
// first; the eviction also blocks refills from reads that saw the old row.
func (r *recordStore) remove(ctx context.Context, rec entity.AuthorizationRecord) (bool, error) {
	ok, err := r.db.DeleteAuthorization(ctx, rec.ID)
	if err != nil {
		return false, err
	}
	if err := r.cache.DeleteAuthorization(ctx, rec); err != nil {
		slog.WarnContext(ctx, "failed to evict cached authorization", "authorization_id", rec.ID, "error", err)
	}
	return ok, nil
}

// revokeByPrincipal removes every record of principal, optionally limited to
// one client, and returns how many were removed.
func (r *recordStore) revokeByPrincipal(ctx context.Context, principal, clientID string) (int, error) {
	recs, err := r.db.GetAuthorizationsByPrincipal(ctx, principal)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, rec := range recs {
		if clientID != "" && rec.RegisteredClientID != clientID {
			continue
		}
		ok, err := r.remove(ctx, rec)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (r *recordStore) fill(ctx context.Context, rec entity.AuthorizationRecord) {
	ok, err := r.cache.FillAuthorization(ctx, rec)
	if err != nil {
		slog.WarnContext(ctx, "failed to cache authorization", "authorization_id", rec.ID, "error", err)
		return
	}
	if !ok {
		slog.DebugContext(ctx, "skipped caching revoked authorization", "authorization_id", rec.ID)
	}
}

func matchesKind(rec *entity.AuthorizationRecord, tokenHash string, kind entity.TokenKind) bool {
	access := rec.AccessToken.Hash == tokenHash
	refresh := rec.RefreshToken != nil && rec.RefreshToken.Hash == tokenHash
	switch kind {
	case entity.TokenKindAccess:
		return access
	case entity.TokenKindRefresh:
		return refresh
	default:
		return access || refresh
	}
}
