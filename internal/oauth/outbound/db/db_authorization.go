package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
	"github.com/shandysiswandi/credbite/internal/pkg/valueobject"
)

const authorizationColumns = `id, registered_client_id, principal_name, grant_type, authorized_scopes,
	access_token_hash, access_token_type, access_token_issued_at, access_token_expires_at,
	refresh_token_hash, refresh_token_issued_at, refresh_token_expires_at, attributes, metadata`

type authorizationRow struct {
	ID                    int64               `db:"id"`
	RegisteredClientID    string              `db:"registered_client_id"`
	PrincipalName         string              `db:"principal_name"`
	GrantType             string              `db:"grant_type"`
	AuthorizedScopes      []string            `db:"authorized_scopes"`
	AccessTokenHash       string              `db:"access_token_hash"`
	AccessTokenType       string              `db:"access_token_type"`
	AccessTokenIssuedAt   time.Time           `db:"access_token_issued_at"`
	AccessTokenExpiresAt  time.Time           `db:"access_token_expires_at"`
	RefreshTokenHash      *string             `db:"refresh_token_hash"`
	RefreshTokenIssuedAt  *time.Time          `db:"refresh_token_issued_at"`
	RefreshTokenExpiresAt *time.Time          `db:"refresh_token_expires_at"`
	Attributes            valueobject.JSONMap `db:"attributes"`
	Metadata              valueobject.JSONMap `db:"metadata"`
}

func (r authorizationRow) toEntity() entity.AuthorizationRecord {
	rec := entity.AuthorizationRecord{
		ID:                 r.ID,
		RegisteredClientID: r.RegisteredClientID,
		PrincipalName:      r.PrincipalName,
		GrantType:          r.GrantType,
		AuthorizedScopes:   r.AuthorizedScopes,
		AccessToken: entity.Token{
			Hash:      r.AccessTokenHash,
			Type:      r.AccessTokenType,
			IssuedAt:  r.AccessTokenIssuedAt.UTC(),
			ExpiresAt: r.AccessTokenExpiresAt.UTC(),
		},
		Attributes: r.Attributes,
		Metadata:   r.Metadata,
	}
	if r.RefreshTokenHash != nil {
		rec.RefreshToken = &entity.Token{Hash: *r.RefreshTokenHash, Type: r.AccessTokenType}
		if r.RefreshTokenIssuedAt != nil {
			rec.RefreshToken.IssuedAt = r.RefreshTokenIssuedAt.UTC()
		}
		if r.RefreshTokenExpiresAt != nil {
			rec.RefreshToken.ExpiresAt = r.RefreshTokenExpiresAt.UTC()
		}
	}
	return rec
}

func (s *DB) collectAuthorizations(rows pgx.Rows) ([]entity.AuthorizationRecord, error) {
	list, err := pgx.CollectRows(rows, pgx.RowToStructByName[authorizationRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	out := make([]entity.AuthorizationRecord, 0, len(list))
	for _, r := range list {
		out = append(out, r.toEntity())
	}
	return out, nil
}

// CreateAuthorization stores token hashes only; Token.Value never reaches
// the table.
func (s *DB) CreateAuthorization(ctx context.Context, rec entity.AuthorizationRecord) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAuthorization")
	defer func() { s.endSpan(span, err) }()

	var (
		refreshHash               *string
		refreshIssued, refreshExp *time.Time
	)
	if rt := rec.RefreshToken; rt != nil {
		refreshHash, refreshIssued, refreshExp = &rt.Hash, &rt.IssuedAt, &rt.ExpiresAt
	}

	_, err = s.conn.Exec(ctx, `INSERT INTO oauth2_authorizations (`+authorizationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.RegisteredClientID, rec.PrincipalName, rec.GrantType, nonNil(rec.AuthorizedScopes),
		rec.AccessToken.Hash, rec.AccessToken.Type, rec.AccessToken.IssuedAt, rec.AccessToken.ExpiresAt,
		refreshHash, refreshIssued, refreshExp, rec.Attributes, rec.Metadata)

	return s.mapError(err)
}

func (s *DB) GetAuthorizationByID(ctx context.Context, id int64) (_ *entity.AuthorizationRecord, err error) {
	ctx, span := s.startSpan(ctx, "GetAuthorizationByID")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT `+authorizationColumns+` FROM oauth2_authorizations WHERE id = $1`, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[authorizationRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	rec := row.toEntity()
	return &rec, nil
}

func (s *DB) GetAuthorizationByTokenHash(ctx context.Context, tokenHash string, kind entity.TokenKind) (_ *entity.AuthorizationRecord, err error) {
	ctx, span := s.startSpan(ctx, "GetAuthorizationByTokenHash")
	defer func() { s.endSpan(span, err) }()

	where := `access_token_hash = $1 OR refresh_token_hash = $1`
	switch kind {
	case entity.TokenKindAccess:
		where = `access_token_hash = $1`
	case entity.TokenKindRefresh:
		where = `refresh_token_hash = $1`
	}

	rows, err := s.conn.Query(ctx, `SELECT `+authorizationColumns+` FROM oauth2_authorizations WHERE `+where+` LIMIT 1`, tokenHash)
	if err != nil {
		return nil, s.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[authorizationRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	rec := row.toEntity()
	return &rec, nil
}

func (s *DB) GetAuthorizationsByPrincipal(ctx context.Context, principal string) (_ []entity.AuthorizationRecord, err error) {
	ctx, span := s.startSpan(ctx, "GetAuthorizationsByPrincipal")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT `+authorizationColumns+` FROM oauth2_authorizations
		WHERE principal_name = $1 ORDER BY id DESC`, principal)
	if err != nil {
		return nil, s.mapError(err)
	}

	return s.collectAuthorizations(rows)
}

// GetValidAuthorizations pages records with a live access token, newest
// first. The count and the page run in one REPEATABLE READ transaction so
// both see the same snapshot.
func (s *DB) GetValidAuthorizations(ctx context.Context, now time.Time, limit, offset int) (_ []entity.AuthorizationRecord, total int64, err error) {
	ctx, span := s.startSpan(ctx, "GetValidAuthorizations")
	defer func() { s.endSpan(span, err) }()

	var out []entity.AuthorizationRecord
	snapshot := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err = s.inTx(ctx, snapshot, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT count(*) FROM oauth2_authorizations WHERE access_token_expires_at > $1`, now).
			Scan(&total); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `SELECT `+authorizationColumns+` FROM oauth2_authorizations
			WHERE access_token_expires_at > $1
			ORDER BY access_token_issued_at DESC, id DESC
			LIMIT $2 OFFSET $3`, now, limit, offset)
		if err != nil {
			return err
		}

		out, err = s.collectAuthorizations(rows)
		return err
	})
	if err != nil {
		return nil, 0, s.mapError(err)
	}

	return out, total, nil
}

// DeleteAuthorization reports whether a row was removed.
func (s *DB) DeleteAuthorization(ctx context.Context, id int64) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "DeleteAuthorization")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM oauth2_authorizations WHERE id = $1`, id)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() > 0, nil
}
