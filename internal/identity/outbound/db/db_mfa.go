package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
)

const mfaColumns = `id, user_id, type, status, is_default, secret, backup_codes_hash,
	last_verified_at, created_at, updated_at`

type mfaRow struct {
	ID              string           `db:"id"`
	UserID          string           `db:"user_id"`
	Type            entity.MFAType   `db:"type"`
	Status          entity.MFAStatus `db:"status"`
	IsDefault       bool             `db:"is_default"`
	Secret          []byte           `db:"secret"`
	BackupCodesHash string           `db:"backup_codes_hash"`
	LastVerifiedAt  *time.Time       `db:"last_verified_at"`
	CreatedAt       time.Time        `db:"created_at"`
	UpdatedAt       time.Time        `db:"updated_at"`
}

func (r mfaRow) toEntity() entity.MFAMethod {
	return entity.MFAMethod{
		ID:              r.ID,
		UserID:          r.UserID,
		Type:            r.Type,
		Status:          r.Status,
		IsDefault:       r.IsDefault,
		Secret:          r.Secret,
		BackupCodesHash: r.BackupCodesHash,
		LastVerifiedAt:  r.LastVerifiedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func (s *DB) getOneMFA(ctx context.Context, query string, args ...any) (*entity.MFAMethod, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, s.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[mfaRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	m := row.toEntity()
	return &m, nil
}

func (s *DB) GetMFAMethodByID(ctx context.Context, id string) (_ *entity.MFAMethod, err error) {
	ctx, span := s.startSpan(ctx, "GetMFAMethodByID")
	defer func() { s.endSpan(span, err) }()

	return s.getOneMFA(ctx, `SELECT `+mfaColumns+` FROM identity_mfa_methods WHERE id = $1`, id)
}

func (s *DB) GetDefaultMFAMethod(ctx context.Context, userID string) (_ *entity.MFAMethod, err error) {
	ctx, span := s.startSpan(ctx, "GetDefaultMFAMethod")
	defer func() { s.endSpan(span, err) }()

	return s.getOneMFA(ctx, `SELECT `+mfaColumns+` FROM identity_mfa_methods
		WHERE user_id = $1 AND is_default`, userID)
}

func (s *DB) GetMFAMethodsByUserID(ctx context.Context, userID string) (_ []entity.MFAMethod, err error) {
	ctx, span := s.startSpan(ctx, "GetMFAMethodsByUserID")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT `+mfaColumns+` FROM identity_mfa_methods
		WHERE user_id = $1 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, s.mapError(err)
	}

	result, err := pgx.CollectRows(rows, pgx.RowToStructByName[mfaRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	methods := make([]entity.MFAMethod, 0, len(result))
	for _, r := range result {
		methods = append(methods, r.toEntity())
	}
	return methods, nil
}

func (s *DB) CreateMFAMethod(ctx context.Context, m entity.MFAMethod) (err error) {
	ctx, span := s.startSpan(ctx, "CreateMFAMethod")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `INSERT INTO identity_mfa_methods
		(id, user_id, type, status, is_default, secret, backup_codes_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, m.UserID, m.Type, m.Status, m.IsDefault, m.Secret, m.BackupCodesHash, m.CreatedAt, m.UpdatedAt)
	return s.mapError(err)
}

// UpdateMFAVerified stamps a successful verification and moves a PENDING
// method to ENABLED.
func (s *DB) UpdateMFAVerified(ctx context.Context, id string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateMFAVerified")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE identity_mfa_methods
		SET status = $2, last_verified_at = $3, updated_at = $3 WHERE id = $1`,
		id, entity.MFAStatusEnabled, at)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return s.mapError(pgx.ErrNoRows)
	}
	return nil
}

// SetDefaultMFAMethod clears the previous default before setting the new
// one so the partial unique index on (user_id) WHERE is_default holds.
func (s *DB) SetDefaultMFAMethod(ctx context.Context, userID, id string) (err error) {
	ctx, span := s.startSpan(ctx, "SetDefaultMFAMethod")
	defer func() { s.endSpan(span, err) }()

	return s.mapError(s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE identity_mfa_methods SET is_default = FALSE
			WHERE user_id = $1 AND is_default AND id <> $2`, userID, id); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `UPDATE identity_mfa_methods SET is_default = TRUE
			WHERE user_id = $1 AND id = $2`, userID, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	}))
}

func (s *DB) SetBackupCodesHash(ctx context.Context, userID, joinedHash string) (err error) {
	ctx, span := s.startSpan(ctx, "SetBackupCodesHash")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `UPDATE identity_mfa_methods SET backup_codes_hash = $2 WHERE user_id = $1`,
		userID, joinedHash)
	return s.mapError(err)
}

// ReplaceBackupCodesHash swaps the hash list only while it still equals
// oldHash and reports whether it did.
func (s *DB) ReplaceBackupCodesHash(ctx context.Context, userID, oldHash, newHash string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "ReplaceBackupCodesHash")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `UPDATE identity_mfa_methods SET backup_codes_hash = $3
		WHERE user_id = $1 AND backup_codes_hash = $2`, userID, oldHash, newHash)
	if err != nil {
		return false, s.mapError(err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *DB) DeleteMFAMethod(ctx context.Context, userID, id string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "DeleteMFAMethod")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM identity_mfa_methods WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return false, s.mapError(err)
	}
	return tag.RowsAffected() == 1, nil
}
