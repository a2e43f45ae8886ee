package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
)

type userRow struct {
	ID       string            `db:"id"`
	Email    string            `db:"email"`
	FullName string            `db:"full_name"`
	Status   entity.UserStatus `db:"status"`
	Roles    []string          `db:"roles"`
}

func (r userRow) toEntity() *entity.User {
	return &entity.User{ID: r.ID, Email: r.Email, FullName: r.FullName, Status: r.Status, Roles: r.Roles}
}

func (s *DB) GetUserByID(ctx context.Context, id string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT id, email, full_name, status, roles FROM identity_users WHERE id = $1`, id)
	if err != nil {
		return nil, s.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[userRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	return row.toEntity(), nil
}

func (s *DB) GetUserByEmail(ctx context.Context, email string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByEmail")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT id, email, full_name, status, roles FROM identity_users WHERE email = lower($1)`, email)
	if err != nil {
		return nil, s.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[userRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	return row.toEntity(), nil
}

// CreateUser provisions a shared guest account; a taken email is
// goerror.ErrConflict.
func (s *DB) CreateUser(ctx context.Context, u entity.User) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `INSERT INTO identity_users (id, email, full_name, status, roles)
		VALUES ($1, lower($2), $3, $4, $5)`,
		u.ID, u.Email, u.FullName, u.Status, nonNil(u.Roles))

	return s.mapError(err)
}
