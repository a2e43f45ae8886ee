package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/credbite/internal/identity/entity"
)

const userColumns = `id, email, full_name, phone, status, roles`

type userRow struct {
	ID       string            `db:"id"`
	Email    string            `db:"email"`
	FullName string            `db:"full_name"`
	Phone    string            `db:"phone"`
	Status   entity.UserStatus `db:"status"`
	Roles    []string          `db:"roles"`
}

func (r userRow) toEntity() *entity.User {
	return &entity.User{
		ID:       r.ID,
		Email:    r.Email,
		FullName: r.FullName,
		Phone:    r.Phone,
		Status:   r.Status,
		Roles:    r.Roles,
	}
}

func (s *DB) GetUserByID(ctx context.Context, id string) (_ *entity.User, err error) {
	ctx, span := s.startSpan(ctx, "GetUserByID")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT `+userColumns+` FROM identity_users WHERE id = $1`, id)
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

	rows, err := s.conn.Query(ctx, `SELECT `+userColumns+` FROM identity_users WHERE email = lower($1)`, email)
	if err != nil {
		return nil, s.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[userRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	return row.toEntity(), nil
}

// CreateUser inserts a user row. It exists for tests and seeding; accounts
// are otherwise owned by the user service.
func (s *DB) CreateUser(ctx context.Context, u entity.User, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "CreateUser")
	defer func() { s.endSpan(span, err) }()

	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}

	_, err = s.conn.Exec(ctx, `INSERT INTO identity_users (id, email, full_name, phone, status, roles, created_at)
		VALUES ($1, lower($2), $3, $4, $5, $6, $7)`,
		u.ID, u.Email, u.FullName, u.Phone, u.Status, roles, at)
	return s.mapError(err)
}
