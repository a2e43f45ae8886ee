// Package pgxcasbin persists casbin policies in Postgres through pgx.
//
// Rules are stored as (ptype, v0..v5) with empty strings for unused fields,
// so the unique constraint on all seven columns makes inserts idempotent.
package pgxcasbin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/casbin/casbin/v3/model"
	"github.com/casbin/casbin/v3/persist"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/lo"
)

const (
	fieldCount       = 6
	defaultTableName = "casbin_rules"
)

var (
	ErrRuleTooLong = errors.New("pgxcasbin: rule length exceeds field count")
	ErrEmptyPtype  = errors.New("pgxcasbin: ptype is empty")
)

var (
	_ persist.Adapter        = (*Adapter)(nil)
	_ persist.ContextAdapter = (*Adapter)(nil)
	_ persist.BatchAdapter   = (*Adapter)(nil)
)

// Commander is the subset of pgxpool.Pool the adapter needs.
type Commander interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Adapter struct {
	db    Commander
	table string
}

type Option func(*Adapter)

func WithTableName(name string) Option {
	return func(a *Adapter) { a.table = lo.SnakeCase(name) }
}

func NewAdapter(db Commander, opts ...Option) *Adapter {
	a := &Adapter{db: db, table: defaultTableName}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

var columns = strings.Join(lo.Times(fieldCount, func(i int) string { return "v" + strconv.Itoa(i) }), ", ")

func (a *Adapter) LoadPolicyCtx(ctx context.Context, m model.Model) error {
	rows, err := a.db.Query(ctx, "SELECT ptype, "+columns+" FROM "+a.table+" ORDER BY id")
	if err != nil {
		return fmt.Errorf("pgxcasbin: select: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		line := make([]string, fieldCount+1)
		dest := lo.Map(line, func(_ string, i int) any { return &line[i] })
		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("pgxcasbin: scan: %w", err)
		}
		if err := persist.LoadPolicyArray(trimTrailingEmpty(line), m); err != nil {
			return err
		}
	}
	return rows.Err()
}

// SavePolicyCtx replaces every stored rule with the rules in m.
func (a *Adapter) SavePolicyCtx(ctx context.Context, m model.Model) (err error) {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgxcasbin: begin: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, rbErr)
		}
	}()

	if _, err := tx.Exec(ctx, "DELETE FROM "+a.table); err != nil {
		return fmt.Errorf("pgxcasbin: clear: %w", err)
	}

	for _, sec := range []string{"p", "g"} {
		for ptype, ast := range m[sec] {
			for _, rule := range ast.Policy {
				args, err := ruleArgs(ptype, rule)
				if err != nil {
					return err
				}
				if _, err := tx.Exec(ctx, a.insertSQL(), args...); err != nil {
					return fmt.Errorf("pgxcasbin: insert: %w", err)
				}
			}
		}
	}

	return tx.Commit(ctx)
}

func (a *Adapter) AddPolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	args, err := ruleArgs(ptype, rule)
	if err != nil {
		return err
	}
	if _, err := a.db.Exec(ctx, a.insertSQL(), args...); err != nil {
		return fmt.Errorf("pgxcasbin: insert: %w", err)
	}
	return nil
}

func (a *Adapter) RemovePolicyCtx(ctx context.Context, _ string, ptype string, rule []string) error {
	args, err := ruleArgs(ptype, rule)
	if err != nil {
		return err
	}
	conds := lo.Times(fieldCount, func(i int) string { return "v" + strconv.Itoa(i) + " = $" + strconv.Itoa(i+2) })
	sql := "DELETE FROM " + a.table + " WHERE ptype = $1 AND " + strings.Join(conds, " AND ")
	if _, err := a.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("pgxcasbin: delete: %w", err)
	}
	return nil
}

// RemoveFilteredPolicyCtx deletes rules of ptype whose fields starting at
// fieldIndex equal fieldValues. Empty values match anything.
func (a *Adapter) RemoveFilteredPolicyCtx(ctx context.Context, _ string, ptype string, fieldIndex int, fieldValues ...string) error {
	if ptype == "" {
		return ErrEmptyPtype
	}
	if fieldIndex < 0 || fieldIndex+len(fieldValues) > fieldCount {
		return fmt.Errorf("%w: %d", ErrRuleTooLong, fieldIndex+len(fieldValues))
	}

	sql := "DELETE FROM " + a.table + " WHERE ptype = $1"
	args := []any{ptype}
	for i, v := range fieldValues {
		if v == "" {
			continue
		}
		args = append(args, v)
		sql += " AND v" + strconv.Itoa(fieldIndex+i) + " = $" + strconv.Itoa(len(args))
	}

	if _, err := a.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("pgxcasbin: delete filtered: %w", err)
	}
	return nil
}

func (a *Adapter) AddPolicies(sec string, ptype string, rules [][]string) error {
	for _, rule := range rules {
		if err := a.AddPolicyCtx(context.Background(), sec, ptype, rule); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) RemovePolicies(sec string, ptype string, rules [][]string) error {
	for _, rule := range rules {
		if err := a.RemovePolicyCtx(context.Background(), sec, ptype, rule); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) LoadPolicy(m model.Model) error {
	return a.LoadPolicyCtx(context.Background(), m)
}

func (a *Adapter) SavePolicy(m model.Model) error {
	return a.SavePolicyCtx(context.Background(), m)
}

func (a *Adapter) AddPolicy(sec string, ptype string, rule []string) error {
	return a.AddPolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) RemovePolicy(sec string, ptype string, rule []string) error {
	return a.RemovePolicyCtx(context.Background(), sec, ptype, rule)
}

func (a *Adapter) RemoveFilteredPolicy(sec string, ptype string, fieldIndex int, fieldValues ...string) error {
	return a.RemoveFilteredPolicyCtx(context.Background(), sec, ptype, fieldIndex, fieldValues...)
}

func (a *Adapter) insertSQL() string {
	params := lo.Times(fieldCount, func(i int) string { return "$" + strconv.Itoa(i+2) })
	return "INSERT INTO " + a.table + " (ptype, " + columns + ") VALUES ($1, " + strings.Join(params, ", ") +
		") ON CONFLICT DO NOTHING"
}

func ruleArgs(ptype string, rule []string) ([]any, error) {
	if ptype == "" {
		return nil, ErrEmptyPtype
	}
	if len(rule) > fieldCount {
		return nil, fmt.Errorf("%w: %d > %d", ErrRuleTooLong, len(rule), fieldCount)
	}
	padded := make([]string, fieldCount)
	copy(padded, rule)
	return append([]any{ptype}, lo.ToAnySlice(padded)...), nil
}

func trimTrailingEmpty(rule []string) []string {
	last := len(rule) - 1
	for last >= 0 && rule[last] == "" {
		last--
	}
	return rule[:last+1]
}
