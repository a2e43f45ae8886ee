package jwt

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgxKeyStore keeps keys in oauth2_signing_keys. The partial unique index on
// (algorithm) WHERE active makes Insert single-writer across replicas.
type PgxKeyStore struct {
	pool *pgxpool.Pool
}

func NewPgxKeyStore(pool *pgxpool.Pool) *PgxKeyStore {
	return &PgxKeyStore{pool: pool}
}

func (s *PgxKeyStore) ActiveKey(ctx context.Context, algorithm string) (*StoredKey, error) {
	const q = `SELECT id, kid, algorithm, private_key_pem, created_at
		FROM oauth2_signing_keys WHERE algorithm = $1 AND active LIMIT 1`

	var k StoredKey
	err := s.pool.QueryRow(ctx, q, algorithm).Scan(&k.ID, &k.KID, &k.Algorithm, &k.PrivateKeyPEM, &k.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *PgxKeyStore) Insert(ctx context.Context, key StoredKey) (bool, error) {
	const q = `INSERT INTO oauth2_signing_keys (id, kid, algorithm, private_key_pem, active, created_at)
		VALUES ($1, $2, $3, $4, TRUE, $5) ON CONFLICT DO NOTHING`

	tag, err := s.pool.Exec(ctx, q, key.ID, key.KID, key.Algorithm, key.PrivateKeyPEM, key.CreatedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
