package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shandysiswandi/credbite/internal/oauth/entity"
)

type clientRow struct {
	ID                    string   `db:"id"`
	ClientID              string   `db:"client_id"`
	ClientSecretHash      string   `db:"client_secret_hash"`
	ClientName            string   `db:"client_name"`
	GrantTypes            []string `db:"grant_types"`
	Scopes                []string `db:"scopes"`
	AccessTokenTTLSeconds int32    `db:"access_token_ttl_seconds"`
}

func (s *DB) GetClientByClientID(ctx context.Context, clientID string) (_ *entity.RegisteredClient, err error) {
	ctx, span := s.startSpan(ctx, "GetClientByClientID")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `SELECT id, client_id, client_secret_hash, client_name, grant_types, scopes, access_token_ttl_seconds
		FROM oauth2_registered_clients WHERE client_id = $1`, clientID)
	if err != nil {
		return nil, s.mapError(err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[clientRow])
	if err != nil {
		return nil, s.mapError(err)
	}

	return &entity.RegisteredClient{
		ID:               row.ID,
		ClientID:         row.ClientID,
		ClientSecretHash: row.ClientSecretHash,
		ClientName:       row.ClientName,
		GrantTypes:       row.GrantTypes,
		Scopes:           row.Scopes,
		AccessTokenTTL:   time.Duration(row.AccessTokenTTLSeconds) * time.Second,
	}, nil
}

// UpsertClient keeps the row id of an existing client_id.
func (s *DB) UpsertClient(ctx context.Context, c entity.RegisteredClient) (err error) {
	ctx, span := s.startSpan(ctx, "UpsertClient")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `INSERT INTO oauth2_registered_clients
		(id, client_id, client_secret_hash, client_name, grant_types, scopes, access_token_ttl_seconds)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (client_id) DO UPDATE SET
			client_secret_hash = EXCLUDED.client_secret_hash,
			client_name = EXCLUDED.client_name,
			grant_types = EXCLUDED.grant_types,
			scopes = EXCLUDED.scopes,
			access_token_ttl_seconds = EXCLUDED.access_token_ttl_seconds`,
		c.ID, c.ClientID, c.ClientSecretHash, c.ClientName, nonNil(c.GrantTypes), nonNil(c.Scopes), int32(c.AccessTokenTTL/time.Second))

	return s.mapError(err)
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
