package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/oregrid/facility-cli/internal/model"
)

// PgxPool is the subset of pgxpool.Pool used by the Postgres store. pgxmock
// satisfies it for unit tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresRelationshipStore implements RelationshipStore on pgx.
type PostgresRelationshipStore struct {
	pool PgxPool
}

// NewPostgres creates a relationship store backed by a new pgx pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresRelationshipStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresRelationshipStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool (or a pgxmock pool in tests).
func NewPostgresWithPool(pool PgxPool) *PostgresRelationshipStore {
	return &PostgresRelationshipStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS relationships (
	relationship_id UUID PRIMARY KEY,
	facility_id     TEXT NOT NULL,
	company_id      TEXT NOT NULL,
	role            TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	base_confidence DOUBLE PRECISION NOT NULL,
	gate            TEXT NOT NULL,
	match_method    TEXT NOT NULL,
	evidence        TEXT,
	gates_applied   JSONB,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	UNIQUE(facility_id, company_id, role)
);

CREATE INDEX IF NOT EXISTS idx_relationships_facility ON relationships(facility_id);
CREATE INDEX IF NOT EXISTS idx_relationships_gate ON relationships(gate);
`

// Migrate creates the relationships table and indexes.
func (s *PostgresRelationshipStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the connection pool.
func (s *PostgresRelationshipStore) Close() error {
	s.pool.Close()
	return nil
}

// Upsert inserts or updates by natural key, preserving relationship_id and
// created_at for existing rows.
func (s *PostgresRelationshipStore) Upsert(ctx context.Context, rel *model.Relationship) error {
	if !rel.Gate.Valid() {
		return eris.Errorf("postgres: invalid gate %q", rel.Gate)
	}

	gates, err := json.Marshal(rel.GatesApplied)
	if err != nil {
		return eris.Wrap(err, "postgres: encode gates_applied")
	}

	id := rel.RelationshipID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rel.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO relationships (
			relationship_id, facility_id, company_id, role,
			confidence, base_confidence, gate, match_method,
			evidence, gates_applied, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (facility_id, company_id, role) DO UPDATE SET
			confidence      = EXCLUDED.confidence,
			base_confidence = EXCLUDED.base_confidence,
			gate            = EXCLUDED.gate,
			match_method    = EXCLUDED.match_method,
			evidence        = EXCLUDED.evidence,
			gates_applied   = EXCLUDED.gates_applied,
			updated_at      = EXCLUDED.updated_at`,
		id, rel.FacilityID, rel.CompanyID, string(rel.Role),
		rel.Confidence, rel.BaseConfidence, string(rel.Gate), rel.MatchMethod,
		rel.Evidence, gates, createdAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert relationship %s", rel.NaturalKey())
}

// List returns relationships matching the filter, ordered by facility_id
// then confidence descending.
func (s *PostgresRelationshipStore) List(ctx context.Context, filter RelationshipFilter) ([]model.Relationship, error) {
	query := `
		SELECT relationship_id, facility_id, company_id, role,
		       confidence, base_confidence, gate, match_method,
		       COALESCE(evidence, ''), COALESCE(gates_applied, '[]'::jsonb), created_at
		FROM relationships
		WHERE 1=1`
	var args []any

	if filter.FacilityID != "" {
		args = append(args, filter.FacilityID)
		query += fmt.Sprintf(" AND facility_id = $%d", len(args))
	}
	if filter.Gate != "" {
		args = append(args, string(filter.Gate))
		query += fmt.Sprintf(" AND gate = $%d", len(args))
	}
	if filter.MinConfidence > 0 {
		args = append(args, filter.MinConfidence)
		query += fmt.Sprintf(" AND confidence >= $%d", len(args))
	}
	query += " ORDER BY facility_id, confidence DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list relationships")
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var rel model.Relationship
		var role, gate string
		var gates []byte
		if err := rows.Scan(
			&rel.RelationshipID, &rel.FacilityID, &rel.CompanyID, &role,
			&rel.Confidence, &rel.BaseConfidence, &gate, &rel.MatchMethod,
			&rel.Evidence, &gates, &rel.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan relationship")
		}
		rel.Role = model.MentionRole(role)
		rel.Gate = model.Gate(gate)
		if len(gates) > 0 {
			if err := json.Unmarshal(gates, &rel.GatesApplied); err != nil {
				return nil, eris.Wrap(err, "postgres: decode gates_applied")
			}
		}
		out = append(out, rel)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate relationships")
}
