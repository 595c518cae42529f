package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/oregrid/facility-cli/internal/model"
)

// SQLiteRelationshipStore implements RelationshipStore on modernc.org/sqlite.
type SQLiteRelationshipStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteRelationshipStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteRelationshipStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS relationships (
	relationship_id TEXT PRIMARY KEY,
	facility_id     TEXT NOT NULL,
	company_id      TEXT NOT NULL,
	role            TEXT NOT NULL,
	confidence      REAL NOT NULL,
	base_confidence REAL NOT NULL,
	gate            TEXT NOT NULL,
	match_method    TEXT NOT NULL,
	evidence        TEXT,
	gates_applied   TEXT,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL,
	UNIQUE(facility_id, company_id, role)
);

CREATE INDEX IF NOT EXISTS idx_relationships_facility ON relationships(facility_id);
CREATE INDEX IF NOT EXISTS idx_relationships_gate ON relationships(gate);
`

// Migrate creates the relationships table and indexes.
func (s *SQLiteRelationshipStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the underlying database.
func (s *SQLiteRelationshipStore) Close() error {
	return s.db.Close()
}

// Upsert inserts or updates by natural key. On conflict the existing
// relationship_id and created_at are preserved; confidence, gate, and
// evidence fields are refreshed.
func (s *SQLiteRelationshipStore) Upsert(ctx context.Context, rel *model.Relationship) error {
	if !rel.Gate.Valid() {
		return eris.Errorf("sqlite: invalid gate %q", rel.Gate)
	}

	gates, err := json.Marshal(rel.GatesApplied)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode gates_applied")
	}

	id := rel.RelationshipID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rel.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO relationships (
			relationship_id, facility_id, company_id, role,
			confidence, base_confidence, gate, match_method,
			evidence, gates_applied, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(facility_id, company_id, role) DO UPDATE SET
			confidence      = excluded.confidence,
			base_confidence = excluded.base_confidence,
			gate            = excluded.gate,
			match_method    = excluded.match_method,
			evidence        = excluded.evidence,
			gates_applied   = excluded.gates_applied,
			updated_at      = excluded.updated_at`,
		id, rel.FacilityID, rel.CompanyID, string(rel.Role),
		rel.Confidence, rel.BaseConfidence, string(rel.Gate), rel.MatchMethod,
		rel.Evidence, string(gates), createdAt, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert relationship %s", rel.NaturalKey())
}

// List returns relationships matching the filter, ordered by facility_id
// then confidence descending.
func (s *SQLiteRelationshipStore) List(ctx context.Context, filter RelationshipFilter) ([]model.Relationship, error) {
	query := `
		SELECT relationship_id, facility_id, company_id, role,
		       confidence, base_confidence, gate, match_method,
		       evidence, gates_applied, created_at
		FROM relationships
		WHERE 1=1`
	var args []any

	if filter.FacilityID != "" {
		query += " AND facility_id = ?"
		args = append(args, filter.FacilityID)
	}
	if filter.Gate != "" {
		query += " AND gate = ?"
		args = append(args, string(filter.Gate))
	}
	if filter.MinConfidence > 0 {
		query += " AND confidence >= ?"
		args = append(args, filter.MinConfidence)
	}
	query += " ORDER BY facility_id, confidence DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list relationships")
	}
	defer rows.Close()

	var out []model.Relationship
	for rows.Next() {
		var rel model.Relationship
		var role, gate string
		var evidence, gates sql.NullString
		if err := rows.Scan(
			&rel.RelationshipID, &rel.FacilityID, &rel.CompanyID, &role,
			&rel.Confidence, &rel.BaseConfidence, &gate, &rel.MatchMethod,
			&evidence, &gates, &rel.CreatedAt,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan relationship")
		}
		rel.Role = model.MentionRole(role)
		rel.Gate = model.Gate(gate)
		rel.Evidence = evidence.String
		if gates.Valid && gates.String != "" {
			if err := json.Unmarshal([]byte(gates.String), &rel.GatesApplied); err != nil {
				return nil, eris.Wrap(err, "sqlite: decode gates_applied")
			}
		}
		out = append(out, rel)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate relationships")
}
