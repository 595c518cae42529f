package store

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oregrid/facility-cli/internal/model"
)

// newMockPostgresStore creates a PostgresRelationshipStore backed by pgxmock.
func newMockPostgresStore(t *testing.T) (*PostgresRelationshipStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return NewPostgresWithPool(mock), mock
}

func TestPostgresMigrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS relationships`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`(?s)INSERT INTO relationships.*ON CONFLICT \(facility_id, company_id, role\) DO UPDATE`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	rel := &model.Relationship{
		FacilityID:     "au-olympic-dam-a1b2c3",
		CompanyID:      "c-bhp",
		Role:           model.RoleOperator,
		Confidence:     0.95,
		BaseConfidence: 0.92,
		Gate:           model.GateAutoAccept,
		MatchMethod:    "exact_name",
	}
	require.NoError(t, s.Upsert(context.Background(), rel))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertRejectsInvalidGate(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	rel := &model.Relationship{
		FacilityID: "au-olympic-dam-a1b2c3",
		CompanyID:  "c-bhp",
		Role:       model.RoleOperator,
		Gate:       "maybe",
	}
	assert.Error(t, s.Upsert(context.Background(), rel))
}

func TestPostgresListWithFilters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	rows := pgxmock.NewRows([]string{
		"relationship_id", "facility_id", "company_id", "role",
		"confidence", "base_confidence", "gate", "match_method",
		"evidence", "gates_applied", "created_at",
	}).AddRow(
		"8c2f8a2e-0000-0000-0000-000000000001", "au-olympic-dam-a1b2c3", "c-bhp", "operator",
		0.95, 0.92, "auto_accept", "exact_name",
		"BHP", []byte(`[{"reason":"dual_source_agreement","delta":0.03}]`), created,
	)

	mock.ExpectQuery(`(?s)SELECT.*FROM relationships.*WHERE 1=1 AND facility_id = \$1 AND gate = \$2 ORDER BY facility_id, confidence DESC`).
		WithArgs("au-olympic-dam-a1b2c3", "auto_accept").
		WillReturnRows(rows)

	out, err := s.List(context.Background(), RelationshipFilter{
		FacilityID: "au-olympic-dam-a1b2c3",
		Gate:       model.GateAutoAccept,
	})
	require.NoError(t, err)
	require.Len(t, out, 1)

	rel := out[0]
	assert.Equal(t, "c-bhp", rel.CompanyID)
	assert.Equal(t, model.GateAutoAccept, rel.Gate)
	assert.Equal(t, model.RoleOperator, rel.Role)
	require.Len(t, rel.GatesApplied, 1)
	assert.InDelta(t, 0.03, rel.GatesApplied[0].Delta, 0.001)
	assert.Equal(t, created, rel.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListEmpty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`(?s)SELECT.*FROM relationships.*WHERE 1=1 ORDER BY facility_id, confidence DESC`).
		WillReturnRows(pgxmock.NewRows([]string{
			"relationship_id", "facility_id", "company_id", "role",
			"confidence", "base_confidence", "gate", "match_method",
			"evidence", "gates_applied", "created_at",
		}))

	out, err := s.List(context.Background(), RelationshipFilter{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
