// Package store persists facility records and resolved relationships.
// Facility records live as individually-addressable JSON files with
// backup-before-mutate semantics; relationships live in an upsert-oriented
// tabular store with SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/oregrid/facility-cli/internal/model"
)

// SkippedRecord reports a facility file that could not be loaded.
type SkippedRecord struct {
	Path   string
	Reason string
}

// FacilityStore persists facility records keyed by facility_id.
type FacilityStore interface {
	// Get loads a single record. Returns (nil, nil) when absent.
	Get(ctx context.Context, facilityID string) (*model.FacilityRecord, error)

	// List loads all records, optionally restricted to one country code.
	// Malformed files are skipped and reported, never fatal.
	List(ctx context.Context, country string) ([]*model.FacilityRecord, []SkippedRecord, error)

	// Put writes a record atomically, backing up any previous version first.
	// Schema-invalid records are rejected without touching prior state.
	Put(ctx context.Context, rec *model.FacilityRecord) error

	// Delete removes a record after backing it up.
	Delete(ctx context.Context, facilityID string) error
}

// RelationshipFilter restricts a relationship listing.
type RelationshipFilter struct {
	FacilityID    string
	Gate          model.Gate
	MinConfidence float64
	Limit         int
}

// RelationshipStore persists resolved facility-company relationships with
// upsert-by-natural-key semantics.
type RelationshipStore interface {
	// Upsert inserts or updates the row identified by the natural key
	// (facility_id, company_id, role). The relationship ID and creation
	// timestamp of an existing row are preserved.
	Upsert(ctx context.Context, rel *model.Relationship) error

	// List returns relationships matching the filter, ordered by facility
	// then confidence descending.
	List(ctx context.Context, filter RelationshipFilter) ([]model.Relationship, error)

	Migrate(ctx context.Context) error
	Close() error
}
