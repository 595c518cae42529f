// Package registry defines the canonical-company registry boundary. The
// registry itself is an external collaborator; this package holds the query
// contract and an offline snapshot implementation.
package registry

import (
	"context"

	"github.com/oregrid/facility-cli/internal/model"
)

// Registry answers candidate-company queries. Implementations must be safe
// for concurrent use; resolution fans mention lookups out across workers.
type Registry interface {
	// Query returns candidate companies for a raw name and an optional
	// country hint. An empty result is a normal outcome, not an error.
	Query(ctx context.Context, name, countryHint string) ([]model.CanonicalCompany, error)
}
