package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oregrid/facility-cli/internal/model"
)

func TestSessionCachePutGet(t *testing.T) {
	c := NewSessionCache()

	_, ok := c.Get("BHP Group", "AU")
	assert.False(t, ok)

	cands := []model.CanonicalCompany{{CompanyID: "c-bhp", RegisteredName: "BHP Group Ltd"}}
	c.Put("BHP Group", "AU", cands)

	got, ok := c.Get("BHP Group", "AU")
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "c-bhp", got[0].CompanyID)
	assert.Equal(t, 1, c.Len())
}

func TestSessionCacheKeyNormalization(t *testing.T) {
	c := NewSessionCache()
	c.Put("BHP Group Ltd", "au", []model.CanonicalCompany{{CompanyID: "c-bhp"}})

	// Normalized-equal names and case-insensitive country hints share a key.
	_, ok := c.Get("bhp group", "AU")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestSessionCacheNegativeResult(t *testing.T) {
	c := NewSessionCache()
	c.Put("Unknown Co", "ZA", nil)

	got, ok := c.Get("Unknown Co", "ZA")
	assert.True(t, ok, "a cached empty shortlist is a hit")
	assert.Empty(t, got)
}
