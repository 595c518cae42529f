package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oregrid/facility-cli/internal/model"
)

func locatedFacility(id, name string, lat, lng float64) *model.FacilityRecord {
	return &model.FacilityRecord{
		FacilityID:  id,
		Name:        name,
		CountryCode: "ZA",
		Location:    &model.Location{Lat: lat, Lng: lng, Precision: model.PrecisionSite},
		Types:       []string{"mine"},
	}
}

func namedFacility(id, name string, aliases ...string) *model.FacilityRecord {
	return &model.FacilityRecord{
		FacilityID:  id,
		Name:        name,
		Aliases:     aliases,
		CountryCode: "ZA",
		Types:       []string{"mine"},
	}
}

func TestFacilityIndexGeographicCandidates(t *testing.T) {
	a := locatedFacility("za-two-rivers-a1", "Two Rivers Platinum Mine", -24.893, 30.124)
	b := locatedFacility("za-two-rivers-b2", "Two Rivers", -24.895, 30.126)
	far := locatedFacility("za-far-away-c3", "Somewhere Else", -26.5, 29.0)

	idx := NewFacilityIndex([]*model.FacilityRecord{a, b, far})

	cands := idx.Candidates(a)
	require.Len(t, cands, 1)
	assert.Equal(t, b.FacilityID, cands[0].FacilityID)
}

func TestFacilityIndexNeighborCells(t *testing.T) {
	// Records in adjacent coarse cells must still shortlist each other.
	a := locatedFacility("za-edge-a1", "Edge North", -24.999, 30.001)
	b := locatedFacility("za-edge-b2", "Edge South", -25.001, 30.001)

	idx := NewFacilityIndex([]*model.FacilityRecord{a, b})
	cands := idx.Candidates(a)
	require.Len(t, cands, 1)
	assert.Equal(t, b.FacilityID, cands[0].FacilityID)
}

func TestFacilityIndexTokenCandidates(t *testing.T) {
	a := namedFacility("za-kamoa-a1", "Kamoa Kakula Copper")
	b := namedFacility("za-kamoa-b2", "Kamoa-Kakula")
	other := namedFacility("za-other-c3", "Oyu Tolgoi")

	idx := NewFacilityIndex([]*model.FacilityRecord{a, b, other})
	cands := idx.Candidates(a)
	require.Len(t, cands, 1)
	assert.Equal(t, b.FacilityID, cands[0].FacilityID)
}

func TestFacilityIndexAliasTokenProbing(t *testing.T) {
	a := namedFacility("za-hillside-a1", "Hillside Aluminium", "Bayside Works")
	b := namedFacility("za-bayside-b2", "Bayside Smelter")

	idx := NewFacilityIndex([]*model.FacilityRecord{a, b})
	cands := idx.Candidates(a)
	require.Len(t, cands, 1)
	assert.Equal(t, b.FacilityID, cands[0].FacilityID)
}

func TestFacilityIndexExcludesSelfAndSorts(t *testing.T) {
	a := namedFacility("za-zz-a1", "Common Name")
	b := namedFacility("za-aa-b2", "Common Name")
	c := namedFacility("za-mm-c3", "Common Name")

	idx := NewFacilityIndex([]*model.FacilityRecord{a, b, c})
	cands := idx.Candidates(a)
	require.Len(t, cands, 2)
	assert.Equal(t, "za-aa-b2", cands[0].FacilityID)
	assert.Equal(t, "za-mm-c3", cands[1].FacilityID)
}

func TestCompanyIndexCandidates(t *testing.T) {
	companies := []model.CanonicalCompany{
		{CompanyID: "c-bhp", RegisteredName: "BHP Group Ltd", CountryCode: "AU", Aliases: []string{"BHP Billiton"}},
		{CompanyID: "c-rio", RegisteredName: "Rio Tinto Ltd", CountryCode: "AU"},
		{CompanyID: "c-bhp-za", RegisteredName: "BHP South Africa", CountryCode: "ZA"},
	}
	idx := NewCompanyIndex(companies)

	// Country hint probes country bucket then global bucket.
	cands := idx.Candidates("BHP", "AU")
	require.Len(t, cands, 2)
	assert.Equal(t, "c-bhp", cands[0].CompanyID)
	assert.Equal(t, "c-bhp-za", cands[1].CompanyID)

	// No hint falls back to the global bucket.
	cands = idx.Candidates("BHP Group", "")
	require.Len(t, cands, 2)

	// Alias tokens shortlist too.
	cands = idx.Candidates("Rio Tinto", "AU")
	require.Len(t, cands, 1)
	assert.Equal(t, "c-rio", cands[0].CompanyID)

	assert.Empty(t, idx.Candidates("   ", "AU"))
}

func TestCompanyIndexAll(t *testing.T) {
	companies := []model.CanonicalCompany{
		{CompanyID: "c-b", RegisteredName: "Beta"},
		{CompanyID: "c-a", RegisteredName: "Alpha"},
	}
	idx := NewCompanyIndex(companies)
	all := idx.All()
	require.Len(t, all, 2)
	assert.Equal(t, "c-a", all[0].CompanyID)
	assert.Equal(t, "c-b", all[1].CompanyID)
}
