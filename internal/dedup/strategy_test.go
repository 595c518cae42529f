package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oregrid/facility-cli/internal/model"
)

func located(name string, lat, lng float64) *model.FacilityRecord {
	return &model.FacilityRecord{
		FacilityID:  "za-" + name[:2] + "-x1",
		Name:        name,
		CountryCode: "ZA",
		Location:    &model.Location{Lat: lat, Lng: lng},
		Types:       []string{"mine"},
	}
}

func unlocated(name string, aliases ...string) *model.FacilityRecord {
	return &model.FacilityRecord{
		Name:        name,
		Aliases:     aliases,
		CountryCode: "ZA",
		Types:       []string{"mine"},
	}
}

func TestCoordTier1(t *testing.T) {
	tests := []struct {
		name string
		a, b *model.FacilityRecord
		want bool
	}{
		{
			"close with high token overlap",
			located("Two Rivers Platinum Mine", -24.893, 30.124),
			located("Two Rivers", -24.895, 30.126),
			true,
		},
		{
			"close with containment",
			located("Kamoa Kakula", -10.77, 25.38),
			located("Kamoa Kakula Copper Complex", -10.772, 25.383),
			true,
		},
		{
			"close with single-word containment",
			located("Gold", -26.1, 27.9),
			located("Goldfields Mine", -26.1, 27.9),
			true,
		},
		{
			"close but unrelated names",
			located("Alpha Shaft", -24.893, 30.124),
			located("Zenith Decline", -24.894, 30.125),
			false,
		},
		{
			"similar names but beyond tier1 radius",
			located("Two Rivers Platinum Mine", -24.893, 30.124),
			located("Two Rivers", -24.95, 30.124),
			false,
		},
		{
			"missing coordinates",
			unlocated("Two Rivers"),
			located("Two Rivers", -24.893, 30.124),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coordTier1{}.Match(tt.a, tt.b))
		})
	}
}

func TestCoordTier2(t *testing.T) {
	tests := []struct {
		name string
		a, b *model.FacilityRecord
		want bool
	}{
		{
			"within 0.1 degrees with near-identical names",
			located("Mogalakwena Platinum Mine", -23.99, 28.92),
			located("Mogalakwena Platinum Mines", -24.05, 28.95),
			true,
		},
		{
			"within 0.1 degrees with containment",
			located("Venetia", -22.44, 29.32),
			located("Venetia Diamond Mine", -22.48, 29.37),
			true,
		},
		{
			"within 0.1 degrees but different sites",
			located("Venetia Diamond Mine", -22.44, 29.32),
			located("Musina Copper Mine", -22.48, 29.37),
			false,
		},
		{
			"beyond 0.1 degrees",
			located("Venetia Diamond Mine", -22.44, 29.32),
			located("Venetia Diamond Mine", -22.6, 29.32),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coordTier2{}.Match(tt.a, tt.b))
		})
	}
}

func TestExactName(t *testing.T) {
	tests := []struct {
		name string
		a, b *model.FacilityRecord
		want bool
	}{
		{"equal after normalization", unlocated("Hillside Aluminium Ltd"), unlocated("HILLSIDE ALUMINIUM"), true},
		{"both unlocated different names", unlocated("Hillside"), unlocated("Bayside"), false},
		{"one located one not still matches", unlocated("Hillside Aluminium"), located("Hillside Aluminium", -28.78, 32.04), true},
		{
			"same name but far apart is two sites",
			located("North Shaft", -24.0, 30.0),
			located("North Shaft", -25.5, 30.0),
			false,
		},
		{"empty names never match", unlocated(""), unlocated(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exactName{}.Match(tt.a, tt.b))
		})
	}
}

func TestFuzzyName(t *testing.T) {
	assert.True(t, fuzzyName{}.Match(unlocated("Mogalakwena Platinum Mine"), unlocated("Mogalakwena Platinum Mines")))
	assert.True(t, fuzzyName{}.Match(unlocated("Sishen Iron Ore Mine North"), unlocated("Sishen Iron Ore Mine")))
	assert.False(t, fuzzyName{}.Match(unlocated("Sishen Iron Ore"), unlocated("Kolomela Manganese")))

	// Coordinates more than the sanity radius apart veto a fuzzy name hit.
	a := located("Mogalakwena Platinum Mine", -23.99, 28.92)
	b := located("Mogalakwena Platinum Mines", -25.2, 28.92)
	assert.False(t, fuzzyName{}.Match(a, b))
}

func TestAliasContainment(t *testing.T) {
	a := unlocated("Two Rivers Platinum Mine", "TRP")
	b := unlocated("TRP Operations", "Two Rivers Platinum Mine")

	assert.True(t, aliasContainment{}.Match(a, b))
	assert.True(t, aliasContainment{}.Match(b, a))
	assert.False(t, aliasContainment{}.Match(unlocated("Alpha"), unlocated("Beta")))
}

func TestMatchPairEarlyExit(t *testing.T) {
	// A pair matched by tier 1 reports tier 1, never a later strategy.
	a := located("Two Rivers Platinum Mine", -24.893, 30.124)
	b := located("Two Rivers", -24.895, 30.126)

	method, ok := MatchPair(DefaultCascade(), a, b)
	assert.True(t, ok)
	assert.Equal(t, "coord_tier1", method)
}

func TestPairDistanceKM(t *testing.T) {
	a := located("Two Rivers Platinum Mine", -24.0, 30.0)
	b := located("Two Rivers", -25.0, 30.0)

	km, ok := pairDistanceKM(a, b)
	assert.True(t, ok)
	assert.InDelta(t, 111.19, km, 0.5)

	_, ok = pairDistanceKM(a, unlocated("Two Rivers"))
	assert.False(t, ok)
}

func TestMatchPairCoLocatedContainment(t *testing.T) {
	// Containment at identical coordinates is a tier 1 duplicate even when
	// the shorter name is a bare commodity word.
	a := located("Gold", -26.1, 27.9)
	b := located("Goldfields Mine", -26.1, 27.9)

	method, ok := MatchPair(DefaultCascade(), a, b)
	assert.True(t, ok)
	assert.Equal(t, "coord_tier1", method)
}

func TestFarApartPairNeverMatches(t *testing.T) {
	// Identical names, both located, more than 0.1 degrees apart: no strategy
	// in the cascade may link them.
	a := located("Palabora Copper Mine", -23.9, 31.1)
	b := located("Palabora Copper Mine", -25.2, 31.1)
	b.Aliases = []string{"Palabora Copper Mine"}

	_, ok := MatchPair(DefaultCascade(), a, b)
	assert.False(t, ok)
}
