// Package dedup implements the facility deduplication engine: a priority
// cascade of match strategies, completeness-based survivor selection, and
// provenance-preserving merge.
package dedup

import (
	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/similarity"
)

// Cascade thresholds. The wider coordinate radius requires tighter name
// agreement to avoid false positives between distinct nearby sites.
const (
	tier1Degrees       = 0.01 // ~1 km
	tier2Degrees       = 0.1  // ~11 km
	tier1TokenOverlap  = 0.6
	tier2NameRatio     = 0.85
	fuzzyNameRatio     = 0.85
	fuzzyTokenOverlap  = 0.8
	coordSanityDegrees = 0.1
)

// Strategy is one rule in the duplicate-match priority cascade.
type Strategy interface {
	Name() string
	Match(a, b *model.FacilityRecord) bool
}

// DefaultCascade returns the ordered strategy list. Strategies are evaluated
// in order with early exit: once one fires, lower-priority strategies are
// never consulted for that pair.
func DefaultCascade() []Strategy {
	return []Strategy{
		coordTier1{},
		coordTier2{},
		exactName{},
		fuzzyName{},
		aliasContainment{},
	}
}

// MatchPair runs the cascade over a pair and returns the name of the first
// strategy that fires, or "" if none do.
func MatchPair(cascade []Strategy, a, b *model.FacilityRecord) (string, bool) {
	for _, s := range cascade {
		if s.Match(a, b) {
			return s.Name(), true
		}
	}
	return "", false
}

// bothLocated reports whether both records carry coordinates.
func bothLocated(a, b *model.FacilityRecord) bool {
	return a.HasCoordinates() && b.HasCoordinates()
}

// pairDistanceKM returns the great-circle distance between two located
// records; false when either side lacks coordinates.
func pairDistanceKM(a, b *model.FacilityRecord) (float64, bool) {
	if !bothLocated(a, b) {
		return 0, false
	}
	return similarity.HaversineKM(a.Location.Lat, a.Location.Lng, b.Location.Lat, b.Location.Lng), true
}

// farApart reports whether both records carry coordinates and sit more than
// the sanity radius apart. Such pairs are distinct sites regardless of name.
func farApart(a, b *model.FacilityRecord) bool {
	return bothLocated(a, b) && !similarity.WithinDegrees(
		a.Location.Lat, a.Location.Lng, b.Location.Lat, b.Location.Lng, coordSanityDegrees)
}

// nameAgreement is the containment check shared by the coordinate tiers.
func containment(a, b *model.FacilityRecord) bool {
	return similarity.Contains(a.Name, b.Name)
}

type coordTier1 struct{}

func (coordTier1) Name() string { return "coord_tier1" }

// Match fires when both records sit within ~1 km and the names share most
// tokens or one contains the other.
func (coordTier1) Match(a, b *model.FacilityRecord) bool {
	if !bothLocated(a, b) {
		return false
	}
	if !similarity.WithinDegrees(a.Location.Lat, a.Location.Lng, b.Location.Lat, b.Location.Lng, tier1Degrees) {
		return false
	}
	return similarity.TokenOverlap(a.Name, b.Name) > tier1TokenOverlap || containment(a, b)
}

type coordTier2 struct{}

func (coordTier2) Name() string { return "coord_tier2" }

// Match fires within ~11 km but demands near-identical names.
func (coordTier2) Match(a, b *model.FacilityRecord) bool {
	if !bothLocated(a, b) {
		return false
	}
	if !similarity.WithinDegrees(a.Location.Lat, a.Location.Lng, b.Location.Lat, b.Location.Lng, tier2Degrees) {
		return false
	}
	return similarity.Ratio(a.Name, b.Name) > tier2NameRatio || containment(a, b)
}

type exactName struct{}

func (exactName) Name() string { return "exact_name" }

// Match fires on case-insensitive name equality. Coordinates, when present on
// both sides, act only as a sanity check; a record without coordinates never
// blocks this match.
func (exactName) Match(a, b *model.FacilityRecord) bool {
	if similarity.NormalizeName(a.Name) == "" {
		return false
	}
	if similarity.NormalizeName(a.Name) != similarity.NormalizeName(b.Name) {
		return false
	}
	return !farApart(a, b)
}

type fuzzyName struct{}

func (fuzzyName) Name() string { return "fuzzy_name" }

func (fuzzyName) Match(a, b *model.FacilityRecord) bool {
	if farApart(a, b) {
		return false
	}
	return similarity.Ratio(a.Name, b.Name) > fuzzyNameRatio ||
		similarity.TokenOverlap(a.Name, b.Name) > fuzzyTokenOverlap
}

type aliasContainment struct{}

func (aliasContainment) Name() string { return "alias_containment" }

// Match fires when either record's name or aliases appear in the other's
// alias set.
func (aliasContainment) Match(a, b *model.FacilityRecord) bool {
	if farApart(a, b) {
		return false
	}
	return aliasHit(a, b) || aliasHit(b, a)
}

// aliasHit reports whether a's name or any alias of a is in b's alias set.
func aliasHit(a, b *model.FacilityRecord) bool {
	if b.HasAlias(a.Name) {
		return true
	}
	for _, alias := range a.Aliases {
		if b.HasAlias(alias) {
			return true
		}
	}
	return false
}
