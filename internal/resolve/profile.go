// Package resolve implements the company mention resolution engine:
// candidate shortlisting, similarity scoring with boosts and penalties,
// threshold gating, and relationship upserts.
package resolve

import (
	"github.com/rotisserie/eris"

	"github.com/oregrid/facility-cli/internal/model"
)

// Profile is a named tuning of the resolution thresholds and adjustment
// magnitudes. Profiles are configuration, never hard-wired: operators retune
// precision/recall without code changes.
type Profile struct {
	Name string `yaml:"name" mapstructure:"name"`

	AutoAcceptThreshold float64 `yaml:"auto_accept_threshold" mapstructure:"auto_accept_threshold"`
	ReviewMinThreshold  float64 `yaml:"review_min_threshold" mapstructure:"review_min_threshold"`

	// Boosts.
	PreferRegistryBoost float64 `yaml:"prefer_registry_boost" mapstructure:"prefer_registry_boost"`
	DualSourceBoost     float64 `yaml:"dual_source_boost" mapstructure:"dual_source_boost"`
	ParentMatchBoost    float64 `yaml:"parent_match_boost" mapstructure:"parent_match_boost"`

	// Penalties (positive magnitudes, subtracted during scoring).
	CountryMismatchPenalty float64 `yaml:"country_mismatch_penalty" mapstructure:"country_mismatch_penalty"`
	NoIdentifierPenalty    float64 `yaml:"no_identifier_penalty" mapstructure:"no_identifier_penalty"`
	NameLengthPenalty      float64 `yaml:"name_length_penalty" mapstructure:"name_length_penalty"`
	GenericNamePenalty     float64 `yaml:"generic_name_penalty" mapstructure:"generic_name_penalty"`

	// NameLengthGap is the normalized-name length difference beyond which
	// NameLengthPenalty applies.
	NameLengthGap int `yaml:"name_length_gap" mapstructure:"name_length_gap"`
}

// Moderate returns the default profile.
func Moderate() Profile {
	return Profile{
		Name:                   "moderate",
		AutoAcceptThreshold:    0.90,
		ReviewMinThreshold:     0.75,
		PreferRegistryBoost:    0.05,
		DualSourceBoost:        0.03,
		ParentMatchBoost:       0.02,
		CountryMismatchPenalty: 0.15,
		NoIdentifierPenalty:    0.10,
		NameLengthPenalty:      0.10,
		GenericNamePenalty:     0.15,
		NameLengthGap:          20,
	}
}

// Strict returns a precision-leaning profile.
func Strict() Profile {
	p := Moderate()
	p.Name = "strict"
	p.AutoAcceptThreshold = 0.95
	p.ReviewMinThreshold = 0.85
	p.CountryMismatchPenalty = 0.20
	p.GenericNamePenalty = 0.20
	return p
}

// Permissive returns a recall-leaning profile.
func Permissive() Profile {
	p := Moderate()
	p.Name = "permissive"
	p.AutoAcceptThreshold = 0.85
	p.ReviewMinThreshold = 0.65
	p.NoIdentifierPenalty = 0.05
	return p
}

// ProfileByName resolves a named profile.
func ProfileByName(name string) (Profile, error) {
	switch name {
	case "", "moderate":
		return Moderate(), nil
	case "strict":
		return Strict(), nil
	case "permissive":
		return Permissive(), nil
	}
	return Profile{}, eris.Errorf("resolve: unknown profile %q", name)
}

// GateFor assigns the gate tier for a final confidence under this profile.
// Pure function: gate assignment depends only on (confidence, thresholds).
func (p Profile) GateFor(confidence float64) model.Gate {
	switch {
	case confidence >= p.AutoAcceptThreshold:
		return model.GateAutoAccept
	case confidence >= p.ReviewMinThreshold:
		return model.GateReview
	default:
		return model.GatePending
	}
}
