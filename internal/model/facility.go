// Package model defines the core record types for the facility corpus:
// facility records, company mentions, canonical companies, and resolved
// facility-company relationships.
package model

import (
	"strings"
	"time"
)

// Status describes the operational state of a facility.
type Status string

// Known facility statuses.
const (
	StatusOperating    Status = "operating"
	StatusConstruction Status = "construction"
	StatusSuspended    Status = "suspended"
	StatusClosed       Status = "closed"
	StatusExploration  Status = "exploration"
	StatusUnknown      Status = "unknown"
)

// Known returns true if the status carries real information (not unknown/empty).
func (s Status) Known() bool {
	return s != "" && s != StatusUnknown
}

// PrecisionTier describes how precisely a location is known.
type PrecisionTier string

// Location precision tiers, from most to least precise.
const (
	PrecisionExact    PrecisionTier = "exact"
	PrecisionSite     PrecisionTier = "site"
	PrecisionDistrict PrecisionTier = "district"
	PrecisionCountry  PrecisionTier = "country"
)

// Location is a geographic point with a precision tier.
type Location struct {
	Lat       float64       `json:"lat"`
	Lng       float64       `json:"lng"`
	Precision PrecisionTier `json:"precision,omitempty"`
}

// Commodity is a metal or mineral produced or targeted by a facility.
type Commodity struct {
	Metal    string `json:"metal"`
	Primary  bool   `json:"primary"`
	Formula  string `json:"formula,omitempty"`
	Category string `json:"category,omitempty"`
}

// Product is a saleable output stream of a facility (e.g. concentrate, cathode).
type Product struct {
	Name   string `json:"name"`
	Stream string `json:"stream,omitempty"`
}

// SourceRef records where a piece of facility data came from.
type SourceRef struct {
	Source    string    `json:"source"`
	Reference string    `json:"reference,omitempty"`
	Date      time.Time `json:"date,omitempty"`
}

// VerificationStatus is the tier of verification a record has received.
type VerificationStatus string

// Verification tiers, from most to least trusted.
const (
	VerifHuman      VerificationStatus = "human-verified"
	VerifLLM        VerificationStatus = "llm-verified"
	VerifCSV        VerificationStatus = "csv-imported"
	VerifUnverified VerificationStatus = "unverified"
)

// Verification holds the verification state of a facility record.
type Verification struct {
	Status      VerificationStatus `json:"status"`
	Confidence  float64            `json:"confidence"`
	LastChecked time.Time          `json:"last_checked,omitempty"`
	Notes       string             `json:"notes,omitempty"`
}

// FacilityRecord is the golden record for a physical industrial site.
// FacilityID is globally unique and immutable once assigned, following the
// pattern {country}-{slug}-{suffix}.
type FacilityRecord struct {
	FacilityID   string           `json:"facility_id"`
	Name         string           `json:"name"`
	Aliases      []string         `json:"aliases,omitempty"`
	CountryCode  string           `json:"country_code"`
	Location     *Location        `json:"location,omitempty"`
	Types        []string         `json:"types"`
	Commodities  []Commodity      `json:"commodities,omitempty"`
	Products     []Product        `json:"products,omitempty"`
	Status       Status           `json:"status"`
	Mentions     []CompanyMention `json:"mentions,omitempty"`
	Sources      []SourceRef      `json:"sources,omitempty"`
	Verification Verification     `json:"verification"`

	// MergeGain is the completeness score this record gained by absorbing
	// merged duplicates. Survivor selection scores a record net of this gain,
	// so the chosen survivor does not depend on the order duplicates arrive.
	MergeGain float64 `json:"merge_gain,omitempty"`
}

// HasCoordinates reports whether the record carries a usable lat/lng.
func (f *FacilityRecord) HasCoordinates() bool {
	return f.Location != nil
}

// HasAlias reports whether the record already carries the given alias,
// case-insensitively.
func (f *FacilityRecord) HasAlias(name string) bool {
	for _, a := range f.Aliases {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record. Engines operate on clones so that
// planning against a snapshot never mutates store-owned state.
func (f *FacilityRecord) Clone() *FacilityRecord {
	c := *f
	if f.Location != nil {
		loc := *f.Location
		c.Location = &loc
	}
	c.Aliases = append([]string(nil), f.Aliases...)
	c.Types = append([]string(nil), f.Types...)
	c.Commodities = append([]Commodity(nil), f.Commodities...)
	c.Products = append([]Product(nil), f.Products...)
	c.Mentions = append([]CompanyMention(nil), f.Mentions...)
	c.Sources = append([]SourceRef(nil), f.Sources...)
	return &c
}
