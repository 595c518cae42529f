// Package validate checks facility records against the record schema before
// they are compared or written.
package validate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/similarity"
)

// facilityIDRe enforces the {country}-{slug}-{suffix} identifier pattern.
var facilityIDRe = regexp.MustCompile(`^[a-z]{2,3}-[a-z0-9][a-z0-9-]*-[a-z0-9]+$`)

// Violation is a single schema violation found in a record.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

// Record validates a facility record and returns all violations found. An
// empty result means the record is schema-valid.
func Record(rec *model.FacilityRecord) []Violation {
	var out []Violation

	add := func(field, format string, args ...any) {
		out = append(out, Violation{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if rec.FacilityID == "" {
		add("facility_id", "required")
	} else if !facilityIDRe.MatchString(rec.FacilityID) {
		add("facility_id", "must match {country}-{slug}-{suffix}, got %q", rec.FacilityID)
	}

	if strings.TrimSpace(rec.Name) == "" {
		add("name", "required")
	}

	if len(rec.CountryCode) < 2 || len(rec.CountryCode) > 3 ||
		rec.CountryCode != strings.ToUpper(rec.CountryCode) {
		add("country_code", "must be a 2-3 letter uppercase code, got %q", rec.CountryCode)
	}

	if rec.FacilityID != "" && rec.CountryCode != "" &&
		!strings.HasPrefix(rec.FacilityID, strings.ToLower(rec.CountryCode)+"-") {
		add("facility_id", "country prefix does not match country_code %q", rec.CountryCode)
	}

	if len(rec.Types) == 0 {
		add("types", "at least one facility type is required")
	}

	if rec.Location != nil {
		if rec.Location.Lat < -90 || rec.Location.Lat > 90 {
			add("location.lat", "out of range: %v", rec.Location.Lat)
		}
		if rec.Location.Lng < -180 || rec.Location.Lng > 180 {
			add("location.lng", "out of range: %v", rec.Location.Lng)
		}
	}

	seen := map[string]bool{}
	for _, c := range rec.Commodities {
		key := similarity.NormalizeName(c.Metal)
		if key == "" {
			add("commodities", "commodity with empty metal name")
			continue
		}
		if seen[key] {
			add("commodities", "duplicate commodity key %q", key)
		}
		seen[key] = true
	}

	if rec.Verification.Confidence < 0 || rec.Verification.Confidence > 1 {
		add("verification.confidence", "must be in [0,1], got %v", rec.Verification.Confidence)
	}

	for i, m := range rec.Mentions {
		if strings.TrimSpace(m.RawName) == "" {
			add("mentions", "mention %d has empty raw_name", i)
		}
		if m.Confidence < 0 || m.Confidence > 1 {
			add("mentions", "mention %d confidence out of [0,1]: %v", i, m.Confidence)
		}
	}

	return out
}
