package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oregrid/facility-cli/internal/model"
)

func validRecord() *model.FacilityRecord {
	return &model.FacilityRecord{
		FacilityID:  "za-two-rivers-a1b2c3",
		Name:        "Two Rivers Platinum Mine",
		CountryCode: "ZA",
		Types:       []string{"mine"},
		Location:    &model.Location{Lat: -24.893, Lng: 30.124},
		Commodities: []model.Commodity{{Metal: "platinum", Primary: true}},
		Mentions:    []model.CompanyMention{{RawName: "African Rainbow Minerals", Confidence: 0.8}},
		Verification: model.Verification{
			Status:     model.VerifCSV,
			Confidence: 0.5,
		},
	}
}

func TestRecordValid(t *testing.T) {
	assert.Empty(t, Record(validRecord()))
}

func TestRecordViolations(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*model.FacilityRecord)
		wantField string
	}{
		{"missing id", func(r *model.FacilityRecord) { r.FacilityID = "" }, "facility_id"},
		{"malformed id", func(r *model.FacilityRecord) { r.FacilityID = "TwoRivers!" }, "facility_id"},
		{"wrong country prefix", func(r *model.FacilityRecord) { r.FacilityID = "cl-two-rivers-a1b2c3" }, "facility_id"},
		{"empty name", func(r *model.FacilityRecord) { r.Name = "  " }, "name"},
		{"lowercase country", func(r *model.FacilityRecord) { r.CountryCode = "za" }, "country_code"},
		{"country too long", func(r *model.FacilityRecord) { r.CountryCode = "SOUTH" }, "country_code"},
		{"no types", func(r *model.FacilityRecord) { r.Types = nil }, "types"},
		{"lat out of range", func(r *model.FacilityRecord) { r.Location.Lat = 91 }, "location.lat"},
		{"lng out of range", func(r *model.FacilityRecord) { r.Location.Lng = -181 }, "location.lng"},
		{
			"duplicate commodity keys",
			func(r *model.FacilityRecord) {
				r.Commodities = append(r.Commodities, model.Commodity{Metal: "PLATINUM"})
			},
			"commodities",
		},
		{
			"empty commodity metal",
			func(r *model.FacilityRecord) {
				r.Commodities = []model.Commodity{{Metal: "  "}}
			},
			"commodities",
		},
		{
			"verification confidence out of range",
			func(r *model.FacilityRecord) { r.Verification.Confidence = 1.2 },
			"verification.confidence",
		},
		{
			"mention with empty name",
			func(r *model.FacilityRecord) { r.Mentions[0].RawName = "" },
			"mentions",
		},
		{
			"mention confidence out of range",
			func(r *model.FacilityRecord) { r.Mentions[0].Confidence = -0.1 },
			"mentions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)
			violations := Record(rec)
			require.NotEmpty(t, violations)
			found := false
			for _, v := range violations {
				if v.Field == tt.wantField {
					found = true
				}
			}
			assert.True(t, found, "expected violation on %s, got %v", tt.wantField, violations)
		})
	}
}

func TestRecordNoCoordinatesIsValid(t *testing.T) {
	rec := validRecord()
	rec.Location = nil
	assert.Empty(t, Record(rec))
}

func TestViolationString(t *testing.T) {
	v := Violation{Field: "name", Message: "required"}
	assert.Equal(t, "name: required", v.String())
}
