// Package ingest turns tabular exports (CSV, XLSX) into facility records.
// Malformed rows are skipped and reported, never fatal.
package ingest

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/resilience"
	"github.com/oregrid/facility-cli/internal/similarity"
	"github.com/oregrid/facility-cli/internal/validate"
)

// SkippedRow reports one input row that could not be imported.
type SkippedRow struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// Result summarizes an import parse.
type Result struct {
	Records []*model.FacilityRecord `json:"-"`
	Skipped []SkippedRow            `json:"skipped,omitempty"`
}

// Recognized header names, lowercase.
const (
	colName        = "name"
	colCountry     = "country"
	colLat         = "lat"
	colLng         = "lng"
	colTypes       = "types"
	colCommodities = "commodities"
	colStatus      = "status"
	colOperator    = "operator"
	colOwner       = "owner"
	colSource      = "source"
	colAliases     = "aliases"
)

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// FacilityID derives the stable {country}-{slug}-{suffix} identifier for an
// imported facility. The suffix is a short hash of the normalized name so the
// same row always produces the same ID and re-imports are idempotent.
func FacilityID(country, name string) string {
	norm := similarity.NormalizeName(name)
	slug := strings.Trim(slugCleanRe.ReplaceAllString(strings.ToLower(norm), "-"), "-")
	if slug == "" {
		slug = "unnamed"
	}
	if len(slug) > 40 {
		slug = strings.Trim(slug[:40], "-")
	}

	h := fnv.New32a()
	h.Write([]byte(norm))
	return fmt.Sprintf("%s-%s-%06x", strings.ToLower(country), slug, h.Sum32()&0xffffff)
}

// rowsToRecords converts header-mapped rows into validated facility records.
// defaultCountry applies when a row has no country column. firstLine is the
// 1-based line number of the first data row, for skip reporting.
func rowsToRecords(header []string, rows [][]string, defaultCountry, sourceName string, firstLine int) *Result {
	log := zap.L().With(zap.String("component", "ingest"))

	colIdx := map[string]int{}
	for i, h := range header {
		colIdx[strings.ToLower(strings.TrimSpace(h))] = i
	}

	field := func(row []string, col string) string {
		i, ok := colIdx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	res := &Result{}
	now := time.Now().UTC()

	for n, row := range rows {
		line := firstLine + n

		skip := func(format string, args ...any) {
			reason := fmt.Sprintf(format, args...)
			log.Warn("ingest: skipping row", zap.Int("line", line), zap.String("reason", reason))
			res.Skipped = append(res.Skipped, SkippedRow{Line: line, Reason: reason})
		}

		name := field(row, colName)
		if name == "" {
			skip("missing name")
			continue
		}

		country := strings.ToUpper(field(row, colCountry))
		if country == "" {
			country = strings.ToUpper(defaultCountry)
		}
		if country == "" {
			skip("missing country")
			continue
		}

		rec := &model.FacilityRecord{
			FacilityID:  FacilityID(country, name),
			Name:        name,
			CountryCode: country,
			Status:      parseStatus(field(row, colStatus)),
			Verification: model.Verification{
				Status:      model.VerifCSV,
				Confidence:  0.5,
				LastChecked: now,
			},
		}

		if latS, lngS := field(row, colLat), field(row, colLng); latS != "" && lngS != "" {
			lat, errLat := strconv.ParseFloat(latS, 64)
			lng, errLng := strconv.ParseFloat(lngS, 64)
			if errLat != nil || errLng != nil {
				skip("bad coordinates %q,%q", latS, lngS)
				continue
			}
			rec.Location = &model.Location{Lat: lat, Lng: lng, Precision: model.PrecisionSite}
		}

		rec.Types = splitList(field(row, colTypes))
		if len(rec.Types) == 0 {
			rec.Types = []string{"facility"}
		}
		rec.Aliases = splitList(field(row, colAliases))
		rec.Commodities = parseCommodities(field(row, colCommodities))

		src := field(row, colSource)
		if src == "" {
			src = sourceName
		}
		rec.Sources = []model.SourceRef{{Source: src, Reference: fmt.Sprintf("line %d", line), Date: now}}

		addMention(rec, field(row, colOperator), model.RoleOperator, src, now)
		addMention(rec, field(row, colOwner), model.RoleOwner, src, now)

		if violations := validate.Record(rec); len(violations) > 0 {
			skip("invalid record: %s", violations[0])
			continue
		}
		res.Records = append(res.Records, rec)
	}

	return res
}

func addMention(rec *model.FacilityRecord, rawName string, role model.MentionRole, source string, now time.Time) {
	if rawName == "" {
		return
	}
	rec.Mentions = append(rec.Mentions, model.CompanyMention{
		RawName:    rawName,
		RoleGuess:  role,
		SourceRef:  source,
		Confidence: 0.5,
		FirstSeen:  now,
	})
}

// parseCommodities reads "copper:primary;molybdenum" style lists.
func parseCommodities(s string) []model.Commodity {
	var out []model.Commodity
	seen := map[string]bool{}
	for _, part := range splitList(s) {
		metal, qualifier, _ := strings.Cut(part, ":")
		metal = strings.TrimSpace(metal)
		key := similarity.NormalizeName(metal)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, model.Commodity{
			Metal:   metal,
			Primary: strings.EqualFold(strings.TrimSpace(qualifier), "primary"),
		})
	}
	return out
}

func parseStatus(s string) model.Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(model.StatusOperating):
		return model.StatusOperating
	case string(model.StatusConstruction):
		return model.StatusConstruction
	case string(model.StatusSuspended):
		return model.StatusSuspended
	case string(model.StatusClosed):
		return model.StatusClosed
	case string(model.StatusExploration):
		return model.StatusExploration
	default:
		return model.StatusUnknown
	}
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ";") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// errEmptyFile is returned when an input has no data rows.
var errEmptyFile = eris.Wrap(resilience.ErrInput, "ingest: no data rows")
