// Package block partitions the record universe into small comparison groups
// so that neither engine performs all-pairs comparison across the full
// corpus. Facilities are blocked by (country, coarse 0.1° cell) when located,
// else by (country, first normalized name token); companies are blocked by
// (country, first normalized name token).
//
// A located facility is probed against its own cell and the eight neighboring
// cells, so a true match is never missed unless the two records disagree by
// more than one coarse cell (~11 km). Token blocks can miss pairs whose names
// share no leading token and no alias token; that false-negative class is
// accepted and bounded by the alias probing below.
package block

import (
	"fmt"
	"math"
	"sort"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/similarity"
)

// cellDegrees is the coarse location cell size used for geographic blocking.
const cellDegrees = 0.1

// Key identifies one comparison block.
type Key string

// cellKey builds a geographic block key from a coarse cell.
func cellKey(country string, latCell, lngCell int) Key {
	return Key(fmt.Sprintf("%s|c|%d:%d", country, latCell, lngCell))
}

// tokenKey builds a name-token block key.
func tokenKey(country, token string) Key {
	return Key(fmt.Sprintf("%s|t|%s", country, token))
}

func cellOf(v float64) int {
	return int(math.Floor(v / cellDegrees))
}

// FacilityIndex shortlists facility records for pairwise comparison.
type FacilityIndex struct {
	buckets map[Key][]*model.FacilityRecord
}

// NewFacilityIndex builds an index over a snapshot of facility records.
// Located records are indexed by coarse cell; all records are additionally
// indexed by first name token and first alias tokens so that coordinate-free
// records remain findable.
func NewFacilityIndex(records []*model.FacilityRecord) *FacilityIndex {
	idx := &FacilityIndex{buckets: make(map[Key][]*model.FacilityRecord)}
	for _, rec := range records {
		for _, k := range facilityKeys(rec) {
			idx.buckets[k] = append(idx.buckets[k], rec)
		}
	}
	for _, bucket := range idx.buckets {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].FacilityID < bucket[j].FacilityID
		})
	}
	return idx
}

// facilityKeys returns every block key a record is stored under.
func facilityKeys(rec *model.FacilityRecord) []Key {
	var keys []Key
	if rec.HasCoordinates() {
		keys = append(keys, cellKey(rec.CountryCode, cellOf(rec.Location.Lat), cellOf(rec.Location.Lng)))
	}
	seen := map[Key]bool{}
	addToken := func(name string) {
		if tok := similarity.FirstToken(name); tok != "" {
			k := tokenKey(rec.CountryCode, tok)
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	addToken(rec.Name)
	for _, a := range rec.Aliases {
		addToken(a)
	}
	return keys
}

// Candidates returns the deduplicated, FacilityID-ordered shortlist of
// records that could match rec: everything in its cell plus the eight
// neighboring cells, plus its name/alias token blocks. rec itself is
// excluded.
func (idx *FacilityIndex) Candidates(rec *model.FacilityRecord) []*model.FacilityRecord {
	seen := map[string]bool{rec.FacilityID: true}
	var out []*model.FacilityRecord

	collect := func(k Key) {
		for _, cand := range idx.buckets[k] {
			if !seen[cand.FacilityID] {
				seen[cand.FacilityID] = true
				out = append(out, cand)
			}
		}
	}

	if rec.HasCoordinates() {
		latCell := cellOf(rec.Location.Lat)
		lngCell := cellOf(rec.Location.Lng)
		for dLat := -1; dLat <= 1; dLat++ {
			for dLng := -1; dLng <= 1; dLng++ {
				collect(cellKey(rec.CountryCode, latCell+dLat, lngCell+dLng))
			}
		}
	}
	for _, k := range facilityKeys(rec) {
		collect(k)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].FacilityID < out[j].FacilityID })
	return out
}

// CompanyIndex shortlists canonical companies for a mention.
type CompanyIndex struct {
	buckets map[Key][]model.CanonicalCompany
	all     []model.CanonicalCompany
}

// NewCompanyIndex builds an index over a registry snapshot. Companies are
// indexed under the first token of their registered name and of each alias,
// per country and globally (country "" bucket) so mentions without a country
// hint still shortlist.
func NewCompanyIndex(companies []model.CanonicalCompany) *CompanyIndex {
	idx := &CompanyIndex{buckets: make(map[Key][]model.CanonicalCompany)}
	for _, c := range companies {
		seen := map[Key]bool{}
		add := func(country, name string) {
			tok := similarity.FirstToken(name)
			if tok == "" {
				return
			}
			k := tokenKey(country, tok)
			if !seen[k] {
				seen[k] = true
				idx.buckets[k] = append(idx.buckets[k], c)
			}
		}
		add(c.CountryCode, c.RegisteredName)
		add("", c.RegisteredName)
		for _, a := range c.Aliases {
			add(c.CountryCode, a)
			add("", a)
		}
	}
	for _, bucket := range idx.buckets {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].CompanyID < bucket[j].CompanyID
		})
	}
	idx.all = append(idx.all, companies...)
	sort.Slice(idx.all, func(i, j int) bool { return idx.all[i].CompanyID < idx.all[j].CompanyID })
	return idx
}

// Candidates returns the CompanyID-ordered shortlist for a raw name and an
// optional country hint. The country-specific block is probed first, then the
// global block, so registry candidates outside the hinted country are still
// reachable (the country mismatch is handled by scoring, not blocking).
func (idx *CompanyIndex) Candidates(rawName, countryHint string) []model.CanonicalCompany {
	tok := similarity.FirstToken(rawName)
	if tok == "" {
		return nil
	}

	seen := map[string]bool{}
	var out []model.CanonicalCompany
	collect := func(k Key) {
		for _, c := range idx.buckets[k] {
			if !seen[c.CompanyID] {
				seen[c.CompanyID] = true
				out = append(out, c)
			}
		}
	}

	if countryHint != "" {
		collect(tokenKey(countryHint, tok))
	}
	collect(tokenKey("", tok))

	sort.Slice(out, func(i, j int) bool { return out[i].CompanyID < out[j].CompanyID })
	return out
}

// All returns every indexed company, ordered by CompanyID.
func (idx *CompanyIndex) All() []model.CanonicalCompany {
	return idx.all
}
