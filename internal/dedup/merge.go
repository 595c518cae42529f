package dedup

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oregrid/facility-cli/internal/model"
	"github.com/oregrid/facility-cli/internal/similarity"
)

// DuplicateGroup is the ephemeral clustering result for one physical site:
// the records believed to describe it, the chosen survivor, and the merged
// record to write. Groups are never persisted; only their side effects are.
type DuplicateGroup struct {
	Members  []*model.FacilityRecord
	Survivor *model.FacilityRecord // merged result, survivor's FacilityID
	LoserIDs []string
	TieBreak bool // survivor chosen by ID order between equal scores
}

// BuildGroup picks the survivor of a member set by selection score and merges
// every loser into it. Ties are broken deterministically by lexical
// FacilityID order. Members must be non-empty; the input records are not
// mutated. Scoring net of prior merge gain makes grouping associative: a
// record that already absorbed duplicates competes on its own merit, so the
// survivor of {A,B,C} is the same whether C arrives with the group or after
// A and B were merged in an earlier run.
func BuildGroup(members []*model.FacilityRecord) *DuplicateGroup {
	ordered := append([]*model.FacilityRecord(nil), members...)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].FacilityID < ordered[j].FacilityID
	})

	best := ordered[0]
	bestScore := SelectionScore(best)
	tie := false
	for _, rec := range ordered[1:] {
		s := SelectionScore(rec)
		switch {
		case s > bestScore:
			best, bestScore, tie = rec, s, false
		case s == bestScore:
			// best stays: it sorts earlier by FacilityID.
			tie = true
		}
	}

	survivor := best.Clone()
	var loserIDs []string
	for _, rec := range ordered {
		if rec.FacilityID == survivor.FacilityID {
			continue
		}
		mergeInto(survivor, rec)
		loserIDs = append(loserIDs, rec.FacilityID)
	}

	appendMergeNote(survivor, loserIDs)
	survivor.MergeGain = Completeness(survivor) - bestScore

	return &DuplicateGroup{
		Members:  ordered,
		Survivor: survivor,
		LoserIDs: loserIDs,
		TieBreak: tie,
	}
}

// mergeInto folds one loser into the survivor: aliases are unioned (loser's
// name included), sources concatenated, commodities merged by normalized
// metal key, mentions deduplicated keeping the highest confidence per company
// name, and empty survivor fields filled from the loser.
func mergeInto(survivor, loser *model.FacilityRecord) {
	addAlias := func(name string) {
		if name == "" || strings.EqualFold(name, survivor.Name) || survivor.HasAlias(name) {
			return
		}
		survivor.Aliases = append(survivor.Aliases, name)
	}
	addAlias(loser.Name)
	for _, a := range loser.Aliases {
		addAlias(a)
	}

	survivor.Sources = append(survivor.Sources, loser.Sources...)
	survivor.Commodities = mergeCommodities(survivor.Commodities, loser.Commodities)
	survivor.Mentions = mergeMentions(survivor.Mentions, loser.Mentions)
	survivor.Products = mergeProducts(survivor.Products, loser.Products)

	for _, t := range loser.Types {
		if !containsFold(survivor.Types, t) {
			survivor.Types = append(survivor.Types, t)
		}
	}

	if survivor.Location == nil && loser.Location != nil {
		loc := *loser.Location
		survivor.Location = &loc
	}
	if !survivor.Status.Known() && loser.Status.Known() {
		survivor.Status = loser.Status
	}
}

// mergeCommodities merges by normalized metal key, preferring the variant
// that carries a chemical formula or category over a bare metal name.
func mergeCommodities(into, from []model.Commodity) []model.Commodity {
	byKey := map[string]int{}
	for i, c := range into {
		byKey[similarity.NormalizeName(c.Metal)] = i
	}

	for _, c := range from {
		key := similarity.NormalizeName(c.Metal)
		if key == "" {
			continue
		}
		i, ok := byKey[key]
		if !ok {
			byKey[key] = len(into)
			into = append(into, c)
			continue
		}
		existing := into[i]
		if richer(c, existing) {
			c.Primary = c.Primary || existing.Primary
			into[i] = c
		} else {
			into[i].Primary = existing.Primary || c.Primary
		}
	}
	return into
}

// richer reports whether a carries strictly more descriptive detail than b.
func richer(a, b model.Commodity) bool {
	detail := func(c model.Commodity) int {
		n := 0
		if c.Formula != "" {
			n++
		}
		if c.Category != "" {
			n++
		}
		return n
	}
	return detail(a) > detail(b)
}

// mergeMentions keeps the highest-confidence mention per distinct company
// name, case-insensitively.
func mergeMentions(into, from []model.CompanyMention) []model.CompanyMention {
	byName := map[string]int{}
	for i, m := range into {
		byName[strings.ToLower(m.RawName)] = i
	}
	for _, m := range from {
		key := strings.ToLower(m.RawName)
		if i, ok := byName[key]; ok {
			if m.Confidence > into[i].Confidence {
				into[i] = m
			}
			continue
		}
		byName[key] = len(into)
		into = append(into, m)
	}
	return into
}

func mergeProducts(into, from []model.Product) []model.Product {
	for _, p := range from {
		dup := false
		for _, existing := range into {
			if strings.EqualFold(existing.Name, p.Name) {
				dup = true
				break
			}
		}
		if !dup {
			into = append(into, p)
		}
	}
	return into
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// appendMergeNote records the merged facility IDs in the survivor's
// verification notes, preserving the audit trail.
func appendMergeNote(survivor *model.FacilityRecord, loserIDs []string) {
	if len(loserIDs) == 0 {
		return
	}
	note := fmt.Sprintf("merged duplicates: %s", strings.Join(loserIDs, ", "))
	if survivor.Verification.Notes == "" {
		survivor.Verification.Notes = note
	} else {
		survivor.Verification.Notes += "; " + note
	}
}
