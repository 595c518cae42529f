package dedup

import "github.com/oregrid/facility-cli/internal/model"

// Verification tier bonuses for survivor selection.
const (
	bonusHumanVerified = 20
	bonusLLMVerified   = 10
	bonusCSVImported   = 5
)

// Completeness returns the additive completeness score used to pick the
// survivor of a duplicate group. Pure function of the record snapshot.
func Completeness(rec *model.FacilityRecord) float64 {
	var score float64

	if rec.HasCoordinates() {
		score += 10
	}
	score += 2 * float64(len(rec.Commodities))
	score += 3 * float64(len(rec.Mentions))
	score += 2 * float64(len(rec.Products))
	score += float64(len(rec.Aliases))
	if rec.Status.Known() {
		score += 5
	}
	score += rec.Verification.Confidence * 10

	switch rec.Verification.Status {
	case model.VerifHuman:
		score += bonusHumanVerified
	case model.VerifLLM:
		score += bonusLLMVerified
	case model.VerifCSV:
		score += bonusCSVImported
	}

	return score
}

// SelectionScore is the completeness a record earns on its own merit: the
// full score minus whatever it gained from earlier merges. Comparing
// SelectionScore keeps survivor choice independent of merge order.
func SelectionScore(rec *model.FacilityRecord) float64 {
	return Completeness(rec) - rec.MergeGain
}
