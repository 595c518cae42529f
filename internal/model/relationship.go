package model

import (
	"fmt"
	"time"
)

// Gate is the quality tier assigned to a resolved mention. It is a closed
// set: use the constants below and check Valid() at boundaries.
type Gate string

// Gate tiers.
const (
	GateAutoAccept Gate = "auto_accept"
	GateReview     Gate = "review"
	GatePending    Gate = "pending"
)

// Valid reports whether g is one of the known gate tiers.
func (g Gate) Valid() bool {
	switch g {
	case GateAutoAccept, GateReview, GatePending:
		return true
	}
	return false
}

// Persistable reports whether relationships at this gate are written to the
// relationship store. Pending mentions are logged for later research only.
func (g Gate) Persistable() bool {
	return g == GateAutoAccept || g == GateReview
}

// GateAdjustment is one boost or penalty applied on top of base confidence.
type GateAdjustment struct {
	Reason string  `json:"reason"`
	Delta  float64 `json:"delta"`
}

// Relationship is a resolved, gated link between a facility and a canonical
// company. The natural key is (FacilityID, CompanyID, Role); re-resolution
// upserts under that key and never duplicates rows.
type Relationship struct {
	RelationshipID string           `json:"relationship_id"`
	FacilityID     string           `json:"facility_id"`
	CompanyID      string           `json:"company_id"`
	Role           MentionRole      `json:"role"`
	Confidence     float64          `json:"confidence"`
	BaseConfidence float64          `json:"base_confidence"`
	Gate           Gate             `json:"gate"`
	MatchMethod    string           `json:"match_method"`
	Evidence       string           `json:"evidence,omitempty"`
	GatesApplied   []GateAdjustment `json:"gates_applied,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// NaturalKey returns the upsert key for the relationship.
func (r *Relationship) NaturalKey() string {
	return fmt.Sprintf("%s|%s|%s", r.FacilityID, r.CompanyID, r.Role)
}
