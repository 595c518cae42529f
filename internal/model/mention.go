package model

import "time"

// MentionRole is the guessed relationship between the mentioned company and
// the facility.
type MentionRole string

// Mention roles.
const (
	RoleOperator MentionRole = "operator"
	RoleOwner    MentionRole = "owner"
	RoleUnknown  MentionRole = "unknown"
)

// CompanyMention is a raw, unresolved organization reference extracted from
// source material. Mentions are created during ingestion and are immutable
// evidence thereafter; resolution never rewrites them in place.
type CompanyMention struct {
	RawName      string      `json:"raw_name"`
	RoleGuess    MentionRole `json:"role_guess"`
	SourceRef    string      `json:"source_ref,omitempty"`
	Confidence   float64     `json:"confidence"`
	EvidenceText string      `json:"evidence_text,omitempty"`
	FirstSeen    time.Time   `json:"first_seen,omitempty"`

	// RegistryRef is an external registry identifier carried by the source
	// material itself (e.g. an LEI printed in a report). Optional.
	RegistryRef string `json:"registry_ref,omitempty"`
}
