package model

// RegistryIdentifier links a canonical company to an external system.
type RegistryIdentifier struct {
	System string `json:"system"`
	Value  string `json:"value"`
}

// Known registry identifier systems.
const (
	SystemLEI        = "lei"
	SystemOpenCorp   = "opencorporates"
	SystemTicker     = "ticker"
	SystemCompanyReg = "company_register"
	SystemPermitID   = "permit_id"
)

// CanonicalCompany is a registry-backed company identity. Read-only to this
// system: the registry owns these records.
type CanonicalCompany struct {
	CompanyID      string               `json:"company_id"`
	RegisteredName string               `json:"registered_name"`
	CountryCode    string               `json:"country_code"`
	Identifiers    []RegistryIdentifier `json:"identifiers,omitempty"`
	Aliases        []string             `json:"aliases,omitempty"`
	ParentName     string               `json:"parent_name,omitempty"`
}

// HasIdentifier reports whether the company carries the given identifier
// value under any system.
func (c *CanonicalCompany) HasIdentifier(value string) bool {
	if value == "" {
		return false
	}
	for _, id := range c.Identifiers {
		if id.Value == value {
			return true
		}
	}
	return false
}
