package registry

import (
	"context"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/oregrid/facility-cli/internal/block"
	"github.com/oregrid/facility-cli/internal/model"
)

// Snapshot is an offline registry loaded from a YAML companies file. Queries
// are answered from a blocking index, so lookups stay cheap for large
// snapshots and results are deterministic.
type Snapshot struct {
	index *block.CompanyIndex
}

// snapshotFile is the on-disk shape of a registry snapshot.
type snapshotFile struct {
	Companies []snapshotCompany `yaml:"companies"`
}

type snapshotCompany struct {
	CompanyID      string            `yaml:"company_id"`
	RegisteredName string            `yaml:"registered_name"`
	CountryCode    string            `yaml:"country_code"`
	Identifiers    map[string]string `yaml:"identifiers,omitempty"`
	Aliases        []string          `yaml:"aliases,omitempty"`
	ParentName     string            `yaml:"parent_name,omitempty"`
}

// LoadSnapshot reads a YAML registry snapshot from path.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "registry: read snapshot %s", path)
	}

	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "registry: decode snapshot %s", path)
	}

	companies := make([]model.CanonicalCompany, 0, len(file.Companies))
	for _, c := range file.Companies {
		if c.CompanyID == "" || c.RegisteredName == "" {
			return nil, eris.Errorf("registry: snapshot entry missing company_id or registered_name: %+v", c)
		}
		companies = append(companies, toModel(c))
	}

	return NewSnapshot(companies), nil
}

// NewSnapshot builds an in-memory registry over a company list.
func NewSnapshot(companies []model.CanonicalCompany) *Snapshot {
	return &Snapshot{index: block.NewCompanyIndex(companies)}
}

// Query shortlists candidates by blocked name token and country hint.
func (s *Snapshot) Query(_ context.Context, name, countryHint string) ([]model.CanonicalCompany, error) {
	return s.index.Candidates(name, countryHint), nil
}

// Companies returns every company in the snapshot.
func (s *Snapshot) Companies() []model.CanonicalCompany {
	return s.index.All()
}

func toModel(c snapshotCompany) model.CanonicalCompany {
	out := model.CanonicalCompany{
		CompanyID:      c.CompanyID,
		RegisteredName: c.RegisteredName,
		CountryCode:    c.CountryCode,
		Aliases:        c.Aliases,
		ParentName:     c.ParentName,
	}
	for system, value := range c.Identifiers {
		out.Identifiers = append(out.Identifiers, model.RegistryIdentifier{System: system, Value: value})
	}
	sort.Slice(out.Identifiers, func(i, j int) bool {
		return out.Identifiers[i].System < out.Identifiers[j].System
	})
	return out
}
