package crm

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/meeting-agent/internal/model"
)

// Fixture is a YAML-loadable CRM snapshot used to seed the memory and sqlite
// stores. Record types are stamped from the section they appear in, so
// fixture files may omit the type field.
type Fixture struct {
	Companies     []model.EntityRecord  `yaml:"companies"`
	Contacts      []model.EntityRecord  `yaml:"contacts"`
	Opportunities []model.EntityRecord  `yaml:"opportunities"`
	Events        []model.CalendarEvent `yaml:"calendar_events"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "crm: read fixture %s", path)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "crm: parse fixture %s", path)
	}
	f.stampTypes()
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *Fixture) stampTypes() {
	for i := range f.Companies {
		f.Companies[i].Type = model.EntityCompany
	}
	for i := range f.Contacts {
		f.Contacts[i].Type = model.EntityContact
	}
	for i := range f.Opportunities {
		f.Opportunities[i].Type = model.EntityOpportunity
	}
}

// Validate checks that every record has an ID and a name, and that IDs are
// unique within the fixture.
func (f *Fixture) Validate() error {
	seen := make(map[string]bool)
	for _, r := range f.Records() {
		if r.ID == "" {
			return eris.Errorf("crm: fixture record %q has no id", r.Name)
		}
		if r.Name == "" {
			return eris.Errorf("crm: fixture record %s has no name", r.ID)
		}
		if seen[r.ID] {
			return eris.Errorf("crm: duplicate fixture id %s", r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}

// Records flattens the fixture into a single record list.
func (f *Fixture) Records() []model.EntityRecord {
	out := make([]model.EntityRecord, 0,
		len(f.Companies)+len(f.Contacts)+len(f.Opportunities))
	out = append(out, f.Companies...)
	out = append(out, f.Contacts...)
	out = append(out, f.Opportunities...)
	return out
}

// DefaultFixture returns the built-in demo snapshot used when no fixture file
// is configured.
func DefaultFixture() *Fixture {
	f := &Fixture{
		Companies: []model.EntityRecord{
			{ID: "comp_123", Name: "Nextera", Attributes: map[string]string{
				model.AttrDomain: "nextera.com", model.AttrIndustry: "Technology",
			}},
			{ID: "comp_124", Name: "Occurent Systems", Attributes: map[string]string{
				model.AttrDomain: "occurent.com", model.AttrIndustry: "Software",
			}},
			{ID: "comp_125", Name: "TechCorp International", Aliases: []string{"TechCorp"},
				Attributes: map[string]string{
					model.AttrDomain: "techcorp.com", model.AttrIndustry: "Technology",
				}},
		},
		Contacts: []model.EntityRecord{
			{ID: "cont_456", Name: "Patrick Dubois", Attributes: map[string]string{
				model.AttrEmail: "patrick.dubois@nextera.com", model.AttrRole: "Sales Director",
				model.AttrCompanyID: "comp_123", model.AttrCompanyName: "Nextera",
			}},
			{ID: "cont_789", Name: "Pierre Lefevre", Attributes: map[string]string{
				model.AttrEmail: "pierre.lefevre@nextera.com", model.AttrRole: "IT Director",
				model.AttrCompanyID: "comp_123", model.AttrCompanyName: "Nextera",
			}},
			{ID: "cont_790", Name: "Pierre Dubois", Attributes: map[string]string{
				model.AttrEmail: "pierre.dubois@nextera.com", model.AttrRole: "Technical Lead",
				model.AttrCompanyID: "comp_123", model.AttrCompanyName: "Nextera",
			}},
			{ID: "cont_791", Name: "Marie Laurent", Attributes: map[string]string{
				model.AttrEmail: "marie.laurent@techcorp.com", model.AttrRole: "CEO",
				model.AttrCompanyID: "comp_125", model.AttrCompanyName: "TechCorp International",
			}},
		},
		Opportunities: []model.EntityRecord{
			{ID: "opp_321", Name: "Nextera - CRM Implementation 2026", Attributes: map[string]string{
				model.AttrCompanyID: "comp_123", model.AttrCompanyName: "Nextera",
				model.AttrStage: "proposal", model.AttrAmount: "150000",
			}},
			{ID: "opp_322", Name: "TechCorp - Digital Transformation", Attributes: map[string]string{
				model.AttrCompanyID: "comp_125", model.AttrCompanyName: "TechCorp International",
				model.AttrStage: "negotiate", model.AttrAmount: "500000",
			}},
		},
		Events: []model.CalendarEvent{
			{
				ID:            "evt_001",
				Title:         "Nextera - Proposal Discussion",
				Date:          time.Date(2026, 1, 15, 14, 0, 0, 0, time.UTC),
				Participants:  []string{"cont_456"},
				CompanyID:     "comp_123",
				OpportunityID: "opp_321",
				Notes:         "Discussed pricing and timeline",
			},
			{
				ID:            "evt_002",
				Title:         "TechCorp Quarterly Review",
				Date:          time.Date(2026, 1, 14, 10, 0, 0, 0, time.UTC),
				Participants:  []string{"cont_791"},
				CompanyID:     "comp_125",
				OpportunityID: "opp_322",
				Notes:         "Progress update on digital transformation",
			},
		},
	}
	f.stampTypes()
	return f
}
