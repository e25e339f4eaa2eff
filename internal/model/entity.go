package model

import "time"

// EntityType identifies the kind of CRM record a mention refers to.
// The set is closed: the CRM exposes exactly these three record kinds.
type EntityType string

const (
	EntityCompany     EntityType = "company"
	EntityContact     EntityType = "contact"
	EntityOpportunity EntityType = "opportunity"
)

// EntityTypes lists all entity types in canonical resolution order.
// Companies resolve first so contact and opportunity scoring can use
// resolved companies as context.
var EntityTypes = []EntityType{EntityCompany, EntityContact, EntityOpportunity}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCompany, EntityContact, EntityOpportunity:
		return true
	}
	return false
}

// Well-known attribute keys on EntityRecord.Attributes.
const (
	AttrCompanyID   = "company_id"
	AttrCompanyName = "company_name"
	AttrRole        = "role"
	AttrEmail       = "email"
	AttrDomain      = "domain"
	AttrIndustry    = "industry"
	AttrStage       = "stage"
	AttrAmount      = "amount"
)

// EntityRecord is a canonical CRM record. It is owned by the CRM store and
// read-only to the pipeline.
type EntityRecord struct {
	ID         string            `json:"id" yaml:"id"`
	Type       EntityType        `json:"type" yaml:"type"`
	Name       string            `json:"name" yaml:"name"`
	Aliases    []string          `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Attr returns the named attribute or "" when absent.
func (r EntityRecord) Attr(key string) string {
	if r.Attributes == nil {
		return ""
	}
	return r.Attributes[key]
}

// CalendarEvent is a calendar entry with CRM linkage, supplied by the
// calendar collaborator during context augmentation.
type CalendarEvent struct {
	ID            string    `json:"id" yaml:"id"`
	Title         string    `json:"title" yaml:"title"`
	Date          time.Time `json:"date" yaml:"date"`
	Participants  []string  `json:"participants,omitempty" yaml:"participants,omitempty"`
	CompanyID     string    `json:"company_id,omitempty" yaml:"company_id,omitempty"`
	OpportunityID string    `json:"opportunity_id,omitempty" yaml:"opportunity_id,omitempty"`
	Notes         string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}
