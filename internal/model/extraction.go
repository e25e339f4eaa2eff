package model

import "time"

// Participant is a person mentioned in the notes.
type Participant struct {
	Name    string `json:"name"`
	Role    string `json:"role,omitempty"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
}

// CompanyMention is a company referenced in the notes.
type CompanyMention struct {
	Name     string `json:"name"`
	Domain   string `json:"domain,omitempty"`
	Industry string `json:"industry,omitempty"`
}

// OpportunityMention is a deal discussed in the notes, existing or new.
type OpportunityMention struct {
	Title   string  `json:"title"`
	Stage   string  `json:"stage,omitempty"`
	Amount  float64 `json:"amount,omitempty"`
	Company string  `json:"company,omitempty"`
}

// FollowUp is a commitment extracted from the notes.
type FollowUp struct {
	Kind   string `json:"kind"`
	With   string `json:"with,omitempty"`
	Timing string `json:"timing,omitempty"`
	Topic  string `json:"topic,omitempty"`
}

// ExtractedInfo is the structured fact bundle produced by the extraction
// phase. FailedFields names top-level fields that did not survive schema
// validation; a non-empty list marks the bundle as partial.
type ExtractedInfo struct {
	MeetingDate   *time.Time           `json:"meeting_date,omitempty"`
	Participants  []Participant        `json:"participants"`
	Companies     []CompanyMention     `json:"companies"`
	Opportunities []OpportunityMention `json:"opportunities"`
	FollowUps     []FollowUp           `json:"follow_ups"`
	KeyPoints     []string             `json:"key_points"`
	Sentiment     string               `json:"sentiment,omitempty"`
	FailedFields  []string             `json:"failed_fields,omitempty"`
}

// Partial reports whether any field failed schema validation.
func (e *ExtractedInfo) Partial() bool {
	return len(e.FailedFields) > 0
}

// Mentions flattens the bundle into the mention list in stable order:
// companies, then contacts, then opportunities, each in extraction order.
// Keys are assigned per type and index so they survive replay.
func (e *ExtractedInfo) Mentions() []MentionCandidates {
	if e == nil {
		return nil
	}
	out := make([]MentionCandidates, 0,
		len(e.Companies)+len(e.Participants)+len(e.Opportunities))

	for i, c := range e.Companies {
		out = append(out, MentionCandidates{
			Key: MentionKey(EntityCompany, i),
			Mention: Mention{
				Type: EntityCompany,
				Text: c.Name,
			},
		})
	}
	for i, p := range e.Participants {
		out = append(out, MentionCandidates{
			Key: MentionKey(EntityContact, i),
			Mention: Mention{
				Type: EntityContact,
				Text: p.Name,
				Hints: MentionHints{
					Role:    p.Role,
					Company: p.Company,
					Email:   p.Email,
				},
			},
		})
	}
	for i, o := range e.Opportunities {
		out = append(out, MentionCandidates{
			Key: MentionKey(EntityOpportunity, i),
			Mention: Mention{
				Type: EntityOpportunity,
				Text: o.Title,
				Hints: MentionHints{
					Company: o.Company,
					Stage:   o.Stage,
				},
			},
		})
	}
	return out
}
