package model

// ActionKind is the CRM operation an action item proposes.
type ActionKind string

const (
	ActionLogMeeting        ActionKind = "log_meeting"
	ActionCreateCompany     ActionKind = "create_company"
	ActionCreateContact     ActionKind = "create_contact"
	ActionCreateOpportunity ActionKind = "create_opportunity"
	ActionUpdateOpportunity ActionKind = "update_opportunity"
	ActionScheduleMeeting   ActionKind = "schedule_meeting"
	ActionCreateTask        ActionKind = "create_task"
	ActionUnmapped          ActionKind = "unmapped"
)

// ActionStatus describes whether an action item can be applied unattended.
type ActionStatus string

const (
	// ActionReady means every referenced entity resolved to a CRM record.
	ActionReady ActionStatus = "ready"
	// ActionBlocked means at least one referenced entity is pending review
	// or unresolved.
	ActionBlocked ActionStatus = "blocked"
	// ActionUnmappedStatus means the commitment could not be mapped to any
	// CRM operation; it is surfaced rather than dropped.
	ActionUnmappedStatus ActionStatus = "unmapped"
)

// EntityRef links an action item to either a resolved CRM record or a
// pending-mention placeholder. ID is set only from a resolved outcome.
type EntityRef struct {
	Type    EntityType `json:"type"`
	ID      string     `json:"id,omitempty"`
	Mention string     `json:"mention"`
	Pending bool       `json:"pending,omitempty"`
}

// ActionItem is one proposed CRM operation. IDs are assigned after ordering,
// 1..n.
type ActionItem struct {
	ID          int          `json:"id"`
	Kind        ActionKind   `json:"kind"`
	Description string       `json:"description"`
	Refs        []EntityRef  `json:"refs,omitempty"`
	Status      ActionStatus `json:"status"`
}

// Blocked reports whether any referenced entity is still pending.
func (a ActionItem) Blocked() bool {
	for _, ref := range a.Refs {
		if ref.Pending {
			return true
		}
	}
	return false
}
