// Package planner maps resolution outcomes and extracted commitments onto a
// proposed CRM action plan. Planning is pure: the same outcomes and facts
// always yield the same plan.
package planner

import (
	"fmt"
	"strings"

	"github.com/sells-group/meeting-agent/internal/model"
)

// Follow-up kinds recognized from extraction.
const (
	FollowUpMeeting    = "meeting"
	FollowUpTask       = "task"
	FollowUpValidation = "validation"
)

// Planner builds action plans.
type Planner struct{}

// New returns a planner.
func New() *Planner {
	return &Planner{}
}

// Plan derives the proposed CRM actions from the extracted facts and the
// disambiguation outcomes. Every follow-up yields exactly one item, mapped or
// unmapped. Items are ordered ready, blocked, unmapped, and IDs are assigned
// 1..n after ordering.
func (p *Planner) Plan(info *model.ExtractedInfo, outcomes []model.ResolutionOutcome) []model.ActionItem {
	var ready, blocked, unmapped []model.ActionItem

	add := func(item model.ActionItem) {
		switch item.Status {
		case model.ActionReady:
			ready = append(ready, item)
		case model.ActionBlocked:
			blocked = append(blocked, item)
		default:
			unmapped = append(unmapped, item)
		}
	}

	add(p.logMeetingItem(outcomes))

	for _, o := range outcomes {
		switch o.Status {
		case model.OutcomeResolved:
			if o.Mention.Type == model.EntityOpportunity {
				add(p.updateOpportunityItem(o))
			}
		case model.OutcomeUnresolved:
			add(p.createItem(o))
		}
	}

	if info != nil {
		for _, fu := range info.FollowUps {
			add(p.followUpItem(fu, outcomes))
		}
	}

	plan := make([]model.ActionItem, 0, len(ready)+len(blocked)+len(unmapped))
	plan = append(plan, ready...)
	plan = append(plan, blocked...)
	plan = append(plan, unmapped...)
	for i := range plan {
		plan[i].ID = i + 1
	}
	return plan
}

// logMeetingItem records the meeting itself against every resolved entity.
func (p *Planner) logMeetingItem(outcomes []model.ResolutionOutcome) model.ActionItem {
	var refs []model.EntityRef
	var names []string
	for _, o := range outcomes {
		if o.Status != model.OutcomeResolved || o.Chosen == nil {
			continue
		}
		refs = append(refs, model.EntityRef{
			Type:    o.Mention.Type,
			ID:      o.Chosen.ID,
			Mention: o.Mention.Text,
		})
		names = append(names, o.Chosen.Name)
	}

	desc := "Log meeting"
	if len(names) > 0 {
		desc = "Log meeting with " + strings.Join(names, ", ")
	}
	return model.ActionItem{
		Kind:        model.ActionLogMeeting,
		Description: desc,
		Refs:        refs,
		Status:      model.ActionReady,
	}
}

func (p *Planner) updateOpportunityItem(o model.ResolutionOutcome) model.ActionItem {
	desc := fmt.Sprintf("Update opportunity %q", o.Chosen.Name)
	if stage := o.Mention.Hints.Stage; stage != "" && stage != o.Chosen.Attr(model.AttrStage) {
		desc = fmt.Sprintf("Update opportunity %q: stage → %s", o.Chosen.Name, stage)
	}
	return model.ActionItem{
		Kind:        model.ActionUpdateOpportunity,
		Description: desc,
		Refs: []model.EntityRef{{
			Type:    model.EntityOpportunity,
			ID:      o.Chosen.ID,
			Mention: o.Mention.Text,
		}},
		Status: model.ActionReady,
	}
}

// createItem proposes a new CRM record for a mention nothing matched. The
// proposal stays blocked until a human confirms the record really is new.
func (p *Planner) createItem(o model.ResolutionOutcome) model.ActionItem {
	var kind model.ActionKind
	switch o.Mention.Type {
	case model.EntityCompany:
		kind = model.ActionCreateCompany
	case model.EntityContact:
		kind = model.ActionCreateContact
	case model.EntityOpportunity:
		kind = model.ActionCreateOpportunity
	}

	desc := fmt.Sprintf("Create %s %q (no CRM match)", o.Mention.Type, o.Mention.Text)
	if c := o.Mention.Hints.Company; c != "" {
		desc += fmt.Sprintf(" at %s", c)
	}
	return model.ActionItem{
		Kind:        kind,
		Description: desc,
		Refs: []model.EntityRef{{
			Type:    o.Mention.Type,
			Mention: o.Mention.Text,
			Pending: true,
		}},
		Status: model.ActionBlocked,
	}
}

// followUpItem maps one extracted commitment. Unknown kinds surface as
// unmapped items rather than disappearing.
func (p *Planner) followUpItem(fu model.FollowUp, outcomes []model.ResolutionOutcome) model.ActionItem {
	var kind model.ActionKind
	switch fu.Kind {
	case FollowUpMeeting:
		kind = model.ActionScheduleMeeting
	case FollowUpTask, FollowUpValidation:
		kind = model.ActionCreateTask
	default:
		return model.ActionItem{
			Kind:        model.ActionUnmapped,
			Description: describeFollowUp(fu),
			Status:      model.ActionUnmappedStatus,
		}
	}

	item := model.ActionItem{
		Kind:        kind,
		Description: describeFollowUp(fu),
		Status:      model.ActionReady,
	}

	if fu.With != "" {
		ref, found := contactRef(fu.With, outcomes)
		if found {
			item.Refs = append(item.Refs, ref)
			if ref.Pending {
				item.Status = model.ActionBlocked
			}
		}
	}
	return item
}

// contactRef links a follow-up counterpart to its contact outcome by mention
// text.
func contactRef(with string, outcomes []model.ResolutionOutcome) (model.EntityRef, bool) {
	for _, o := range outcomes {
		if o.Mention.Type != model.EntityContact {
			continue
		}
		if !strings.EqualFold(strings.TrimSpace(o.Mention.Text), strings.TrimSpace(with)) {
			continue
		}
		ref := model.EntityRef{Type: model.EntityContact, Mention: o.Mention.Text}
		if o.Status == model.OutcomeResolved && o.Chosen != nil {
			ref.ID = o.Chosen.ID
		} else {
			ref.Pending = true
		}
		return ref, true
	}
	return model.EntityRef{}, false
}

func describeFollowUp(fu model.FollowUp) string {
	var b strings.Builder
	switch fu.Kind {
	case FollowUpMeeting:
		b.WriteString("Schedule meeting")
	case FollowUpTask:
		b.WriteString("Create task")
	case FollowUpValidation:
		b.WriteString("Verify")
	default:
		fmt.Fprintf(&b, "Follow up (%s)", fu.Kind)
	}
	if fu.With != "" {
		fmt.Fprintf(&b, " with %s", fu.With)
	}
	if fu.Topic != "" {
		fmt.Fprintf(&b, ": %s", fu.Topic)
	}
	if fu.Timing != "" {
		fmt.Fprintf(&b, " (%s)", fu.Timing)
	}
	return b.String()
}
