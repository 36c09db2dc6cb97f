// Package transition holds the per-entity status machines. Every legal
// (status, action) pair is listed explicitly; anything else is rejected.
package transition

import (
	"fmt"
	"strings"
	"time"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
)

// Payload describes what an action needs from its Context.
type Payload int

const (
	PayloadNone Payload = iota
	// PayloadCreate needs the initial field snapshot in Candidate.
	PayloadCreate
	// PayloadProposal needs Candidate and Previous to build modifiedData.
	PayloadProposal
	// PayloadNote needs a non-empty Note.
	PayloadNote
)

// Context carries the actor and the action specific payload.
type Context struct {
	Actor     record.Actor
	Candidate record.Snapshot
	Previous  record.Snapshot
	// Fields are the live record fields, used by guards.
	Fields record.Snapshot
	Note   string
	Remark string
	Bulk   bool
	Now    time.Time
}

// Patch is the change a transition applies to a record.
type Patch struct {
	Status        record.Status
	RequestStatus record.RequestStatus
	// ApplyProposal copies modifiedData.current onto the live fields.
	ApplyProposal bool
	ClearProposal bool
	Proposal      *record.ModifiedData
	Fields        record.Snapshot
	Remark        *string
}

type Rule struct {
	From          record.Status
	Action        record.Action
	To            record.Status
	Request       record.RequestStatus
	ApplyProposal bool
	ClearProposal bool
	// SingleOnly rules are not available to bulk decisions.
	SingleOnly bool
	Payload    Payload
	Guard      func(Context) bool
	// GuardName is shown by tooling next to guarded rules.
	GuardName string
}

func (r Rule) String() string {
	var b strings.Builder
	from := string(r.From)
	if from == "" {
		from = "(new)"
	}
	fmt.Fprintf(&b, "%s + %s -> %s/%s", from, r.Action, r.To, r.Request)
	if r.GuardName != "" {
		fmt.Fprintf(&b, " [if %s]", r.GuardName)
	}
	if r.ApplyProposal {
		b.WriteString(" apply")
	}
	if r.ClearProposal {
		b.WriteString(" clear")
	}
	if r.SingleOnly {
		b.WriteString(" single-only")
	}
	return b.String()
}

// Rules returns a copy of the entity's transition table.
func Rules(entity record.EntityType) []Rule {
	return append([]Rule(nil), tables[entity]...)
}

// Lookup returns the first rule for (current, action) whose guard accepts ctx.
func Lookup(entity record.EntityType, current record.Status, action record.Action, ctx Context) (Rule, bool) {
	for _, r := range tables[entity] {
		if r.From != current || r.Action != action {
			continue
		}
		if r.Guard != nil && !r.Guard(ctx) {
			continue
		}
		return r, true
	}
	return Rule{}, false
}

// Transition returns the patch for applying action to a record of entity in status current.
func Transition(entity record.EntityType, current record.Status, action record.Action, ctx Context) (Patch, error) {
	if _, ok := tables[entity]; !ok {
		return Patch{}, fmt.Errorf("%w: unknown entity %q", record.ErrInvalidPayload, entity)
	}
	rule, ok := Lookup(entity, current, action, ctx)
	if !ok {
		return Patch{}, fmt.Errorf("%w: %s %s from %q", record.ErrInvalidTransition, entity, action, current)
	}
	if rule.SingleOnly && ctx.Bulk {
		return Patch{}, fmt.Errorf("%w: %s %s from %q is not available in bulk", record.ErrInvalidTransition, entity, action, current)
	}

	patch := Patch{
		Status:        rule.To,
		RequestStatus: rule.Request,
		ApplyProposal: rule.ApplyProposal,
		ClearProposal: rule.ClearProposal,
	}
	if ctx.Remark != "" {
		remark := ctx.Remark
		patch.Remark = &remark
	}

	switch rule.Payload {
	case PayloadCreate:
		if len(ctx.Candidate) == 0 {
			return Patch{}, fmt.Errorf("%w: %s requires field values", record.ErrInvalidPayload, action)
		}
		patch.Fields = ctx.Candidate.Clone()
	case PayloadProposal:
		if len(ctx.Candidate) == 0 {
			return Patch{}, fmt.Errorf("%w: %s requires a candidate snapshot", record.ErrInvalidPayload, action)
		}
		patch.Proposal = &record.ModifiedData{
			Previous:   ctx.Previous.Clone(),
			Current:    ctx.Candidate.Clone(),
			ModifiedBy: ctx.Actor,
			ModifiedAt: ctx.Now,
		}
	case PayloadNote:
		note := strings.TrimSpace(ctx.Note)
		if note == "" {
			return Patch{}, fmt.Errorf("%w: %s requires a note", record.ErrInvalidPayload, action)
		}
		patch.Fields = record.Snapshot{record.FieldResolutionNote: note}
	}
	return patch, nil
}
