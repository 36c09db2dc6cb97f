package record

import (
	"fmt"
	"slices"
)

// EntityType names a governed business entity.
type EntityType string

const (
	EntitySubscriber EntityType = "subscriber"
	EntityPayment    EntityType = "payment"
	EntityEmployee   EntityType = "employee"
	EntityTicket     EntityType = "ticket"
)

func EntityTypes() []EntityType {
	return []EntityType{EntitySubscriber, EntityPayment, EntityEmployee, EntityTicket}
}

func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(s)
	if !slices.Contains(EntityTypes(), e) {
		return "", fmt.Errorf("%w: unknown entity %q", ErrInvalidPayload, s)
	}
	return e, nil
}

// Status is the entity specific lifecycle state.
type Status string

const (
	StatusNone Status = ""

	StatusAdded      Status = "Added"
	StatusActive     Status = "Active"
	StatusInActive   Status = "InActive"
	StatusModified   Status = "Modified"
	StatusSuspended  Status = "Suspended"
	StatusRejected   Status = "Rejected"
	StatusDeleted    Status = "Deleted"
	StatusPaid       Status = "Paid"
	StatusReceived   Status = "Received"
	StatusRefunding  Status = "Refunding"
	StatusRefunded   Status = "Refunded"
	StatusOnProcess  Status = "OnProcess"
	StatusOpen       Status = "Open"
	StatusInProgress Status = "InProgress"
	StatusCritical   Status = "Critical"
	StatusResolved   Status = "Resolved"
	StatusCanceled   Status = "Canceled"
)

var statuses = map[EntityType][]Status{
	EntitySubscriber: {StatusAdded, StatusActive, StatusInActive, StatusModified, StatusSuspended, StatusRejected, StatusDeleted},
	EntityPayment:    {StatusPaid, StatusReceived, StatusRefunding, StatusRefunded, StatusRejected, StatusModified, StatusActive},
	EntityEmployee:   {StatusOnProcess, StatusActive, StatusInActive, StatusModified, StatusRejected, StatusDeleted},
	EntityTicket:     {StatusOpen, StatusInProgress, StatusCritical, StatusResolved, StatusCanceled},
}

// Statuses lists the statuses an entity can be in.
func Statuses(e EntityType) []Status {
	return slices.Clone(statuses[e])
}

func (e EntityType) HasStatus(s Status) bool {
	return slices.Contains(statuses[e], s)
}

type RequestStatus string

const (
	RequestNone     RequestStatus = ""
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

type Action string

const (
	ActionProposeCreate Action = "propose-create"
	ActionProposeModify Action = "propose-modify"
	ActionApprove       Action = "approve"
	ActionReject        Action = "reject"
	ActionSuspend       Action = "suspend"
	ActionDeactivate    Action = "deactivate"
	ActionReactivate    Action = "reactivate"
	ActionRefund        Action = "refund"
	ActionResolve       Action = "resolve"
)

func Actions() []Action {
	return []Action{
		ActionProposeCreate, ActionProposeModify,
		ActionApprove, ActionReject,
		ActionSuspend, ActionDeactivate, ActionReactivate, ActionRefund, ActionResolve,
	}
}

func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !slices.Contains(Actions(), a) {
		return "", fmt.Errorf("%w: unknown action %q", ErrInvalidPayload, s)
	}
	return a, nil
}

// IsDecision reports whether the action settles a pending request.
func (a Action) IsDecision() bool {
	return a == ActionApprove || a == ActionReject
}

func (a Action) IsProposal() bool {
	return a == ActionProposeCreate || a == ActionProposeModify
}
