package transition

import (
	r "github.com/iota-uz/opsdesk/modules/workflow/domain/record"
)

func candidateIsExpense(ctx Context) bool {
	return r.TransactionType(ctx.Candidate) == r.TransactionTypeExpense
}

func candidateIsNotExpense(ctx Context) bool {
	return !candidateIsExpense(ctx)
}

func fieldsAreExpense(ctx Context) bool {
	return r.TransactionType(ctx.Fields) == r.TransactionTypeExpense
}

var subscriberRules = []Rule{
	{From: r.StatusNone, Action: r.ActionProposeCreate, To: r.StatusAdded, Request: r.RequestPending, Payload: PayloadCreate},

	{From: r.StatusAdded, Action: r.ActionApprove, To: r.StatusActive, Request: r.RequestApproved},
	{From: r.StatusInActive, Action: r.ActionApprove, To: r.StatusInActive, Request: r.RequestApproved},
	{From: r.StatusActive, Action: r.ActionApprove, To: r.StatusActive, Request: r.RequestApproved},
	{From: r.StatusModified, Action: r.ActionApprove, To: r.StatusActive, Request: r.RequestApproved, ApplyProposal: true, ClearProposal: true, SingleOnly: true},
	{From: r.StatusSuspended, Action: r.ActionApprove, To: r.StatusSuspended, Request: r.RequestApproved},

	{From: r.StatusAdded, Action: r.ActionReject, To: r.StatusRejected, Request: r.RequestRejected},
	{From: r.StatusModified, Action: r.ActionReject, To: r.StatusRejected, Request: r.RequestRejected, ClearProposal: true},
	{From: r.StatusInActive, Action: r.ActionReject, To: r.StatusActive, Request: r.RequestApproved},
	{From: r.StatusSuspended, Action: r.ActionReject, To: r.StatusActive, Request: r.RequestApproved},
	{From: r.StatusActive, Action: r.ActionReject, To: r.StatusSuspended, Request: r.RequestApproved},

	{From: r.StatusActive, Action: r.ActionSuspend, To: r.StatusSuspended, Request: r.RequestPending},
	{From: r.StatusInActive, Action: r.ActionSuspend, To: r.StatusSuspended, Request: r.RequestPending},
	{From: r.StatusSuspended, Action: r.ActionSuspend, To: r.StatusActive, Request: r.RequestPending},

	{From: r.StatusActive, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusInActive, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusSuspended, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusRejected, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
}

var paymentRules = []Rule{
	{From: r.StatusNone, Action: r.ActionProposeCreate, To: r.StatusPaid, Request: r.RequestPending, Payload: PayloadCreate, Guard: candidateIsExpense, GuardName: "transactionType=Expense"},
	{From: r.StatusNone, Action: r.ActionProposeCreate, To: r.StatusReceived, Request: r.RequestPending, Payload: PayloadCreate, Guard: candidateIsNotExpense, GuardName: "transactionType!=Expense"},

	{From: r.StatusPaid, Action: r.ActionApprove, To: r.StatusPaid, Request: r.RequestApproved},
	{From: r.StatusReceived, Action: r.ActionApprove, To: r.StatusReceived, Request: r.RequestApproved},
	{From: r.StatusModified, Action: r.ActionApprove, To: r.StatusReceived, Request: r.RequestApproved, ApplyProposal: true, ClearProposal: true, SingleOnly: true},
	{From: r.StatusActive, Action: r.ActionApprove, To: r.StatusActive, Request: r.RequestApproved},
	{From: r.StatusRefunding, Action: r.ActionApprove, To: r.StatusRefunded, Request: r.RequestApproved},

	{From: r.StatusPaid, Action: r.ActionReject, To: r.StatusRejected, Request: r.RequestRejected},
	{From: r.StatusReceived, Action: r.ActionReject, To: r.StatusRejected, Request: r.RequestRejected},
	{From: r.StatusModified, Action: r.ActionReject, To: r.StatusRejected, Request: r.RequestRejected, ClearProposal: true},
	{From: r.StatusRefunding, Action: r.ActionReject, To: r.StatusPaid, Request: r.RequestApproved, Guard: fieldsAreExpense, GuardName: "transactionType=Expense"},

	{From: r.StatusRejected, Action: r.ActionRefund, To: r.StatusRefunding, Request: r.RequestPending},
	{From: r.StatusPaid, Action: r.ActionRefund, To: r.StatusRefunding, Request: r.RequestPending},
	{From: r.StatusReceived, Action: r.ActionRefund, To: r.StatusRefunding, Request: r.RequestPending},

	{From: r.StatusPaid, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusReceived, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusRejected, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusActive, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
}

var employeeRules = []Rule{
	{From: r.StatusNone, Action: r.ActionProposeCreate, To: r.StatusOnProcess, Request: r.RequestPending, Payload: PayloadCreate},

	{From: r.StatusOnProcess, Action: r.ActionApprove, To: r.StatusActive, Request: r.RequestApproved},
	{From: r.StatusModified, Action: r.ActionApprove, To: r.StatusActive, Request: r.RequestApproved, ApplyProposal: true, ClearProposal: true, SingleOnly: true},
	{From: r.StatusInActive, Action: r.ActionApprove, To: r.StatusInActive, Request: r.RequestApproved},
	{From: r.StatusActive, Action: r.ActionApprove, To: r.StatusActive, Request: r.RequestApproved},

	{From: r.StatusOnProcess, Action: r.ActionReject, To: r.StatusRejected, Request: r.RequestRejected},
	{From: r.StatusModified, Action: r.ActionReject, To: r.StatusRejected, Request: r.RequestRejected, ClearProposal: true},
	{From: r.StatusInActive, Action: r.ActionReject, To: r.StatusActive, Request: r.RequestApproved},
	{From: r.StatusActive, Action: r.ActionReject, To: r.StatusInActive, Request: r.RequestApproved},

	{From: r.StatusActive, Action: r.ActionDeactivate, To: r.StatusInActive, Request: r.RequestPending},
	{From: r.StatusInActive, Action: r.ActionReactivate, To: r.StatusActive, Request: r.RequestPending},

	{From: r.StatusActive, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusInActive, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
	{From: r.StatusRejected, Action: r.ActionProposeModify, To: r.StatusModified, Request: r.RequestPending, Payload: PayloadProposal},
}

// Tickets have no field proposals after creation.
var ticketRules = []Rule{
	{From: r.StatusNone, Action: r.ActionProposeCreate, To: r.StatusOpen, Request: r.RequestPending, Payload: PayloadCreate},

	{From: r.StatusOpen, Action: r.ActionApprove, To: r.StatusOpen, Request: r.RequestApproved},
	{From: r.StatusResolved, Action: r.ActionApprove, To: r.StatusResolved, Request: r.RequestApproved},

	{From: r.StatusOpen, Action: r.ActionReject, To: r.StatusCanceled, Request: r.RequestRejected},
	{From: r.StatusResolved, Action: r.ActionReject, To: r.StatusInProgress, Request: r.RequestApproved},

	{From: r.StatusInProgress, Action: r.ActionResolve, To: r.StatusResolved, Request: r.RequestPending, Payload: PayloadNote},
	{From: r.StatusCritical, Action: r.ActionResolve, To: r.StatusResolved, Request: r.RequestPending, Payload: PayloadNote},
}

var tables = map[r.EntityType][]Rule{
	r.EntitySubscriber: subscriberRules,
	r.EntityPayment:    paymentRules,
	r.EntityEmployee:   employeeRules,
	r.EntityTicket:     ticketRules,
}
