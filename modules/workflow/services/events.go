package services

import (
	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
)

// DecisionEvent is published after a resolved action has been written.
type DecisionEvent struct {
	Entity  record.EntityType
	Action  record.Action
	Outcome Outcome
	Actor   record.Actor
	Record  *record.Record
	History history.Entry
}

// BatchCompletedEvent is published once a batch run has finished or was canceled.
type BatchCompletedEvent struct {
	Entity record.EntityType
	Action record.Action
	Actor  record.Actor
	Report *BatchReport
}
