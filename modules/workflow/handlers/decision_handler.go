package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/eventbus"
)

// DecisionEventsHandler writes an audit log line for every applied workflow
// action and every finished batch.
type DecisionEventsHandler struct {
	logger *logrus.Logger
}

func NewDecisionEventsHandler(logger *logrus.Logger) *DecisionEventsHandler {
	return &DecisionEventsHandler{logger: logger}
}

func RegisterDecisionEventHandlers(bus eventbus.EventBus, logger *logrus.Logger) *DecisionEventsHandler {
	handler := NewDecisionEventsHandler(logger)
	bus.Subscribe(handler.onDecision)
	bus.Subscribe(handler.onBatchCompleted)
	return handler
}

func (h *DecisionEventsHandler) onDecision(event *services.DecisionEvent) {
	if event == nil || event.Record == nil {
		return
	}
	h.logger.WithFields(logrus.Fields{
		"entity":         event.Entity,
		"record_id":      event.Record.ID,
		"action":         event.Action,
		"outcome":        event.Outcome,
		"actor_id":       event.Actor.ID,
		"status_before":  event.History.StatusBefore,
		"status":         event.Record.Status,
		"request_status": event.Record.RequestStatus,
		"history_id":     event.History.ID,
	}).Info("workflow decision")
}

func (h *DecisionEventsHandler) onBatchCompleted(event *services.BatchCompletedEvent) {
	if event == nil || event.Report == nil {
		return
	}
	r := event.Report
	entry := h.logger.WithFields(logrus.Fields{
		"entity":        event.Entity,
		"action":        event.Action,
		"actor_id":      event.Actor.ID,
		"run_id":        r.RunID,
		"total":         r.Total,
		"success_count": r.SuccessCount,
		"failure_count": r.FailureCount,
		"summary":       r.Summary,
		"canceled":      r.Canceled,
	})
	if r.Summary == services.SummaryAllSucceeded {
		entry.Info("workflow batch completed")
		return
	}
	entry.Warn("workflow batch completed with failures")
}
