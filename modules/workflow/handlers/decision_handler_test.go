package handlers

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/eventbus"
)

func jsonLogger() (*bytes.Buffer, *logrus.Logger) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.InfoLevel)
	return buf, log
}

func TestDecisionEventsHandler_LogsDecision(t *testing.T) {
	buf, log := jsonLogger()
	bus := eventbus.NewEventPublisher(nil)
	RegisterDecisionEventHandlers(bus, log)
	require.Equal(t, 2, bus.SubscribersCount())

	bus.Publish(&services.DecisionEvent{
		Entity:  record.EntitySubscriber,
		Action:  record.ActionApprove,
		Outcome: services.OutcomeApproved,
		Actor:   record.Actor{ID: uuid.New()},
		Record:  &record.Record{ID: "sub-1", Status: record.StatusActive, RequestStatus: record.RequestApproved},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "workflow decision", line["msg"])
	require.Equal(t, "sub-1", line["record_id"])
	require.Equal(t, "approved", line["outcome"])
	require.Equal(t, "Active", line["status"])
}

func TestDecisionEventsHandler_BatchWithFailuresWarns(t *testing.T) {
	buf, log := jsonLogger()
	bus := eventbus.NewEventPublisher(nil)
	RegisterDecisionEventHandlers(bus, log)

	bus.Publish(&services.BatchCompletedEvent{
		Entity: record.EntityPayment,
		Action: record.ActionApprove,
		Report: &services.BatchReport{Total: 3, SuccessCount: 2, FailureCount: 1, Summary: services.SummaryPartialFailure},
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "warning", line["level"])
	require.Equal(t, "PartialFailure", line["summary"])
	require.InDelta(t, 1, line["failure_count"], 0)
}
