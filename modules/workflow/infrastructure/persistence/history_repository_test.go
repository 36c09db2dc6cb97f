package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/pkg/composables"
)

func historyRow(id uuid.UUID, action string, previous, current, patch string) []any {
	var p []byte
	if patch != "" {
		p = []byte(patch)
	}
	return []any{
		pgUUID(id), "payment", "tx-1", action, pgUUID(actor.ID), actor.Name,
		"Paid", "Modified", "approved", "pending",
		[]byte(previous), []byte(current), p, "fix amount", now,
	}
}

func TestHistoryRepository_List(t *testing.T) {
	t.Parallel()

	first, second := uuid.New(), uuid.New()
	db := &fakeDB{results: [][]any{
		historyRow(first, "propose-modify", `{"amount":"100"}`, `{"amount":"120"}`, `[{"op":"replace","path":"/amount","value":"120"}]`),
		historyRow(second, "approve", `{}`, `{}`, ""),
	}}
	ctx := composables.WithPool(context.Background(), db)

	entries, err := NewHistoryRepository().List(ctx, record.EntityPayment, "tx-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, []any{"payment", "tx-1"}, db.queries[0].args)

	e := entries[0]
	require.Equal(t, first, e.ID)
	require.Equal(t, record.ActionProposeModify, e.Action)
	require.Equal(t, actor, e.Actor)
	require.Equal(t, record.StatusPaid, e.StatusBefore)
	require.Equal(t, record.RequestPending, e.RequestAfter)
	require.Equal(t, "fix amount", e.Remark)

	replayed, err := e.Replay()
	require.NoError(t, err)
	require.Equal(t, record.Snapshot{"amount": "120"}, replayed)

	changes := e.Changes()
	require.Len(t, changes, 1)
	require.Equal(t, "amount", changes[0].Key)

	require.Nil(t, entries[1].Patch)
}

func TestMigrations_Embedded(t *testing.T) {
	t.Parallel()

	raw, err := migrationsFS.ReadFile("schema/00001_workflow_schema.sql")
	require.NoError(t, err)
	require.Contains(t, string(raw), "-- +goose Up")
	require.Contains(t, string(raw), "-- +goose Down")
	require.Contains(t, string(raw), "CREATE TABLE workflow_records")
	require.Contains(t, string(raw), "CREATE TABLE workflow_history")
}

func TestMigrations_RequireDB(t *testing.T) {
	t.Parallel()

	require.Error(t, Migrate(context.Background(), nil))
}
