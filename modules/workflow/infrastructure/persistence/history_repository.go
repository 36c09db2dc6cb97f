package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/pkg/composables"
)

const selectHistoryQuery = `
	SELECT id, entity, record_id, action, actor_id, actor_name,
	       status_before, status_after, request_before, request_after,
	       previous, current, patch, remark, created_at
	FROM workflow_history
	WHERE entity = $1 AND record_id = $2
	ORDER BY created_at, id`

type HistoryRepository struct{}

func NewHistoryRepository() history.Repository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) List(ctx context.Context, entity record.EntityType, recordID string) ([]history.Entry, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, selectHistoryQuery, string(entity), recordID)
	if err != nil {
		return nil, errors.Wrap(err, "query workflow history")
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var row WorkflowHistory
		if err := rows.Scan(
			&row.ID,
			&row.Entity,
			&row.RecordID,
			&row.Action,
			&row.ActorID,
			&row.ActorName,
			&row.StatusBefore,
			&row.StatusAfter,
			&row.RequestBefore,
			&row.RequestAfter,
			&row.Previous,
			&row.Current,
			&row.Patch,
			&row.Remark,
			&row.CreatedAt,
		); err != nil {
			return nil, errors.Wrap(err, "scan workflow history")
		}
		entry, err := toDomainHistory(&row)
		if err != nil {
			return nil, errors.Wrap(err, "decode workflow history")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate workflow history")
	}
	return entries, nil
}
