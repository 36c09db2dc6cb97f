package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/composables"
	"github.com/iota-uz/opsdesk/pkg/repo"
)

const (
	recordsTable = "workflow_records"
	historyTable = "workflow_history"

	selectRecordQuery = `SELECT entity, id, status, request_status, fields, modified_data, remark, version, updated_at FROM workflow_records`
)

var (
	recordColumns = []string{
		"entity", "id", "status", "request_status", "fields", "modified_data", "remark", "version", "updated_at",
	}
	recordUpdateColumns = []string{
		"status", "request_status", "fields", "modified_data", "remark", "version", "updated_at",
	}
	historyColumns = []string{
		"id", "entity", "record_id", "action", "actor_id", "actor_name",
		"status_before", "status_after", "request_before", "request_after",
		"previous", "current", "patch", "remark", "created_at",
	}
)

// RecordRepository stores workflow records and their history in PostgreSQL.
// With optimistic locking enabled, updates only apply to the version that was read.
type RecordRepository struct {
	optimistic bool
}

func NewRecordRepository(optimistic bool) *RecordRepository {
	return &RecordRepository{optimistic: optimistic}
}

var (
	_ services.Store  = (*RecordRepository)(nil)
	_ services.Finder = (*RecordRepository)(nil)
)

func (r *RecordRepository) ReadRecord(ctx context.Context, entity record.EntityType, id string) (*record.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	row := &WorkflowRecord{}
	err = tx.QueryRow(ctx, repo.Join(selectRecordQuery, "WHERE entity = $1 AND id = $2"), string(entity), id).Scan(recordDest(row)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s %s", record.ErrNotFound, entity, id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "read workflow record")
	}
	rec, err := toDomainRecord(row)
	if err != nil {
		return nil, errors.Wrap(err, "decode workflow record")
	}
	return rec, nil
}

func (r *RecordRepository) Find(ctx context.Context, params record.FindParams) ([]*record.Record, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	where := []string{"entity = $1"}
	args := []any{string(params.Entity)}
	if params.RequestStatus != record.RequestNone {
		args = append(args, string(params.RequestStatus))
		where = append(where, fmt.Sprintf("request_status = $%d", len(args)))
	}
	query := repo.Join(
		selectRecordQuery,
		repo.JoinWhere(where...),
		"ORDER BY updated_at DESC, id",
		repo.FormatLimitOffset(params.Limit, params.Offset),
	)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query workflow records")
	}
	defer rows.Close()

	var out []*record.Record
	for rows.Next() {
		row := &WorkflowRecord{}
		if err := rows.Scan(recordDest(row)...); err != nil {
			return nil, errors.Wrap(err, "scan workflow record")
		}
		rec, err := toDomainRecord(row)
		if err != nil {
			return nil, errors.Wrap(err, "decode workflow record")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate workflow records")
	}
	return out, nil
}

// WriteRecord persists the record and appends its history entry in one transaction.
func (r *RecordRepository) WriteRecord(ctx context.Context, w services.Write) error {
	dbRecord, err := toDBRecord(w.Record)
	if err != nil {
		return errors.Wrap(err, "encode workflow record")
	}
	dbHistory, err := toDBHistory(w.History)
	if err != nil {
		return errors.Wrap(err, "encode workflow history")
	}

	return composables.InTx(ctx, func(txCtx context.Context) error {
		tx, err := composables.UseTx(txCtx)
		if err != nil {
			return err
		}
		if w.Create {
			err = r.insert(txCtx, tx, dbRecord)
		} else {
			err = r.update(txCtx, tx, dbRecord, w.ExpectedVersion)
		}
		if err != nil {
			return err
		}
		if _, err := tx.Exec(txCtx, repo.Insert(historyTable, historyColumns), historyArgs(dbHistory)...); err != nil {
			return errors.Wrap(err, "insert workflow history")
		}
		return nil
	})
}

func (r *RecordRepository) insert(ctx context.Context, tx repo.Tx, row *WorkflowRecord) error {
	query := repo.Join(repo.Insert(recordsTable, recordColumns), "ON CONFLICT (entity, id) DO NOTHING")
	tag, err := tx.Exec(ctx, query,
		row.Entity,
		row.ID,
		row.Status,
		row.RequestStatus,
		row.Fields,
		row.ModifiedData,
		row.Remark,
		row.Version,
		row.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "insert workflow record")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s %s already exists", record.ErrVersionConflict, row.Entity, row.ID)
	}
	return nil
}

func (r *RecordRepository) update(ctx context.Context, tx repo.Tx, row *WorkflowRecord, expected int64) error {
	args := []any{
		row.Status,
		row.RequestStatus,
		row.Fields,
		row.ModifiedData,
		row.Remark,
		row.Version,
		row.UpdatedAt,
		row.Entity,
		row.ID,
	}
	where := []string{"entity = $8", "id = $9"}
	if r.optimistic {
		args = append(args, expected)
		where = append(where, "version = $10")
	}
	tag, err := tx.Exec(ctx, repo.Update(recordsTable, recordUpdateColumns, where...), args...)
	if err != nil {
		return errors.Wrap(err, "update workflow record")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if !r.optimistic {
		return fmt.Errorf("%w: %s %s", record.ErrNotFound, row.Entity, row.ID)
	}

	var exists int
	err = tx.QueryRow(ctx, "SELECT 1 FROM workflow_records WHERE entity = $1 AND id = $2", row.Entity, row.ID).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", record.ErrNotFound, row.Entity, row.ID)
	}
	if err != nil {
		return errors.Wrap(err, "check workflow record")
	}
	return fmt.Errorf("%w: %s %s changed since version %d", record.ErrVersionConflict, row.Entity, row.ID, expected)
}

func recordDest(row *WorkflowRecord) []any {
	return []any{
		&row.Entity,
		&row.ID,
		&row.Status,
		&row.RequestStatus,
		&row.Fields,
		&row.ModifiedData,
		&row.Remark,
		&row.Version,
		&row.UpdatedAt,
	}
}

func historyArgs(row *WorkflowHistory) []any {
	return []any{
		row.ID,
		row.Entity,
		row.RecordID,
		row.Action,
		row.ActorID,
		row.ActorName,
		row.StatusBefore,
		row.StatusAfter,
		row.RequestBefore,
		row.RequestAfter,
		row.Previous,
		row.Current,
		row.Patch,
		row.Remark,
		row.CreatedAt,
	}
}
