package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/pkg/diff"
)

// Entry is one audited write to a record. Previous and Current are the
// record fields around the write; Patch holds the RFC 6902 operations between them.
type Entry struct {
	ID            uuid.UUID            `json:"id"`
	Entity        record.EntityType    `json:"entity"`
	RecordID      string               `json:"record_id"`
	Action        record.Action        `json:"action"`
	Actor         record.Actor         `json:"actor"`
	StatusBefore  record.Status        `json:"status_before"`
	StatusAfter   record.Status        `json:"status_after"`
	RequestBefore record.RequestStatus `json:"request_before"`
	RequestAfter  record.RequestStatus `json:"request_after"`
	Previous      record.Snapshot      `json:"previous"`
	Current       record.Snapshot      `json:"current"`
	Patch         json.RawMessage      `json:"patch,omitempty"`
	Remark        string               `json:"remark,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Changes renders the field changes of the entry for display.
func (e Entry) Changes() []diff.Line {
	return diff.Render(e.Previous, e.Current, record.FieldLabels(e.Entity))
}

// Replay rebuilds Current by applying Patch to Previous.
func (e Entry) Replay() (record.Snapshot, error) {
	out, err := diff.Apply(e.Previous, e.Patch)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type Repository interface {
	List(ctx context.Context, entity record.EntityType, recordID string) ([]Entry, error)
}
