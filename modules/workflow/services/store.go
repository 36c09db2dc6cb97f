package services

import (
	"context"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
)

// Write is one record write together with its audit entry.
type Write struct {
	Record *record.Record
	// Create is set for the first write of a record.
	Create bool
	// ExpectedVersion is the version the record had when it was read.
	ExpectedVersion int64
	History         history.Entry
}

// Store is the storage collaborator used by the resolver. ReadRecord returns
// record.ErrNotFound for unknown ids. WriteRecord must persist the record and
// its history entry atomically.
type Store interface {
	ReadRecord(ctx context.Context, entity record.EntityType, id string) (*record.Record, error)
	WriteRecord(ctx context.Context, w Write) error
}

// Finder is implemented by stores that can list records.
type Finder interface {
	Find(ctx context.Context, params record.FindParams) ([]*record.Record, error)
}
