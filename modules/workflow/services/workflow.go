package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/transition"
	"github.com/iota-uz/opsdesk/pkg/composables"
	"github.com/iota-uz/opsdesk/pkg/diff"
	"github.com/iota-uz/opsdesk/pkg/eventbus"
)

// DecisionResult is returned by single record actions. Changes lists the field
// changes of the write and is empty when no field changed.
type DecisionResult struct {
	Record  *record.Record `json:"record"`
	Outcome Outcome        `json:"outcome"`
	Changes []diff.Line    `json:"changes,omitempty"`
}

// SideActionInput carries the optional payload of side actions.
type SideActionInput struct {
	Note   string
	Remark string
}

// Workflow is the action surface of one entity type. It is the only writer of
// status, request_status and modifiedData.
type Workflow struct {
	entity    record.EntityType
	store     Store
	history   history.Repository
	resolver  *Resolver
	batch     *BatchProcessor
	publisher eventbus.EventBus
}

func NewWorkflow(entity record.EntityType, deps Dependencies) *Workflow {
	return &Workflow{
		entity:    entity,
		store:     deps.Store,
		history:   deps.History,
		resolver:  deps.resolver(),
		batch:     deps.batch(),
		publisher: deps.Publisher,
	}
}

func (w *Workflow) Entity() record.EntityType {
	return w.entity
}

func (w *Workflow) logger(ctx context.Context, id string) *logrus.Entry {
	return composables.UseLogger(ctx).WithFields(logrus.Fields{
		"entity":    w.entity,
		"record_id": id,
	})
}

func (w *Workflow) Get(ctx context.Context, id string) (*record.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", record.ErrInvalidPayload)
	}
	rec, err := w.store.ReadRecord(ctx, w.entity, id)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return rec, nil
}

// List returns records of the entity, optionally filtered by request status.
func (w *Workflow) List(ctx context.Context, requestStatus record.RequestStatus, limit, offset int) ([]*record.Record, error) {
	finder, ok := w.store.(Finder)
	if !ok {
		return nil, fmt.Errorf("%w: store cannot list records", record.ErrStorageFailure)
	}
	recs, err := finder.Find(ctx, record.FindParams{
		Entity:        w.entity,
		RequestStatus: requestStatus,
		Limit:         limit,
		Offset:        offset,
	})
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return recs, nil
}

// Propose creates the record when it does not exist yet, otherwise it stores
// the changed fields as a pending modification.
func (w *Workflow) Propose(ctx context.Context, id string, candidate record.Snapshot, actor record.Actor, remark string) (*record.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: id is required", record.ErrInvalidPayload)
	}
	candidate = record.StripIdentity(w.entity, candidate)
	if err := record.ValidateFields(w.entity, candidate); err != nil {
		return nil, err
	}

	rec, err := w.store.ReadRecord(ctx, w.entity, id)
	if errors.Is(err, record.ErrNotFound) {
		return w.proposeCreate(ctx, id, candidate, actor, remark)
	}
	if err != nil {
		return nil, classifyStoreError(err)
	}

	if rec.IsPending() {
		return nil, fmt.Errorf("%w: %s %s is awaiting a decision", record.ErrStaleProposal, w.entity, id)
	}
	changes := record.Snapshot(diff.Compute(rec.Fields, candidate))
	if len(changes) == 0 {
		return nil, fmt.Errorf("%w: %s %s", record.ErrNoChanges, w.entity, id)
	}
	keys := make([]string, 0, len(changes))
	for k := range changes {
		keys = append(keys, k)
	}

	decision, err := w.resolver.Resolve(ctx, rec, record.ActionProposeModify, transition.Context{
		Actor:     actor,
		Candidate: changes,
		Previous:  rec.Fields.Subset(keys),
		Remark:    remark,
	})
	if err != nil {
		return nil, err
	}
	return decision.Record, nil
}

func (w *Workflow) proposeCreate(ctx context.Context, id string, candidate record.Snapshot, actor record.Actor, remark string) (*record.Record, error) {
	fields := candidate.Clone()
	if len(fields) > 0 {
		fields[record.IdentityKey(w.entity)] = id
	}
	blank := &record.Record{ID: id, Entity: w.entity}
	decision, err := w.resolver.Resolve(ctx, blank, record.ActionProposeCreate, transition.Context{
		Actor:     actor,
		Candidate: fields,
		Remark:    remark,
	})
	if err != nil {
		return nil, err
	}
	w.logger(ctx, id).Info("record proposed")
	return decision.Record, nil
}

// Decide approves or rejects the pending request of a record.
func (w *Workflow) Decide(ctx context.Context, id string, action record.Action, actor record.Actor, remark string) (DecisionResult, error) {
	if !action.IsDecision() {
		return DecisionResult{Outcome: OutcomeInvalid}, fmt.Errorf("%w: %q is not a decision", record.ErrInvalidPayload, action)
	}
	return w.act(ctx, id, action, transition.Context{Actor: actor, Remark: remark})
}

// SideAction runs an entity specific action such as suspend, refund or resolve.
func (w *Workflow) SideAction(ctx context.Context, id string, action record.Action, actor record.Actor, in SideActionInput) (DecisionResult, error) {
	if action.IsDecision() || action.IsProposal() {
		return DecisionResult{Outcome: OutcomeInvalid}, fmt.Errorf("%w: %q is not a side action", record.ErrInvalidPayload, action)
	}
	return w.act(ctx, id, action, transition.Context{Actor: actor, Note: in.Note, Remark: in.Remark})
}

func (w *Workflow) act(ctx context.Context, id string, action record.Action, tc transition.Context) (DecisionResult, error) {
	rec, err := w.Get(ctx, id)
	if err != nil {
		return DecisionResult{Outcome: OutcomeInvalid}, err
	}
	decision, err := w.resolver.Resolve(ctx, rec, action, tc)
	if err != nil {
		return DecisionResult{Record: rec, Outcome: OutcomeInvalid}, err
	}
	return DecisionResult{
		Record:  decision.Record,
		Outcome: decision.Outcome,
		Changes: decision.History.Changes(),
	}, nil
}

// DecideBatch applies action to every item through the batch processor. Each
// item's caller-held status must still match storage.
func (w *Workflow) DecideBatch(ctx context.Context, items []BatchItem, action record.Action, actor record.Actor) (*BatchReport, error) {
	if action.IsProposal() {
		return nil, fmt.Errorf("%w: %q cannot run in bulk", record.ErrInvalidPayload, action)
	}
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{"entity": w.entity, "action": action})
	ctx = composables.WithLogger(ctx, logger)

	report := w.batch.Run(ctx, items, func(ctx context.Context, item BatchItem) error {
		if item.Status != "" && !w.entity.HasStatus(item.Status) {
			return fmt.Errorf("%w: %q is not a %s status", record.ErrInvalidPayload, item.Status, w.entity)
		}
		rec, err := w.Get(ctx, item.ID)
		if err != nil {
			return err
		}
		if item.Status != "" && item.Status != rec.Status {
			return fmt.Errorf("%w: %s %s is %s, expected %s", record.ErrStaleProposal, w.entity, item.ID, rec.Status, item.Status)
		}
		_, err = w.resolver.Resolve(ctx, rec, action, transition.Context{Actor: actor, Bulk: true})
		return err
	})

	if w.publisher != nil {
		w.publisher.Publish(&BatchCompletedEvent{
			Entity: w.entity,
			Action: action,
			Actor:  actor,
			Report: report,
		})
	}
	return report, nil
}

// RetryFailed runs DecideBatch again for the items that failed in report.
func (w *Workflow) RetryFailed(ctx context.Context, report *BatchReport, items []BatchItem, action record.Action, actor record.Actor) (*BatchReport, error) {
	return w.DecideBatch(ctx, report.FailedItems(items), action, actor)
}

// History lists the audit entries of a record, oldest first.
func (w *Workflow) History(ctx context.Context, id string) ([]history.Entry, error) {
	if w.history == nil {
		return nil, nil
	}
	entries, err := w.history.List(ctx, w.entity, id)
	if err != nil {
		return nil, classifyStoreError(err)
	}
	return entries, nil
}
