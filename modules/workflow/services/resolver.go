package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/transition"
	"github.com/iota-uz/opsdesk/pkg/composables"
	"github.com/iota-uz/opsdesk/pkg/diff"
	"github.com/iota-uz/opsdesk/pkg/eventbus"
)

type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
	OutcomePending  Outcome = "pending"
	OutcomeInvalid  Outcome = "invalid"
)

func outcomeOf(rs record.RequestStatus) Outcome {
	switch rs {
	case record.RequestApproved:
		return OutcomeApproved
	case record.RequestRejected:
		return OutcomeRejected
	default:
		return OutcomePending
	}
}

// Decision is the result of resolving one action on one record.
// On failure Record is the unchanged input and Outcome is OutcomeInvalid.
type Decision struct {
	Record  *record.Record
	Outcome Outcome
	Patch   transition.Patch
	History history.Entry
}

// Resolver applies the transition tables to a record and writes the result.
// It performs a single read-modify-write and never retries.
type Resolver struct {
	store     Store
	publisher eventbus.EventBus
	now       func() time.Time
}

type ResolverOption func(*Resolver)

func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

func NewResolver(store Store, publisher eventbus.EventBus, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve checks the request gate, looks up the transition, merges the patch
// and forwards the write to the store.
func (r *Resolver) Resolve(ctx context.Context, rec *record.Record, action record.Action, tc transition.Context) (Decision, error) {
	start := time.Now()
	logger := composables.UseLogger(ctx).WithFields(logrus.Fields{
		"entity":    rec.Entity,
		"record_id": rec.ID,
		"action":    action,
	})

	decision, err := r.resolve(ctx, rec, action, tc)
	recordDecisionMetrics(rec.Entity, action, decision.Outcome, time.Since(start))
	if err != nil {
		logger.WithError(err).Warn("workflow action not applied")
		return decision, err
	}

	logger.WithFields(logrus.Fields{
		"status":         decision.Record.Status,
		"request_status": decision.Record.RequestStatus,
		"outcome":        decision.Outcome,
	}).Info("workflow action applied")

	if r.publisher != nil {
		r.publisher.Publish(&DecisionEvent{
			Entity:  rec.Entity,
			Action:  action,
			Outcome: decision.Outcome,
			Actor:   tc.Actor,
			Record:  decision.Record.Clone(),
			History: decision.History,
		})
	}
	return decision, nil
}

func (r *Resolver) resolve(ctx context.Context, rec *record.Record, action record.Action, tc transition.Context) (Decision, error) {
	invalid := Decision{Record: rec, Outcome: OutcomeInvalid}

	if err := checkGate(rec, action); err != nil {
		return invalid, err
	}

	if tc.Now.IsZero() {
		tc.Now = r.now().UTC()
	}
	if tc.Fields == nil {
		tc.Fields = rec.Fields
	}

	patch, err := transition.Transition(rec.Entity, rec.Status, action, tc)
	if err != nil {
		return invalid, err
	}

	next := merge(rec, patch, tc.Now)
	entry, err := historyEntry(rec, next, action, patch, tc)
	if err != nil {
		return invalid, err
	}

	write := Write{
		Record:          next,
		Create:          action == record.ActionProposeCreate,
		ExpectedVersion: rec.Version,
		History:         entry,
	}
	if err := r.store.WriteRecord(ctx, write); err != nil {
		return invalid, classifyStoreError(err)
	}

	return Decision{
		Record:  next,
		Outcome: outcomeOf(next.RequestStatus),
		Patch:   patch,
		History: entry,
	}, nil
}

// checkGate enforces the single pending request rule. Decisions need a pending
// request, which makes a repeated approval fail instead of applying twice.
func checkGate(rec *record.Record, action record.Action) error {
	switch {
	case action.IsDecision() && !rec.IsPending():
		return fmt.Errorf("%w: %s %s has no pending request", record.ErrInvalidTransition, rec.Entity, rec.ID)
	case !action.IsDecision() && rec.IsPending():
		return fmt.Errorf("%w: %s %s is awaiting a decision", record.ErrStaleProposal, rec.Entity, rec.ID)
	}
	return nil
}

// merge returns a copy of rec with patch applied. Proposal fields replace the
// live ones key by key; other keys are kept.
func merge(rec *record.Record, patch transition.Patch, now time.Time) *record.Record {
	next := rec.Clone()
	if next.Fields == nil {
		next.Fields = record.Snapshot{}
	}
	for k, v := range patch.Fields.Clone() {
		next.Fields[k] = v
	}
	if patch.ApplyProposal && next.ModifiedData != nil {
		for k, v := range next.ModifiedData.Current.Clone() {
			next.Fields[k] = v
		}
	}
	if patch.Proposal != nil {
		next.ModifiedData = patch.Proposal.Clone()
	}
	if patch.ClearProposal {
		next.ModifiedData = nil
	}
	if patch.Remark != nil {
		next.Remark = *patch.Remark
	}
	next.Status = patch.Status
	next.RequestStatus = patch.RequestStatus
	next.UpdatedAt = now
	next.Version = rec.Version + 1
	return next
}

func historyEntry(prev, next *record.Record, action record.Action, patch transition.Patch, tc transition.Context) (history.Entry, error) {
	before, after := prev.Fields, next.Fields
	if patch.Proposal != nil {
		before, after = patch.Proposal.Previous, patch.Proposal.Current
	}
	ops, err := diff.JSONPatch(before, after)
	if err != nil {
		return history.Entry{}, fmt.Errorf("%w: %w", record.ErrInvalidPayload, err)
	}
	return history.Entry{
		ID:            uuid.New(),
		Entity:        prev.Entity,
		RecordID:      prev.ID,
		Action:        action,
		Actor:         tc.Actor,
		StatusBefore:  prev.Status,
		StatusAfter:   next.Status,
		RequestBefore: prev.RequestStatus,
		RequestAfter:  next.RequestStatus,
		Previous:      before.Clone(),
		Current:       after.Clone(),
		Patch:         ops,
		Remark:        next.Remark,
		CreatedAt:     tc.Now,
	}, nil
}

// classifyStoreError keeps typed store errors and marks everything else as a
// retryable storage failure.
func classifyStoreError(err error) error {
	if errors.Is(err, record.ErrNotFound) || errors.Is(err, record.ErrVersionConflict) {
		return err
	}
	if errors.Is(err, record.ErrStorageFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", record.ErrStorageFailure, err)
}
