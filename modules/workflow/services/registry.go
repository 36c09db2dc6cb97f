package services

import (
	"fmt"
	"time"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/history"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/pkg/eventbus"
)

// Dependencies are shared by the workflows of every entity.
type Dependencies struct {
	Store     Store
	History   history.Repository
	Publisher eventbus.EventBus
	// Batch defaults to a processor with chunks of 5.
	Batch *BatchProcessor
	Clock func() time.Time
}

func (d Dependencies) resolver() *Resolver {
	var opts []ResolverOption
	if d.Clock != nil {
		opts = append(opts, WithClock(d.Clock))
	}
	return NewResolver(d.Store, d.Publisher, opts...)
}

func (d Dependencies) batch() *BatchProcessor {
	if d.Batch != nil {
		return d.Batch
	}
	return NewBatchProcessor(5)
}

func NewSubscriberWorkflow(deps Dependencies) *Workflow {
	return NewWorkflow(record.EntitySubscriber, deps)
}

func NewPaymentWorkflow(deps Dependencies) *Workflow {
	return NewWorkflow(record.EntityPayment, deps)
}

func NewEmployeeWorkflow(deps Dependencies) *Workflow {
	return NewWorkflow(record.EntityEmployee, deps)
}

func NewTicketWorkflow(deps Dependencies) *Workflow {
	return NewWorkflow(record.EntityTicket, deps)
}

// Registry holds one workflow per entity type.
type Registry struct {
	workflows map[record.EntityType]*Workflow
}

func NewRegistry(deps Dependencies) *Registry {
	return &Registry{
		workflows: map[record.EntityType]*Workflow{
			record.EntitySubscriber: NewSubscriberWorkflow(deps),
			record.EntityPayment:    NewPaymentWorkflow(deps),
			record.EntityEmployee:   NewEmployeeWorkflow(deps),
			record.EntityTicket:     NewTicketWorkflow(deps),
		},
	}
}

func (r *Registry) Get(entity record.EntityType) (*Workflow, error) {
	w, ok := r.workflows[entity]
	if !ok {
		return nil, fmt.Errorf("%w: unknown entity %q", record.ErrInvalidPayload, entity)
	}
	return w, nil
}

func (r *Registry) Subscribers() *Workflow { return r.workflows[record.EntitySubscriber] }
func (r *Registry) Payments() *Workflow    { return r.workflows[record.EntityPayment] }
func (r *Registry) Employees() *Workflow   { return r.workflows[record.EntityEmployee] }
func (r *Registry) Tickets() *Workflow     { return r.workflows[record.EntityTicket] }
