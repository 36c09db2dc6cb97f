package workflow

import (
	"github.com/iota-uz/opsdesk/modules/workflow/handlers"
	"github.com/iota-uz/opsdesk/modules/workflow/infrastructure/persistence"
	"github.com/iota-uz/opsdesk/modules/workflow/presentation/controllers"
	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/application"
	"github.com/iota-uz/opsdesk/pkg/configuration"
)

type ModuleOptions struct {
	Workflow configuration.WorkflowOptions
	// Progress receives batch progress; nil disables reporting.
	Progress services.ProgressReporter
}

func NewModule(opts *ModuleOptions) application.Module {
	if opts == nil {
		opts = &ModuleOptions{}
	}
	return &Module{options: opts}
}

type Module struct {
	options *ModuleOptions
}

func (m *Module) Register(app application.Application) error {
	if err := m.options.Workflow.Validate(); err != nil {
		return err
	}
	app.RegisterServices(NewRegistry(app, m.options))
	app.RegisterControllers(
		controllers.NewWorkflowAPIController(app),
	)
	handlers.RegisterDecisionEventHandlers(app.EventPublisher(), app.Logger())
	return nil
}

func (m *Module) Name() string {
	return "workflow"
}

// NewRegistry builds the four entity workflows on the PostgreSQL repositories.
func NewRegistry(app application.Application, opts *ModuleOptions) *services.Registry {
	batchOpts := []services.BatchOption{services.WithItemTimeout(opts.Workflow.ItemTimeout)}
	if opts.Progress != nil {
		batchOpts = append(batchOpts, services.WithProgressReporter(opts.Progress))
	}
	return services.NewRegistry(services.Dependencies{
		Store:     persistence.NewRecordRepository(opts.Workflow.OptimisticLocking),
		History:   persistence.NewHistoryRepository(),
		Publisher: app.EventPublisher(),
		Batch:     services.NewBatchProcessor(opts.Workflow.BatchSize, batchOpts...),
	})
}
