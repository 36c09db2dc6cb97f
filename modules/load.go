package modules

import (
	"github.com/iota-uz/opsdesk/modules/workflow"
	"github.com/iota-uz/opsdesk/pkg/application"
	"github.com/iota-uz/opsdesk/pkg/configuration"
)

// BuiltInModules returns the modules served by the opsdesk binary.
func BuiltInModules(conf *configuration.Configuration, opts *workflow.ModuleOptions) []application.Module {
	if opts == nil {
		opts = &workflow.ModuleOptions{Workflow: conf.Workflow}
	}
	return []application.Module{
		workflow.NewModule(opts),
	}
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
