package server

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/opsdesk/modules"
	"github.com/iota-uz/opsdesk/modules/workflow"
	"github.com/iota-uz/opsdesk/modules/workflow/infrastructure/progress"
	"github.com/iota-uz/opsdesk/pkg/application"
	"github.com/iota-uz/opsdesk/pkg/configuration"
	"github.com/iota-uz/opsdesk/pkg/eventbus"
	"github.com/iota-uz/opsdesk/pkg/metrics"
	"github.com/iota-uz/opsdesk/pkg/middleware"
	"github.com/iota-uz/opsdesk/pkg/server"
)

type DefaultOptions struct {
	Logger        *logrus.Logger
	Configuration *configuration.Configuration
	Application   application.Application
	Pool          *pgxpool.Pool
}

// Default installs the request middleware stack and the metrics endpoint on
// the application and returns the HTTP server for it.
func Default(options *DefaultOptions) *server.HTTPServer {
	app := options.Application
	conf := options.Configuration

	app.RegisterMiddleware(middleware.WithLogger(options.Logger, middleware.LoggerOptions{
		LogRequestBody:  conf.LogrusLogLevel() >= logrus.DebugLevel,
		MaxBodyLength:   512,
		RequestIDHeader: conf.RequestIDHeader,
	}))
	if options.Pool != nil {
		app.RegisterMiddleware(middleware.ProvidePool(options.Pool))
	}
	if conf.Prometheus.Enabled {
		app.RegisterControllers(metrics.NewPrometheusController(conf.Prometheus.Path))
	}
	return server.NewHTTPServer(app)
}

// NewApplication connects to the database and loads the built-in modules.
// With nil opts the progress backend comes from configuration. The returned
// cleanup releases what was opened, in reverse order.
func NewApplication(ctx context.Context, conf *configuration.Configuration, opts *workflow.ModuleOptions) (application.Application, func(), error) {
	logger := conf.Logger()
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.WithError(err).Warn("cleanup failed")
			}
		}
	}

	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		return nil, nil, fmt.Errorf("db connect failed: %w", err)
	}
	closers = append(closers, func() error {
		pool.Close()
		return nil
	})

	if opts == nil {
		reporter, closeReporter, err := progress.NewReporter(conf.Workflow, conf.Redis, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeReporter)
		opts = &workflow.ModuleOptions{Workflow: conf.Workflow, Progress: reporter}
	}

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app, modules.BuiltInModules(conf, opts)...); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to load modules: %w", err)
	}
	return app, cleanup, nil
}

// Serve runs the HTTP server until ctx is canceled.
func Serve(ctx context.Context, conf *configuration.Configuration) error {
	app, cleanup, err := NewApplication(ctx, conf, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := Default(&DefaultOptions{
		Logger:        conf.Logger(),
		Configuration: conf,
		Application:   app,
		Pool:          app.DB(),
	})
	return srv.Start(ctx, conf.SocketAddress, conf.ShutdownTimeout)
}
