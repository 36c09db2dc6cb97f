package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iota-uz/opsdesk/pkg/configuration"
)

type rootOptions struct {
	envFiles []string
	conf     *configuration.Configuration
}

// config loads the configuration on first use so commands that never touch
// the database work without one.
func (o *rootOptions) config() (*configuration.Configuration, error) {
	if o.conf != nil {
		return o.conf, nil
	}
	conf, err := configuration.Load(o.envFiles)
	if err != nil {
		return nil, withCode(exitUsage, fmt.Errorf("load configuration: %w", err))
	}
	o.conf = conf
	return conf, nil
}

func (o *rootOptions) close() {
	if o.conf != nil {
		o.conf.Unload()
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "opsdesk",
		Short:         "Approval workflow tooling: migrations, transition tables and bulk decisions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			opts.close()
		},
	}
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", []string{".env", ".env.local"}, "Env files to load")

	cmd.AddCommand(newMigrateCmd(opts))
	cmd.AddCommand(newTransitionsCmd())
	cmd.AddCommand(newBatchCmd(opts))
	cmd.AddCommand(newServeCmd(opts))
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
