package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iota-uz/opsdesk/modules/workflow/infrastructure/persistence"
)

type migrationLine struct {
	Version   int64      `json:"version"`
	Path      string     `json:"path"`
	State     string     `json:"state"`
	AppliedAt *time.Time `json:"applied_at,omitempty"`
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the workflow schema",
	}

	open := func() (*sql.DB, error) {
		conf, err := opts.config()
		if err != nil {
			return nil, err
		}
		db, err := persistence.OpenDB(conf.Database.Opts)
		if err != nil {
			return nil, withCode(exitDB, err)
		}
		return db, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := persistence.Migrate(cmd.Context(), db); err != nil {
				return withCode(exitDBWrite, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			if err := persistence.Rollback(cmd.Context(), db); err != nil {
				return withCode(exitDBWrite, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migration rolled back")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the state of every migration as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := open()
			if err != nil {
				return err
			}
			defer db.Close()
			statuses, err := persistence.MigrationStatus(cmd.Context(), db)
			if err != nil {
				return withCode(exitDB, err)
			}
			for _, s := range statuses {
				line := migrationLine{State: string(s.State)}
				if s.Source != nil {
					line.Version = s.Source.Version
					line.Path = s.Source.Path
				}
				if !s.AppliedAt.IsZero() {
					at := s.AppliedAt
					line.AppliedAt = &at
				}
				if err := writeJSONLine(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}
			return nil
		},
	})
	return cmd
}
