package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/transition"
)

type ruleLine struct {
	Entity        record.EntityType    `json:"entity"`
	From          record.Status        `json:"from"`
	Action        record.Action        `json:"action"`
	To            record.Status        `json:"to"`
	Request       record.RequestStatus `json:"request_status"`
	Guard         string               `json:"guard,omitempty"`
	ApplyProposal bool                 `json:"apply_proposal,omitempty"`
	ClearProposal bool                 `json:"clear_proposal,omitempty"`
	SingleOnly    bool                 `json:"single_only,omitempty"`
}

func newTransitionsCmd() *cobra.Command {
	var (
		entity string
		format string
	)
	cmd := &cobra.Command{
		Use:   "transitions",
		Short: "Print the transition table of one or all entities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entities := record.EntityTypes()
			if entity != "" {
				e, err := record.ParseEntityType(entity)
				if err != nil {
					return withCode(exitValidation, err)
				}
				entities = []record.EntityType{e}
			}
			switch format {
			case "text":
				return printRulesText(cmd.OutOrStdout(), entities)
			case "json":
				return printRulesJSON(cmd.OutOrStdout(), entities)
			default:
				return withCode(exitUsage, fmt.Errorf("invalid --format %q (expected text|json)", format))
			}
		},
	}
	cmd.Flags().StringVar(&entity, "entity", "", "Entity type (subscriber, payment, employee, ticket); all when empty")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text|json")
	return cmd
}

func printRulesText(w io.Writer, entities []record.EntityType) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENTITY\tRULE")
	for _, e := range entities {
		for _, r := range transition.Rules(e) {
			fmt.Fprintf(tw, "%s\t%s\n", e, r)
		}
	}
	return tw.Flush()
}

func printRulesJSON(w io.Writer, entities []record.EntityType) error {
	for _, e := range entities {
		for _, r := range transition.Rules(e) {
			line := ruleLine{
				Entity:        e,
				From:          r.From,
				Action:        r.Action,
				To:            r.To,
				Request:       r.Request,
				Guard:         r.GuardName,
				ApplyProposal: r.ApplyProposal,
				ClearProposal: r.ClearProposal,
				SingleOnly:    r.SingleOnly,
			}
			if err := writeJSONLine(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}
