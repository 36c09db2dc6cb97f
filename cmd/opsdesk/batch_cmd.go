package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/opsdesk/internal/server"
	"github.com/iota-uz/opsdesk/modules/workflow"
	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/modules/workflow/presentation/controllers/dtos"
	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/composables"
	"github.com/iota-uz/opsdesk/pkg/httpapi"
)

type progressLine struct {
	Type string `json:"type"`
	services.Progress
}

type retryLine struct {
	Type    string `json:"type"`
	Attempt int    `json:"attempt"`
	Items   int    `json:"items"`
}

type failureLine struct {
	Type string `json:"type"`
	services.ItemFailure
}

type summaryLine struct {
	Type         string           `json:"type"`
	RunIDs       []uuid.UUID      `json:"run_ids"`
	Attempts     int              `json:"attempts"`
	Total        int              `json:"total"`
	SuccessCount int              `json:"success_count"`
	FailureCount int              `json:"failure_count"`
	Skipped      int              `json:"skipped"`
	Summary      services.Summary `json:"summary"`
}

// lineReporter prints batch progress as JSON lines next to the run output.
type lineReporter struct {
	mu sync.Mutex
	w  io.Writer
}

func (r *lineReporter) Report(_ context.Context, p services.Progress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSONLine(r.w, progressLine{Type: "progress", Progress: p})
}

type decideFunc func(ctx context.Context, items []services.BatchItem) (*services.BatchReport, error)

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var (
		entity    string
		action    string
		actorID   string
		actorName string
		itemsPath string
		retries   int
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Apply one decision to many records and print progress as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if retries < 0 {
				return withCode(exitUsage, fmt.Errorf("--retries must be non-negative, got %d", retries))
			}
			e, err := record.ParseEntityType(entity)
			if err != nil {
				return withCode(exitValidation, err)
			}
			dto, err := readBatchItems(cmd, itemsPath)
			if err != nil {
				return err
			}
			dto.ActorID = actorID
			dto.ActorName = actorName
			dto.Action = action
			if errs, ok := dto.Ok(); !ok {
				return withCode(exitValidation, fmt.Errorf("invalid batch: %v", errs))
			}
			act, err := record.ParseAction(dto.Action)
			if err != nil {
				return withCode(exitValidation, err)
			}

			conf, err := opts.config()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			app, cleanup, err := server.NewApplication(cmd.Context(), conf, &workflow.ModuleOptions{
				Workflow: conf.Workflow,
				Progress: &lineReporter{w: out},
			})
			if err != nil {
				return withCode(exitDB, err)
			}
			defer cleanup()

			wf, err := app.Service(services.Registry{}).(*services.Registry).Get(e)
			if err != nil {
				return withCode(exitValidation, err)
			}
			ctx := composables.WithPool(cmd.Context(), app.DB())
			ctx = composables.WithLogger(ctx, logrus.NewEntry(app.Logger()).WithField("command", "batch"))

			actor := dto.ToActor()
			summary, err := runBatch(ctx, out, dto.ToItems(), retries, func(ctx context.Context, items []services.BatchItem) (*services.BatchReport, error) {
				return wf.DecideBatch(ctx, items, act, actor)
			})
			if err != nil {
				return withCode(exitValidation, err)
			}
			switch summary.Summary {
			case services.SummaryAllFailed:
				return withCode(exitAllFailed, fmt.Errorf("batch failed: %d of %d items failed", summary.FailureCount+summary.Skipped, summary.Total))
			case services.SummaryPartialFailure:
				return withCode(exitPartial, fmt.Errorf("batch partially failed: %d of %d items failed", summary.FailureCount+summary.Skipped, summary.Total))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Entity type (required)")
	cmd.Flags().StringVar(&action, "action", "", "Decision to apply, e.g. approve or reject (required)")
	cmd.Flags().StringVar(&actorID, "actor-id", "", "Deciding actor UUID (required)")
	cmd.Flags().StringVar(&actorName, "actor-name", "", "Deciding actor display name")
	cmd.Flags().StringVar(&itemsPath, "items", "-", `JSON array of {"id","current_status"} objects; "-" reads stdin`)
	cmd.Flags().IntVar(&retries, "retries", 0, "Re-run retryable failures up to this many times")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("action")
	_ = cmd.MarkFlagRequired("actor-id")
	return cmd
}

func readBatchItems(cmd *cobra.Command, path string) (*dtos.BatchDTO, error) {
	var body io.ReadCloser
	if path == "-" {
		body = io.NopCloser(cmd.InOrStdin())
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, withCode(exitUsage, fmt.Errorf("open items file: %w", err))
		}
		body = f
	}
	dto := &dtos.BatchDTO{}
	if err := httpapi.DecodeJSON(body, &dto.Items); err != nil {
		return nil, withCode(exitValidation, fmt.Errorf("parse items: %w", err))
	}
	return dto, nil
}

// runBatch decides items, re-runs retryable failures up to retries times and
// prints every failure that remains followed by a summary line.
func runBatch(ctx context.Context, w io.Writer, items []services.BatchItem, retries int, decide decideFunc) (*summaryLine, error) {
	report, err := decide(ctx, items)
	if err != nil {
		return nil, err
	}
	summary := &summaryLine{Type: "summary", Total: report.Total, Attempts: 1, RunIDs: []uuid.UUID{report.RunID}}

	failures := make(map[string]services.ItemFailure, len(report.Failures))
	order := make([]string, 0, len(report.Failures))
	for _, f := range report.Failures {
		failures[f.ID] = f
		order = append(order, f.ID)
	}
	skipped := len(report.Skipped)

	current := items
	for attempt := 1; attempt <= retries && !report.Canceled; attempt++ {
		retry := report.RetryableItems(current)
		if len(retry) == 0 {
			break
		}
		if err := writeJSONLine(w, retryLine{Type: "retry", Attempt: attempt, Items: len(retry)}); err != nil {
			return nil, err
		}
		if report, err = decide(ctx, retry); err != nil {
			return nil, err
		}
		summary.Attempts++
		summary.RunIDs = append(summary.RunIDs, report.RunID)
		for _, it := range retry {
			delete(failures, it.ID)
		}
		for _, f := range report.Failures {
			failures[f.ID] = f
		}
		skipped += len(report.Skipped)
		current = retry
	}

	for _, id := range order {
		f, ok := failures[id]
		if !ok {
			continue
		}
		if err := writeJSONLine(w, failureLine{Type: "failure", ItemFailure: f}); err != nil {
			return nil, err
		}
	}

	summary.FailureCount = len(failures)
	summary.Skipped = skipped
	summary.SuccessCount = summary.Total - summary.FailureCount - skipped
	switch {
	case summary.FailureCount == 0 && skipped == 0:
		summary.Summary = services.SummaryAllSucceeded
	case summary.SuccessCount == 0:
		summary.Summary = services.SummaryAllFailed
	default:
		summary.Summary = services.SummaryPartialFailure
	}
	return summary, writeJSONLine(w, summary)
}
