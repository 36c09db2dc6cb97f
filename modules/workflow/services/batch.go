package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/opsdesk/modules/workflow/domain/record"
	"github.com/iota-uz/opsdesk/pkg/composables"
	"github.com/iota-uz/opsdesk/pkg/configuration"
	"github.com/iota-uz/opsdesk/pkg/serrors"
)

type Summary string

const (
	SummaryAllSucceeded   Summary = "AllSucceeded"
	SummaryPartialFailure Summary = "PartialFailure"
	SummaryAllFailed      Summary = "AllFailed"
)

// BatchItem is one record targeted by a batch. Status is the status the caller
// last saw and is checked against storage before deciding.
type BatchItem struct {
	ID     string        `json:"id"`
	Status record.Status `json:"status,omitempty"`
}

// ItemFunc decides a single item. A returned error marks the item failed.
type ItemFunc func(ctx context.Context, item BatchItem) error

type ItemFailure struct {
	ID        string `json:"id"`
	Code      string `json:"code"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

type ChunkReport struct {
	Index        int `json:"index"`
	Size         int `json:"size"`
	SuccessCount int `json:"success_count"`
	FailureCount int `json:"failure_count"`
}

// Progress is emitted after each chunk. Percent is processed/total*100.
type Progress struct {
	RunID     uuid.UUID `json:"run_id"`
	Chunk     int       `json:"chunk"`
	Chunks    int       `json:"chunks"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Percent   float64   `json:"percent"`
}

type ProgressReporter interface {
	Report(ctx context.Context, p Progress) error
}

type BatchReport struct {
	RunID        uuid.UUID     `json:"run_id"`
	Total        int           `json:"total"`
	SuccessCount int           `json:"success_count"`
	FailureCount int           `json:"failure_count"`
	Failures     []ItemFailure `json:"failures"`
	// Skipped holds ids that were never attempted because the run was canceled.
	Skipped []string `json:"skipped,omitempty"`
	// Duplicates holds repeated ids; only their first occurrence is processed.
	Duplicates []string      `json:"duplicates,omitempty"`
	Chunks     []ChunkReport `json:"chunks"`
	Summary    Summary       `json:"summary"`
	Canceled   bool          `json:"canceled"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// FailedItems returns the input items that failed, for a retry-only-failed run.
func (r *BatchReport) FailedItems(items []BatchItem) []BatchItem {
	return r.pick(items, func(ItemFailure) bool { return true })
}

// RetryableItems returns the failed input items whose failure may succeed on retry.
func (r *BatchReport) RetryableItems(items []BatchItem) []BatchItem {
	return r.pick(items, func(f ItemFailure) bool { return f.Retryable })
}

func (r *BatchReport) pick(items []BatchItem, keep func(ItemFailure) bool) []BatchItem {
	failed := make(map[string]struct{}, len(r.Failures))
	for _, f := range r.Failures {
		if keep(f) {
			failed[f.ID] = struct{}{}
		}
	}
	out := make([]BatchItem, 0, len(failed))
	for _, it := range items {
		if _, ok := failed[it.ID]; ok {
			out = append(out, it)
			delete(failed, it.ID)
		}
	}
	return out
}

func summarize(success, failed, skipped int) Summary {
	switch {
	case failed == 0 && skipped == 0:
		return SummaryAllSucceeded
	case success == 0:
		return SummaryAllFailed
	default:
		return SummaryPartialFailure
	}
}

// BatchProcessor owns the chunking policy. Chunks run strictly one after
// another and cancellation is honored only between chunks.
type BatchProcessor struct {
	size     int
	progress ProgressReporter
	timeout  time.Duration
	now      func() time.Time
}

type BatchOption func(*BatchProcessor)

func WithProgressReporter(p ProgressReporter) BatchOption {
	return func(b *BatchProcessor) {
		b.progress = p
	}
}

// WithItemTimeout bounds each item call. Zero means no bound.
func WithItemTimeout(d time.Duration) BatchOption {
	return func(b *BatchProcessor) {
		b.timeout = d
	}
}

func WithBatchClock(now func() time.Time) BatchOption {
	return func(b *BatchProcessor) {
		b.now = now
	}
}

func NewBatchProcessor(size int, opts ...BatchOption) *BatchProcessor {
	if size < configuration.MinBatchSize {
		size = configuration.MinBatchSize
	}
	if size > configuration.MaxBatchSize {
		size = configuration.MaxBatchSize
	}
	b := &BatchProcessor{size: size, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BatchProcessor) Size() int {
	return b.size
}

// Run processes items in chunks and always returns a report; item failures
// never abort the run.
func (b *BatchProcessor) Run(ctx context.Context, items []BatchItem, fn ItemFunc) *BatchReport {
	report := &BatchReport{
		RunID:     uuid.New(),
		Failures:  []ItemFailure{},
		Chunks:    []ChunkReport{},
		StartedAt: b.now().UTC(),
	}
	logger := composables.UseLogger(ctx).WithField("run_id", report.RunID)

	unique := make([]BatchItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			report.Duplicates = append(report.Duplicates, it.ID)
			continue
		}
		seen[it.ID] = struct{}{}
		unique = append(unique, it)
	}
	report.Total = len(unique)

	chunks := int(math.Ceil(float64(len(unique)) / float64(b.size)))
	logger.WithFields(logrus.Fields{"total": report.Total, "chunks": chunks}).Info("batch started")

	processed := 0
	for i := 0; i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			report.Canceled = true
			for _, it := range unique[processed:] {
				report.Skipped = append(report.Skipped, it.ID)
			}
			logger.WithError(err).WithField("skipped", len(report.Skipped)).Warn("batch canceled")
			break
		}

		end := min(processed+b.size, len(unique))
		chunk := ChunkReport{Index: i, Size: end - processed}
		for _, it := range unique[processed:end] {
			if err := b.runItem(ctx, it, fn); err != nil {
				chunk.FailureCount++
				report.Failures = append(report.Failures, ItemFailure{
					ID:        it.ID,
					Code:      failureCode(err),
					Error:     err.Error(),
					Retryable: isRetryable(err),
				})
				logger.WithError(err).WithField("record_id", it.ID).Debug("batch item failed")
				continue
			}
			chunk.SuccessCount++
		}
		processed = end
		report.SuccessCount += chunk.SuccessCount
		report.FailureCount += chunk.FailureCount
		report.Chunks = append(report.Chunks, chunk)

		if b.progress != nil {
			p := Progress{
				RunID:     report.RunID,
				Chunk:     i + 1,
				Chunks:    chunks,
				Processed: processed,
				Total:     report.Total,
				Percent:   float64(processed) / float64(report.Total) * 100,
			}
			if err := b.progress.Report(ctx, p); err != nil {
				logger.WithError(err).Warn("batch progress not reported")
			}
		}
	}

	report.Summary = summarize(report.SuccessCount, report.FailureCount, len(report.Skipped))
	report.FinishedAt = b.now().UTC()
	recordBatchMetrics(report)
	logger.WithFields(logrus.Fields{
		"summary":       report.Summary,
		"success_count": report.SuccessCount,
		"failure_count": report.FailureCount,
	}).Info("batch finished")
	return report
}

// runItem detaches the item from the run's cancellation so a started chunk
// always finishes; the run context is only consulted between chunks.
func (b *BatchProcessor) runItem(ctx context.Context, it BatchItem, fn ItemFunc) (err error) {
	ctx = context.WithoutCancel(ctx)
	if b.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("batch item panicked: %v", r)
		}
	}()
	return fn(ctx, it)
}

func isContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func isRetryable(err error) bool {
	return serrors.IsRetryable(err) || isContextError(err)
}

func failureCode(err error) string {
	if code := serrors.Code(err); code != "" {
		return code
	}
	if isContextError(err) {
		return record.ErrStorageFailure.Code
	}
	return "UNKNOWN"
}
