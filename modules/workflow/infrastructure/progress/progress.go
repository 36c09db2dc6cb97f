package progress

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/configuration"
)

const channelPrefix = "workflow:batch:"

// Channel is the pub/sub channel that carries the progress of one batch run.
func Channel(p services.Progress) string {
	return channelPrefix + p.RunID.String()
}

// LogReporter writes batch progress to a logrus logger.
type LogReporter struct {
	logger logrus.FieldLogger
}

func NewLogReporter(logger logrus.FieldLogger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(_ context.Context, p services.Progress) error {
	r.logger.WithFields(logrus.Fields{
		"run_id":    p.RunID,
		"chunk":     p.Chunk,
		"chunks":    p.Chunks,
		"processed": p.Processed,
		"total":     p.Total,
	}).Infof("batch progress %.0f%%", p.Percent)
	return nil
}

// Publisher is the part of a redis client used for progress events.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisReporter publishes batch progress as JSON on Channel(p).
type RedisReporter struct {
	client Publisher
}

func NewRedisReporter(client Publisher) *RedisReporter {
	return &RedisReporter{client: client}
}

func (r *RedisReporter) Report(ctx context.Context, p services.Progress) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, Channel(p), payload).Err(); err != nil {
		return fmt.Errorf("publish batch progress: %w", err)
	}
	return nil
}

// NewReporter picks the reporter configured by WORKFLOW_PROGRESS_BACKEND.
// The returned close func releases the redis client when one was opened.
func NewReporter(opts configuration.WorkflowOptions, redisOpts configuration.RedisOptions, logger logrus.FieldLogger) (services.ProgressReporter, func() error, error) {
	switch opts.ProgressBackend {
	case configuration.ProgressBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     redisOpts.URL,
			Password: redisOpts.Password,
			DB:       redisOpts.DB,
		})
		return NewRedisReporter(client), client.Close, nil
	case configuration.ProgressBackendLog, "":
		return NewLogReporter(logger), func() error { return nil }, nil
	}
	return nil, nil, fmt.Errorf("unknown progress backend %q", opts.ProgressBackend)
}
