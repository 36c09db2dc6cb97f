package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/opsdesk/modules/workflow/services"
	"github.com/iota-uz/opsdesk/pkg/configuration"
)

type published struct {
	channel string
	message any
}

type fakePublisher struct {
	sent []published
	err  error
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, message any) *redis.IntCmd {
	f.sent = append(f.sent, published{channel: channel, message: message})
	cmd := redis.NewIntCmd(ctx)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	cmd.SetVal(1)
	return cmd
}

func sampleProgress() services.Progress {
	return services.Progress{
		RunID:     uuid.MustParse("a3c2e1f0-1b2c-4d5e-8f90-1a2b3c4d5e6f"),
		Chunk:     1,
		Chunks:    2,
		Processed: 5,
		Total:     10,
		Percent:   50,
	}
}

func TestRedisReporter(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	require.NoError(t, NewRedisReporter(pub).Report(context.Background(), sampleProgress()))
	require.Len(t, pub.sent, 1)
	require.Equal(t, "workflow:batch:a3c2e1f0-1b2c-4d5e-8f90-1a2b3c4d5e6f", pub.sent[0].channel)

	var got services.Progress
	require.NoError(t, json.Unmarshal(pub.sent[0].message.([]byte), &got))
	require.Equal(t, sampleProgress(), got)
}

func TestRedisReporter_PublishError(t *testing.T) {
	t.Parallel()

	boom := errors.New("redis down")
	err := NewRedisReporter(&fakePublisher{err: boom}).Report(context.Background(), sampleProgress())
	require.ErrorIs(t, err, boom)
}

func TestLogReporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	require.NoError(t, NewLogReporter(logger).Report(context.Background(), sampleProgress()))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "batch progress 50%", line["msg"])
	require.Equal(t, float64(5), line["processed"])
	require.Equal(t, "a3c2e1f0-1b2c-4d5e-8f90-1a2b3c4d5e6f", line["run_id"])
}

func TestNewReporter(t *testing.T) {
	t.Parallel()

	logger := logrus.New()

	r, closeFn, err := NewReporter(configuration.WorkflowOptions{ProgressBackend: configuration.ProgressBackendLog}, configuration.RedisOptions{}, logger)
	require.NoError(t, err)
	require.IsType(t, &LogReporter{}, r)
	require.NoError(t, closeFn())

	r, closeFn, err = NewReporter(
		configuration.WorkflowOptions{ProgressBackend: configuration.ProgressBackendRedis},
		configuration.RedisOptions{URL: "localhost:6379"},
		logger,
	)
	require.NoError(t, err)
	require.IsType(t, &RedisReporter{}, r)
	require.NoError(t, closeFn())

	_, _, err = NewReporter(configuration.WorkflowOptions{ProgressBackend: "kafka"}, configuration.RedisOptions{}, logger)
	require.Error(t, err)
}
