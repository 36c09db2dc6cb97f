package eventbus

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/opsdesk/pkg/logging"
)

type decided struct {
	id string
}

type batched struct {
	total int
}

func bufferedLogger(level logrus.Level) (*bytes.Buffer, *logrus.Logger) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return buf, log
}

func TestPublisher_Publish_NoMatchingSubscribers(t *testing.T) {
	t.Parallel()

	buf, log := bufferedLogger(logrus.WarnLevel)
	publisher := NewEventPublisher(log)
	publisher.Subscribe(func(e *decided) {
		t.Error("should not be called")
	})
	publisher.Publish(&batched{total: 1})

	require.Contains(t, buf.String(), "eventbus.Publish: no matching subscribers")
}

func TestPublisher_Subscribe(t *testing.T) {
	t.Parallel()

	publisher := NewEventPublisher(logging.ConsoleLogger(logrus.WarnLevel))
	var got string
	publisher.Subscribe(func(e *decided) {
		got = e.id
	})
	publisher.Publish(&decided{id: "sub-1"})

	require.Equal(t, "sub-1", got)
	require.Equal(t, 1, publisher.SubscribersCount())
}

func TestPublisher_UnsubscribeAndClear(t *testing.T) {
	t.Parallel()

	publisher := NewEventPublisher(nil)
	onDecided := func(e *decided) {}
	onBatch := func(e *batched) {}
	publisher.Subscribe(onDecided)
	publisher.Subscribe(onBatch)

	publisher.Unsubscribe(onDecided)
	require.Equal(t, 1, publisher.SubscribersCount())
	require.ErrorIs(t, publisher.PublishE(&decided{}), ErrNoSubscribers)

	publisher.Clear()
	require.Zero(t, publisher.SubscribersCount())
}

func TestMatchSignature(t *testing.T) {
	t.Parallel()

	require.True(t, MatchSignature(func(e *decided) {}, []interface{}{&decided{}}))
	require.False(t, MatchSignature(func(e *decided) {}, []interface{}{&batched{}}))
	require.False(t, MatchSignature(func(e *decided) {}, []interface{}{}))
	require.False(t, MatchSignature(func(e *decided) {}, []interface{}{&decided{}, &decided{}}))
	require.True(t, MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}))
	require.True(t, MatchSignature(func(e *decided) {}, []interface{}{nil}))
	require.False(t, MatchSignature("not a func", []interface{}{&decided{}}))
}

func TestPublisher_PanicRecovery(t *testing.T) {
	t.Parallel()

	t.Run("panic is logged with args", func(t *testing.T) {
		buf, log := bufferedLogger(logrus.ErrorLevel)
		publisher := NewEventPublisher(log)
		publisher.Subscribe(func(e *decided) {
			panic("intentional panic for testing")
		})

		require.NotPanics(t, func() { publisher.Publish(&decided{id: "important-data"}) })
		require.Contains(t, buf.String(), "panicked")
		require.Contains(t, buf.String(), "intentional panic for testing")
	})

	t.Run("other handlers still run", func(t *testing.T) {
		buf, log := bufferedLogger(logrus.WarnLevel)
		publisher := NewEventPublisher(log)
		calls := 0
		publisher.Subscribe(func(e *decided) { calls++ })
		publisher.Subscribe(func(e *decided) { panic("handler 2 panic") })
		publisher.Subscribe(func(e *decided) { calls++ })

		publisher.Publish(&decided{})
		require.Equal(t, 2, calls)
		require.Contains(t, buf.String(), "panicked")
		require.NotContains(t, buf.String(), "no matching subscribers")
	})

	t.Run("warns when every handler panics", func(t *testing.T) {
		buf, log := bufferedLogger(logrus.WarnLevel)
		publisher := NewEventPublisher(log)
		publisher.Subscribe(func(e *decided) { panic("always panics") })

		publisher.Publish(&decided{})
		require.Contains(t, buf.String(), "no matching subscribers")
	})
}

func TestPublisher_PublishE(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrNoSubscribers when none match", func(t *testing.T) {
		publisher := NewEventPublisher(logrus.New())
		require.ErrorIs(t, publisher.PublishE(&decided{}), ErrNoSubscribers)
	})

	t.Run("joins handler errors", func(t *testing.T) {
		publisher := NewEventPublisher(logrus.New())
		err1 := errors.New("err1")
		err2 := errors.New("err2")
		publisher.Subscribe(func(e *decided) error { return err1 })
		publisher.Subscribe(func(e *decided) error { return err2 })

		err := publisher.PublishE(&decided{})
		require.ErrorIs(t, err, err1)
		require.ErrorIs(t, err, err2)
	})

	t.Run("panic is surfaced as error", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		called := false
		publisher.Subscribe(func(e *decided) error { panic("boom") })
		publisher.Subscribe(func(e *decided) error { called = true; return nil })

		require.Error(t, publisher.PublishE(&decided{}))
		require.True(t, called)
	})

	t.Run("invalid handler return", func(t *testing.T) {
		publisher := NewEventPublisher(nil)
		publisher.Subscribe(func(e *decided) int { return 1 })
		require.ErrorIs(t, publisher.PublishE(&decided{}), ErrInvalidHandlerReturn)
	})
}

func TestPublisher_ConcurrentSubscribeAndPublish(t *testing.T) {
	t.Parallel()

	publisher := NewEventPublisher(nil)
	var mu sync.Mutex
	count := 0

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			publisher.Subscribe(func(e *batched) {
				mu.Lock()
				count++
				mu.Unlock()
			})
		}()
		go func() {
			defer wg.Done()
			publisher.Publish(&batched{total: 1})
		}()
	}
	wg.Wait()

	require.Equal(t, 20, publisher.SubscribersCount())
	count = 0
	publisher.Publish(&batched{total: 1})
	require.Equal(t, 20, count)
}
