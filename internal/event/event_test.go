package event

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var eventTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.FixedZone("WIB", 7*3600))

type fakeChannel struct {
	exchange string
	key      string
	msg      amqp091.Publishing
	err      error
	closed   bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	f.exchange, f.key, f.msg = exchange, key, msg
	return f.err
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestNewEventNormalisesTime(t *testing.T) {
	ev := New(PlanDeleted, "learner-1", "plan-1", eventTime, nil)

	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, time.UTC, ev.OccurredAt.Location())
	assert.True(t, ev.OccurredAt.Equal(eventTime))
}

func TestAMQPPublisherPublish(t *testing.T) {
	ch := &fakeChannel{}
	p := &AMQPPublisher{channel: ch, exchange: "study_plan.events", logger: zap.NewNop()}
	ev := New(SessionCompleted, "learner-1", "plan-1", eventTime, map[string]interface{}{"index": 3})

	require.NoError(t, p.Publish(context.Background(), ev))

	assert.Equal(t, "study_plan.events", ch.exchange)
	assert.Equal(t, "session.completed", ch.key)
	assert.Equal(t, amqp091.Persistent, ch.msg.DeliveryMode)
	assert.Equal(t, ev.ID, ch.msg.MessageId)
	assert.Equal(t, "learner-1", ch.msg.Headers["learner_id"])

	var decoded Event
	require.NoError(t, json.Unmarshal(ch.msg.Body, &decoded))
	assert.Equal(t, ev.Type, decoded.Type)
	assert.Equal(t, float64(3), decoded.Data["index"])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestAMQPPublisherWrapsErrors(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := &AMQPPublisher{channel: ch, exchange: "x", logger: zap.NewNop()}

	err := p.Publish(context.Background(), New(PlanDeleted, "l", "", eventTime, nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan.deleted")
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	require.NoError(t, p.Publish(context.Background(), New(PlanExported, "learner-1", "plan-1", eventTime, nil)))

	entries := logs.FilterMessage("event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "plan.exported", entries[0].ContextMap()["type"])
}

type flakySink struct {
	mu       sync.Mutex
	failures int
	got      []Event
	closed   bool
}

func (f *flakySink) Publish(_ context.Context, ev Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("broker unavailable")
	}
	f.got = append(f.got, ev)
	return nil
}

func (f *flakySink) Close() error {
	f.closed = true
	return nil
}

func (f *flakySink) delivered() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.got)
}

func TestDispatcherDeliversAsynchronously(t *testing.T) {
	rec := NewRecorder()
	d := NewDispatcher(rec, DispatcherConfig{Workers: 1}, nil)
	d.Start(context.Background())

	require.NoError(t, d.Publish(context.Background(), New(PlanGenerationStarted, "l", "", eventTime, nil)))
	require.NoError(t, d.Publish(context.Background(), New(PlanGenerationCompleted, "l", "p", eventTime, nil)))
	require.NoError(t, d.Close())

	assert.Equal(t, []Type{PlanGenerationStarted, PlanGenerationCompleted}, rec.Types())
}

func TestDispatcherRetriesFailedDelivery(t *testing.T) {
	sink := &flakySink{failures: 2}
	d := NewDispatcher(sink, DispatcherConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Millisecond}, nil)
	d.Start(context.Background())
	defer d.Close() //nolint:errcheck

	require.NoError(t, d.Publish(context.Background(), New(SessionReopened, "l", "p", eventTime, nil)))

	assert.Eventually(t, func() bool { return sink.delivered() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	sink := &flakySink{}
	d := NewDispatcher(sink, DispatcherConfig{}, nil)
	d.Start(context.Background())
	require.NoError(t, d.Close())

	assert.True(t, sink.closed)
	assert.Error(t, d.Publish(context.Background(), New(PlanDeleted, "l", "", eventTime, nil)))
}
