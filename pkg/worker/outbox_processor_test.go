package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/internal/model"
	"github.com/jwalitptl/encounter-api/internal/repository/memory"
	"github.com/jwalitptl/encounter-api/pkg/logger"
	"github.com/jwalitptl/encounter-api/pkg/metrics"
)

type flakyBroker struct {
	fail      int
	published map[string][][]byte
}

func (b *flakyBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if b.fail > 0 {
		b.fail--
		return errors.New("broker down")
	}
	if b.published == nil {
		b.published = map[string][][]byte{}
	}
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *flakyBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

func (b *flakyBroker) Close() error { return nil }

func seedEvent(t *testing.T, store *memory.Store, action string) *model.OutboxEvent {
	t.Helper()
	e, err := model.NewOutboxEvent(model.WorkflowEvent{
		Entity:   "prescription",
		EntityID: uuid.New(),
		Action:   action,
		ToStatus: "RESULTS_AVAILABLE",
		ActorID:  uuid.New(),
	})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), e))
	return e
}

func newProcessor(store *memory.Store, broker *flakyBroker, attempts int) (*OutboxProcessor, *metrics.Metrics) {
	m := metrics.New("test", prometheus.NewRegistry())
	p := NewOutboxProcessor(store.Outbox(), broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: attempts,
		RetryDelay:    time.Millisecond,
	}, logger.Nop(), m)
	return p, m
}

func TestProcessOncePublishesByEventType(t *testing.T) {
	store := memory.NewStore()
	e := seedEvent(t, store, "publish_results")
	broker := &flakyBroker{}
	p, m := newProcessor(store, broker, 3)

	n, err := p.ProcessOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, broker.published["prescription.publish_results"], 1)
	assert.JSONEq(t, string(e.Payload), string(broker.published["prescription.publish_results"][0]))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsProcessed))

	pending, err := store.Outbox().GetPendingEvents(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessOnceRetriesThenSucceeds(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "review")
	broker := &flakyBroker{fail: 1}
	p, m := newProcessor(store, broker, 3)
	ctx := context.Background()

	n, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxRetries.WithLabelValues("prescription.review")))

	time.Sleep(5 * time.Millisecond)
	n, err = p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestProcessOnceMarksFailedAfterLastAttempt(t *testing.T) {
	store := memory.NewStore()
	seedEvent(t, store, "send_to_lab")
	broker := &flakyBroker{fail: 10}
	p, m := newProcessor(store, broker, 1)
	ctx := context.Background()

	_, err := p.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OutboxEventsFailed))

	pending, err := store.Outbox().GetPendingEvents(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestBackoffDoubles(t *testing.T) {
	assert.Equal(t, time.Second, backoff(time.Second, 1))
	assert.Equal(t, 4*time.Second, backoff(time.Second, 3))
}

func TestNewOutboxProcessorRejectsBadConfig(t *testing.T) {
	assert.Panics(t, func() {
		NewOutboxProcessor(nil, &flakyBroker{}, OutboxProcessorConfig{}, logger.Nop(), nil)
	})
}
