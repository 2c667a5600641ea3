package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/pkg/messaging"
)

func TestPublishReachesSubscribers(t *testing.T) {
	b := NewBroker()
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, "appointment.check_in")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "appointment.check_in", []byte(`{"a":1}`)))
	require.NoError(t, b.Publish(ctx, "appointment.close", []byte(`{"b":2}`)))

	select {
	case got := <-msgs:
		assert.JSONEq(t, `{"a":1}`, string(got))
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}
	assert.Empty(t, msgs)
}

func TestCancelEndsSubscription(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())

	msgs, err := b.Subscribe(ctx, "x")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-msgs:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
}

func TestConsumeRunsHandler(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	done := make(chan error, 1)
	go func() {
		done <- messaging.Consume(ctx, b, "prescription.publish_results", func(ctx context.Context, payload []byte) error {
			got <- string(payload)
			return nil
		}, nil)
	}()

	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return len(b.subs["prescription.publish_results"]) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Publish(ctx, "prescription.publish_results", []byte("hello")))
	assert.Equal(t, "hello", <-got)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestClosedBrokerRejectsPublish(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Publish(context.Background(), "x", nil), messaging.ErrClosed)
}
