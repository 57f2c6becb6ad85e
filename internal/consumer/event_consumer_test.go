package consumer

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vhvplatform/go-marketplace-notifications/internal/domain"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/errors"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/logger"
	"github.com/vhvplatform/go-marketplace-notifications/internal/shared/rabbitmq"
)

type fakeDelivery struct {
	redelivered bool
	acked       bool
	nacked      bool
	requeued    bool
}

func (d *fakeDelivery) Ack(bool) error { d.acked = true; return nil }
func (d *fakeDelivery) Nack(_, requeue bool) error {
	d.nacked, d.requeued = true, requeue
	return nil
}
func (d *fakeDelivery) Redelivered() bool { return d.redelivered }

type processorFunc func(ctx context.Context, event *domain.Event) error

func (f processorFunc) ProcessEvent(ctx context.Context, event *domain.Event) error {
	return f(ctx, event)
}

func TestHandle(t *testing.T) {
	valid := []byte(`{"id":"e1","type":"notification.send","userIds":["64b7f0c2a1b2c3d4e5f60718"],"notificationType":"system_update","title":"hi"}`)

	tests := []struct {
		name        string
		body        []byte
		err         error
		redelivered bool
		acked       bool
		requeued    bool
	}{
		{name: "processed", body: valid, acked: true},
		{name: "malformed json", body: []byte(`{not json`)},
		{name: "invalid event", body: valid, err: errors.NewValidationError("invalid event", nil)},
		{name: "transient failure", body: valid, err: stderrors.New("mongo down"), requeued: true},
		{name: "transient failure redelivered", body: valid, err: stderrors.New("mongo down"), redelivered: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.Event
			c := NewEventConsumer(nil, processorFunc(func(_ context.Context, e *domain.Event) error {
				got = e
				return tt.err
			}), Options{}, logger.NewNop())

			d := &fakeDelivery{redelivered: tt.redelivered}
			c.handle(context.Background(), tt.body, d)

			assert.Equal(t, tt.acked, d.acked)
			assert.Equal(t, !tt.acked, d.nacked)
			assert.Equal(t, tt.requeued, d.requeued)
			if tt.name == "processed" {
				require.NotNil(t, got)
				assert.Equal(t, domain.EventNotificationSend, got.Type)
				assert.Equal(t, domain.TypeSystemUpdate, got.Kind)
			}
		})
	}
}

type fakeBroker struct {
	mu       sync.Mutex
	bound    []string
	prefetch int
	messages chan rabbitmq.Message
	closed   bool
}

func (b *fakeBroker) DeclareExchange(string, string) error { return nil }
func (b *fakeBroker) DeclareQueue(string) error            { return nil }
func (b *fakeBroker) BindQueue(queue, key, exchange string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bound = append(b.bound, exchange+"/"+key+"->"+queue)
	return nil
}
func (b *fakeBroker) SetPrefetch(n int) error { b.prefetch = n; return nil }
func (b *fakeBroker) Consume(string, string) (<-chan rabbitmq.Message, error) {
	return b.messages, nil
}
func (b *fakeBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func TestStart_SetsUpTopologyAndStopsOnCancel(t *testing.T) {
	broker := &fakeBroker{messages: make(chan rabbitmq.Message)}
	dials := 0
	c := NewEventConsumer(func() (Broker, error) {
		dials++
		return broker, nil
	}, processorFunc(func(context.Context, *domain.Event) error { return nil }), Options{Prefetch: 10}, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	require.Eventually(t, func() bool {
		broker.mu.Lock()
		defer broker.mu.Unlock()
		return len(broker.bound) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.Equal(t, 1, dials)
	assert.Equal(t, []string{"notifications/notification.*->notification_queue"}, broker.bound)
	assert.Equal(t, 10, broker.prefetch)
	assert.True(t, broker.closed)
}

func TestStart_DialFailureReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewEventConsumer(func() (Broker, error) {
		cancel()
		return nil, stderrors.New("connection refused")
	}, nil, Options{}, logger.NewNop())

	assert.NoError(t, c.Start(ctx))
}
