package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/fjod/cart-api/internal/service"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

type archiveCall struct {
	userID  int64
	itemIDs []int64
}

type MockArchiver struct {
	m     sync.Mutex
	calls []archiveCall
	err   error
}

func (a *MockArchiver) ReplaceCart(_ context.Context, userID int64, itemIDs []int64) error {
	a.m.Lock()
	defer a.m.Unlock()
	a.calls = append(a.calls, archiveCall{userID: userID, itemIDs: itemIDs})
	return a.err
}

func (a *MockArchiver) Calls() []archiveCall {
	a.m.Lock()
	defer a.m.Unlock()
	return append([]archiveCall(nil), a.calls...)
}

// MockReader hands out queued messages, then blocks until ctx is done.
type MockReader struct {
	msgs chan kafkaGo.Message
}

func newMockReader(values ...string) *MockReader {
	r := &MockReader{msgs: make(chan kafkaGo.Message, len(values))}
	for i, v := range values {
		r.msgs <- kafkaGo.Message{Offset: int64(i), Value: []byte(v)}
	}
	return r
}

func (r *MockReader) ReadMessage(ctx context.Context) (kafkaGo.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafkaGo.Message{}, ctx.Err()
	}
}

func (r *MockReader) Close() error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestProcessMessage_ArchivesCart(t *testing.T) {
	archiver := &MockArchiver{}
	c := &CheckoutConsumer{carts: archiver, reader: newMockReader(`{"user_id":4,"checkout_id":"abc"}`), logger: discardLogger()}

	c.processMessage(context.Background())

	calls := archiver.Calls()
	assert.Equal(t, len(calls), 1)
	assert.Equal(t, calls[0].userID, int64(4))
	assert.Assert(t, calls[0].itemIDs == nil)
}

func TestProcessMessage_SkipsInvalidPayloads(t *testing.T) {
	archiver := &MockArchiver{}
	c := &CheckoutConsumer{
		carts:  archiver,
		reader: newMockReader(`not json`, `{"user_id":0}`, `{"checkout_id":"x"}`),
		logger: discardLogger(),
	}

	for range 3 {
		c.processMessage(context.Background())
	}

	assert.Equal(t, len(archiver.Calls()), 0)
}

func TestProcessMessage_ArchiveErrorsDoNotStopConsumer(t *testing.T) {
	archiver := &MockArchiver{err: fmt.Errorf("find user 9: %w", service.ErrUserNotFound)}
	c := &CheckoutConsumer{carts: archiver, reader: newMockReader(`{"user_id":9}`, `{"user_id":10}`), logger: discardLogger()}

	c.processMessage(context.Background())
	archiver.err = errors.New("db down")
	c.processMessage(context.Background())

	assert.Equal(t, len(archiver.Calls()), 2)
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	archiver := &MockArchiver{}
	c := &CheckoutConsumer{carts: archiver, reader: newMockReader(`{"user_id":1}`), logger: discardLogger()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return len(archiver.Calls()) == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func setupKafka(t *testing.T) (string, func()) {
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func writeEvent(t *testing.T, brokerAddr, topic string, event CheckoutCompletedEvent) {
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	w := &kafkaGo.Writer{
		Addr:                   kafkaGo.TCP(brokerAddr),
		Topic:                  topic,
		Balancer:               &kafkaGo.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	defer w.Close()

	err = w.WriteMessages(context.Background(), kafkaGo.Message{Value: payload})
	require.NoError(t, err)
}

func TestCheckoutConsumer_ReadsFromKafka(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brokerAddr, cleanup := setupKafka(t)
	defer cleanup()

	const topic = "checkout-completed"
	writeEvent(t, brokerAddr, topic, CheckoutCompletedEvent{UserID: 2})

	archiver := &MockArchiver{}
	c := NewCheckoutConsumer(archiver, topic, discardLogger(), brokerAddr)
	defer c.Close()
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool {
		calls := archiver.Calls()
		return len(calls) == 1 && calls[0].userID == 2
	}, 20*time.Second, 500*time.Millisecond)
}
