package retry

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testMessage struct {
	ID         string `json:"id"`
	RetryCount int    `json:"retryCount"`
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
	topics   []string
	keys     []string
}

func (p *recordingPublisher) Publish(_ context.Context, topic, key string, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, append([]byte(nil), payload...))
	return nil
}

func (p *recordingPublisher) published() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.payloads...)
}

func newTestConsumer(publisher *recordingPublisher, handler func(context.Context, testMessage) error, maxRetries int, onTerminal func(context.Context, testMessage)) *Consumer[testMessage] {
	return NewConsumer(Config[testMessage]{
		Topic:       "test.topic",
		Publisher:   publisher,
		Handler:     handler,
		Attempts:    func(m testMessage) int { return m.RetryCount },
		WithAttempt: func(m testMessage, n int) testMessage { m.RetryCount = n; return m },
		Key:         func(m testMessage) string { return m.ID },
		MaxRetries:  maxRetries,
		RetryDelay:  10 * time.Millisecond,
		OnTerminal:  onTerminal,
	})
}

func marshal(t *testing.T, msg testMessage) []byte {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	return payload
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestConsumer_SuccessDoesNotRepublish(t *testing.T) {
	publisher := &recordingPublisher{}
	consumer := newTestConsumer(publisher, func(context.Context, testMessage) error { return nil }, 3, nil)
	defer consumer.Close()

	err := consumer.HandleMessage(context.Background(), marshal(t, testMessage{ID: "m1"}))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, publisher.published())
}

func TestConsumer_FailureRepublishesWithIncrementedAttempt(t *testing.T) {
	publisher := &recordingPublisher{}
	consumer := newTestConsumer(publisher, func(context.Context, testMessage) error {
		return errors.New("boom")
	}, 3, nil)
	defer consumer.Close()

	start := time.Now()
	err := consumer.HandleMessage(context.Background(), marshal(t, testMessage{ID: "m1", RetryCount: 1}))
	require.NoError(t, err)

	waitFor(t, func() bool { return len(publisher.published()) == 1 })
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)

	var republished testMessage
	require.NoError(t, json.Unmarshal(publisher.published()[0], &republished))
	assert.Equal(t, 2, republished.RetryCount)
	assert.Equal(t, "test.topic", publisher.topics[0])
	assert.Equal(t, "m1", publisher.keys[0])
}

func TestConsumer_ExhaustedRetriesInvokeTerminalOnce(t *testing.T) {
	publisher := &recordingPublisher{}
	var terminalCalls int
	var mu sync.Mutex

	consumer := newTestConsumer(publisher, func(context.Context, testMessage) error {
		return errors.New("boom")
	}, 3, func(_ context.Context, msg testMessage) {
		mu.Lock()
		terminalCalls++
		mu.Unlock()
	})
	defer consumer.Close()

	// retryCount уже достиг предела: переотправки быть не должно.
	err := consumer.HandleMessage(context.Background(), marshal(t, testMessage{ID: "m1", RetryCount: 3}))
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, publisher.published())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, terminalCalls)
}

func TestConsumer_MalformedPayloadDropped(t *testing.T) {
	publisher := &recordingPublisher{}
	handlerCalled := false
	consumer := newTestConsumer(publisher, func(context.Context, testMessage) error {
		handlerCalled = true
		return nil
	}, 3, nil)
	defer consumer.Close()

	err := consumer.HandleMessage(context.Background(), []byte("{not json"))
	require.NoError(t, err)
	assert.False(t, handlerCalled)
	assert.Empty(t, publisher.published())
}

func TestConsumer_CloseStopsPendingTimers(t *testing.T) {
	publisher := &recordingPublisher{}
	consumer := NewConsumer(Config[testMessage]{
		Topic:       "test.topic",
		Publisher:   publisher,
		Handler:     func(context.Context, testMessage) error { return errors.New("boom") },
		Attempts:    func(m testMessage) int { return m.RetryCount },
		WithAttempt: func(m testMessage, n int) testMessage { m.RetryCount = n; return m },
		Key:         func(m testMessage) string { return m.ID },
		MaxRetries:  3,
		RetryDelay:  time.Hour,
	})

	require.NoError(t, consumer.HandleMessage(context.Background(), marshal(t, testMessage{ID: "m1"})))

	done := make(chan struct{})
	go func() {
		consumer.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close did not return, pending timer was not stopped")
	}
	assert.Empty(t, publisher.published())
}

func TestConsumer_RetryDoesNotBlockNewMessages(t *testing.T) {
	publisher := &recordingPublisher{}
	var mu sync.Mutex
	handled := make(map[string]int)

	consumer := NewConsumer(Config[testMessage]{
		Topic:     "test.topic",
		Publisher: publisher,
		Handler: func(_ context.Context, m testMessage) error {
			mu.Lock()
			handled[m.ID]++
			mu.Unlock()
			if m.ID == "slow" {
				return errors.New("boom")
			}
			return nil
		},
		Attempts:    func(m testMessage) int { return m.RetryCount },
		WithAttempt: func(m testMessage, n int) testMessage { m.RetryCount = n; return m },
		Key:         func(m testMessage) string { return m.ID },
		MaxRetries:  3,
		RetryDelay:  time.Hour,
	})
	defer consumer.Close()

	require.NoError(t, consumer.HandleMessage(context.Background(), marshal(t, testMessage{ID: "slow"})))

	// Пока висит часовой retry-таймер, новые сообщения обрабатываются сразу.
	start := time.Now()
	require.NoError(t, consumer.HandleMessage(context.Background(), marshal(t, testMessage{ID: "fast"})))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, handled["fast"])
}
