// Package retry реализует обёртку над consumer-ом с ограниченным числом
// повторов. Неудачно обработанное сообщение переопубликовывается в тот же
// топик с инкрементированным счётчиком попыток после фиксированной задержки;
// задержка отрабатывает на отдельном таймере и не блокирует приём новых
// сообщений. После исчерпания попыток вызывается терминальный хук и
// сообщение отбрасывается.
package retry

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const defaultRetryDelay = 5 * time.Second

var retryMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "pos_retry_consumer_messages_total",
	Help: "Total number of consumed messages grouped by topic and result.",
}, []string{"topic", "result"})

// Config задаёт параметры retry-консьюмера для сообщений типа T.
type Config[T any] struct {
	// Topic — топик, из которого читаем и в который переопубликовываем.
	Topic string
	// Publisher используется для отложенной переотправки.
	Publisher domain.MessagePublisher
	// Handler обрабатывает сообщение; ошибка запускает retry-логику.
	Handler func(ctx context.Context, msg T) error
	// Attempts извлекает текущий счётчик попыток из сообщения.
	Attempts func(msg T) int
	// WithAttempt возвращает копию сообщения с новым счётчиком попыток.
	WithAttempt func(msg T, attempt int) T
	// Key возвращает ключ партиционирования для переотправки.
	Key func(msg T) string
	// MaxRetries — предел счётчика; достижение предела означает terminal.
	MaxRetries int
	// RetryDelay — фиксированная задержка перед переотправкой (по умолчанию 5s).
	RetryDelay time.Duration
	// OnTerminal вызывается ровно один раз после исчерпания попыток.
	OnTerminal func(ctx context.Context, msg T)
	Logger     *log.Entry
}

// Consumer оборачивает handler retry-логикой с отложенной переотправкой.
type Consumer[T any] struct {
	topic       string
	publisher   domain.MessagePublisher
	handler     func(ctx context.Context, msg T) error
	attempts    func(msg T) int
	withAttempt func(msg T, attempt int) T
	key         func(msg T) string
	maxRetries  int
	retryDelay  time.Duration
	onTerminal  func(ctx context.Context, msg T)
	logger      *log.Entry

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewConsumer создаёт retry-консьюмер из конфигурации.
func NewConsumer[T any](cfg Config[T]) *Consumer[T] {
	logger := cfg.Logger
	if logger == nil {
		logger = log.WithField("component", "retry-consumer")
	}
	logger = logger.WithField("topic", cfg.Topic)

	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	return &Consumer[T]{
		topic:       cfg.Topic,
		publisher:   cfg.Publisher,
		handler:     cfg.Handler,
		attempts:    cfg.Attempts,
		withAttempt: cfg.WithAttempt,
		key:         cfg.Key,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  delay,
		onTerminal:  cfg.OnTerminal,
		logger:      logger,
		timers:      make(map[*time.Timer]struct{}),
	}
}

// HandleMessage обрабатывает одно сообщение топика.
// Возвращает nil и для успешной обработки, и для запланированного retry,
// и для терминального провала: во всех трёх случаях сообщение считается
// потреблённым, дальнейшая судьба решена здесь.
func (c *Consumer[T]) HandleMessage(ctx context.Context, payload []byte) error {
	var msg T
	if err := json.Unmarshal(payload, &msg); err != nil {
		// Непарсящееся сообщение переотправлять бессмысленно.
		retryMessagesTotal.WithLabelValues(c.topic, "poison").Inc()
		c.logger.WithError(err).Warn("dropping malformed message")
		return nil
	}

	err := c.handler(ctx, msg)
	if err == nil {
		retryMessagesTotal.WithLabelValues(c.topic, "ok").Inc()
		return nil
	}

	attempt := c.attempts(msg)
	if attempt >= c.maxRetries {
		retryMessagesTotal.WithLabelValues(c.topic, "terminal").Inc()
		c.logger.WithError(err).WithFields(log.Fields{
			"attempt":     attempt,
			"max_retries": c.maxRetries,
		}).Error("retries exhausted, handling terminally")
		if c.onTerminal != nil {
			c.onTerminal(ctx, msg)
		}
		return nil
	}

	retryMessagesTotal.WithLabelValues(c.topic, "retry").Inc()
	c.logger.WithError(err).WithFields(log.Fields{
		"attempt":     attempt,
		"max_retries": c.maxRetries,
		"delay":       c.retryDelay,
	}).Warn("handler failed, scheduling republish")
	c.scheduleRepublish(c.withAttempt(msg, attempt+1))
	return nil
}

// KafkaHandler адаптирует консьюмер к обработчику сообщений Kafka.
func (c *Consumer[T]) KafkaHandler() func(ctx context.Context, message *sarama.ConsumerMessage) error {
	return func(ctx context.Context, message *sarama.ConsumerMessage) error {
		return c.HandleMessage(ctx, message.Value)
	}
}

// scheduleRepublish ставит отложенную переотправку на собственный таймер,
// не занимая цикл приёма на время задержки.
func (c *Consumer[T]) scheduleRepublish(next T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.wg.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(c.retryDelay, func() {
		defer c.wg.Done()

		c.mu.Lock()
		delete(c.timers, timer)
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		payload, err := json.Marshal(next)
		if err != nil {
			c.logger.WithError(err).Error("failed to marshal message for republish")
			return
		}
		if err := c.publisher.Publish(context.Background(), c.topic, c.key(next), payload); err != nil {
			c.logger.WithError(err).Error("failed to republish message")
		}
	})
	c.timers[timer] = struct{}{}
}

// Close останавливает незапущенные таймеры и дожидается запущенных.
func (c *Consumer[T]) Close() {
	c.mu.Lock()
	c.closed = true
	for timer := range c.timers {
		if timer.Stop() {
			c.wg.Done()
		}
		delete(c.timers, timer)
	}
	c.mu.Unlock()
	c.wg.Wait()
}
