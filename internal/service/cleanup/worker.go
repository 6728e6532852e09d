// Package cleanup содержит воркер зачистки просроченных TTL-записей
// для in-memory хранилищ. Redis-хранилища в зачистке не нуждаются.
package cleanup

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

const (
	defaultCleanupInterval  = time.Minute
	defaultCleanupBatchSize = 500
)

var (
	cleanupRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pos_ttl_cleanup_runs_total",
		Help: "Total number of TTL cleanup runs grouped by result.",
	}, []string{"result"})
	cleanupDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pos_ttl_cleanup_deleted_total",
		Help: "Total number of deleted expired records.",
	})
	cleanupLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pos_ttl_cleanup_last_deleted",
		Help: "Number of deleted records during the last cleanup run.",
	})
)

// ExpiringStore умеет удалять записи с истёкшим TTL порциями.
type ExpiringStore interface {
	DeleteExpired(before time.Time, limit int) (int, error)
}

// Options задаёт параметры воркера зачистки.
type Options struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger для воркера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задаёт интервал между циклами зачистки.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер порции одного удаления.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// Worker периодически удаляет просроченные записи из переданных хранилищ.
type Worker struct {
	stores    []ExpiringStore
	logger    *log.Entry
	interval  time.Duration
	batchSize int
}

// NewWorker создаёт воркер зачистки.
func NewWorker(stores []ExpiringStore, options ...Option) *Worker {
	opts := Options{
		Interval:  defaultCleanupInterval,
		BatchSize: defaultCleanupBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "ttl-cleanup-worker")
	}

	if opts.Interval <= 0 {
		opts.Interval = defaultCleanupInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultCleanupBatchSize
	}

	return &Worker{
		stores:    stores,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
	}
}

// Run запускает периодическую зачистку до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if len(w.stores) == 0 {
		w.logger.Warn("ttl cleanup worker is disabled: no stores")
		return
	}

	w.cleanup(ctx, time.Now().UTC())

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx, time.Now().UTC())
		}
	}
}

func (w *Worker) cleanup(ctx context.Context, before time.Time) {
	deleted, err := w.DeleteExpired(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		cleanupRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("ttl cleanup run failed")
		return
	}

	cleanupRunsTotal.WithLabelValues("ok").Inc()
	cleanupLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithField("deleted", deleted).Info("ttl cleanup completed")
	}
}

// DeleteExpired удаляет записи с истёкшим TTL порциями batchSize по всем хранилищам.
func (w *Worker) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if before.IsZero() {
		before = time.Now().UTC()
	}

	totalDeleted := 0
	for _, store := range w.stores {
		for {
			if err := ctx.Err(); err != nil {
				return totalDeleted, err
			}

			deleted, err := store.DeleteExpired(before, w.batchSize)
			if err != nil {
				return totalDeleted, err
			}

			totalDeleted += deleted
			if deleted > 0 {
				cleanupDeletedTotal.Add(float64(deleted))
			}

			if deleted < w.batchSize {
				break
			}
		}
	}

	return totalDeleted, nil
}
