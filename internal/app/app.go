// Package app собирает сервис продаж: хранилища, шину сообщений,
// сервисный слой и HTTP-серверы.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/catalog"
	"github.com/vladislavdragonenkov/pos/internal/consumer"
	"github.com/vladislavdragonenkov/pos/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/pos/internal/health"
	"github.com/vladislavdragonenkov/pos/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/pos/internal/notify"
	"github.com/vladislavdragonenkov/pos/internal/render"
	"github.com/vladislavdragonenkov/pos/internal/service/bag"
	"github.com/vladislavdragonenkov/pos/internal/service/campaign"
	"github.com/vladislavdragonenkov/pos/internal/service/cleanup"
	"github.com/vladislavdragonenkov/pos/internal/service/receipt"
	"github.com/vladislavdragonenkov/pos/internal/service/sale"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
	"github.com/vladislavdragonenkov/pos/internal/storage/postgres"
	"github.com/vladislavdragonenkov/pos/internal/storage/redis"
	transport "github.com/vladislavdragonenkov/pos/internal/transport/http"
	"github.com/vladislavdragonenkov/pos/internal/version"
)

const shutdownTimeout = 5 * time.Second

// closer откладывает закрытие внешних ресурсов до остановки приложения.
type closer struct {
	name  string
	close func() error
}

// Run запускает сервис и блокируется до отмены ctx или фатальной ошибки.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")
	healthHandler := healthcheck.NewHandler(version.String())

	var closers []closer

	// Хранилища: Redis и Postgres подключаются при наличии реквизитов,
	// иначе сервис работает на in-memory хранилищах с TTL-воркером.
	var bagRepo domain.BagRepository
	var receiptRepo domain.ReceiptStatusRepository
	var expiring []cleanup.ExpiringStore

	if cfg.Redis.URL != "" {
		store, err := redis.Open(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		closers = append(closers, closer{"redis", store.Close})
		healthHandler.RegisterChecker("redis", pingChecker("redis", store.Ping))
		bagRepo = redis.NewBagRepository(store)
		receiptRepo = redis.NewReceiptRepository(store)
		logger.Info("redis storage initialized")
	} else {
		bagRepo = memory.NewBagRepository()
		receiptRepo = memory.NewReceiptRepository()
		for _, repo := range []any{bagRepo, receiptRepo} {
			if store, ok := repo.(cleanup.ExpiringStore); ok {
				expiring = append(expiring, store)
			}
		}
		logger.Info("using in-memory bag and receipt storage")
	}

	var saleRepo domain.SaleRepository
	if cfg.Postgres.DSN != "" {
		store, err := postgres.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return err
		}
		closers = append(closers, closer{"postgres", store.Close})
		if err := store.EnsureSchema(ctx); err != nil {
			closeAll(closers, logger)
			return err
		}
		healthHandler.RegisterChecker("postgres", pingChecker("postgres", store.Ping))
		saleRepo = postgres.NewSaleRepository(store)
		logger.Info("postgres storage initialized")
	} else {
		saleRepo = memory.NewSaleRepository()
		logger.Info("using in-memory sale storage")
	}

	campaignRepo := memory.NewCampaignRepository()
	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, logger.WithField("component", "catalog"))

	// Шина сообщений: без брокеров публикации отбрасываются.
	var publisher domain.MessagePublisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		p, err := kafka.NewProducer(cfg.Kafka.Brokers)
		if err != nil {
			closeAll(closers, logger)
			return err
		}
		producer = p
		publisher = p
		closers = append(closers, closer{"kafka producer", p.Close})
		logger.WithField("brokers", cfg.Kafka.Brokers).Info("kafka producer initialized")
	} else {
		publisher = &discardPublisher{logger: logger.WithField("component", "discard-publisher")}
		logger.Warn("kafka brokers are not configured, pipeline messages will be dropped")
	}

	// Сервисный слой.
	bagService := bag.NewService(bagRepo, campaignRepo, catalogClient, cfg.Pipeline.BagTTL, nil)
	campaignDirectory := campaign.NewDirectory(campaignRepo, nil)
	receiptTracker := receipt.NewTracker(receiptRepo, cfg.Pipeline.ReceiptTTL, nil)
	saleOrchestrator := sale.NewOrchestrator(bagRepo, saleRepo, publisher, nil)

	notifier := notify.NewEmailNotifier(notify.Config{
		Host:      cfg.SMTP.Host,
		Port:      cfg.SMTP.Port,
		Username:  cfg.SMTP.Username,
		Password:  cfg.SMTP.Password,
		FromName:  cfg.SMTP.FromName,
		FromEmail: cfg.SMTP.FromEmail,
	}, nil)

	// Консьюмеры пайплайна запускаются только при настроенном Kafka.
	if producer != nil {
		stockConsumer := consumer.NewStockConsumer(
			catalogClient, publisher, cfg.Pipeline.MaxRetries, cfg.Pipeline.RetryDelay, nil)
		receiptConsumer := consumer.NewReceiptConsumer(
			render.NewPDFReceiptRenderer(cfg.Store.Name), receiptTracker, notifier, cfg.SMTP.AlertEmail,
			publisher, cfg.Pipeline.MaxRetries, cfg.Pipeline.RetryDelay, nil)
		reportConsumer := consumer.NewReportConsumer(
			saleRepo, render.NewExcelReportRenderer(), notifier,
			publisher, cfg.Pipeline.MaxRetries, cfg.Pipeline.RetryDelay, nil)
		closers = append(closers,
			closer{"stock consumer timers", func() error { stockConsumer.Close(); return nil }},
			closer{"receipt consumer timers", func() error { receiptConsumer.Close(); return nil }},
			closer{"report consumer timers", func() error { reportConsumer.Close(); return nil }},
		)

		groups := []struct {
			suffix  string
			topic   string
			handler kafka.MessageHandler
		}{
			{"stock", kafka.TopicStockUpdates, stockConsumer.KafkaHandler()},
			{"receipt", kafka.TopicReceiptRequests, receiptConsumer.KafkaHandler()},
			{"report", kafka.TopicReportRequests, reportConsumer.KafkaHandler()},
			{"sale-events", kafka.TopicSaleEvents, func(ctx context.Context, message *sarama.ConsumerMessage) error {
				return receiptTracker.HandleSaleEvent(ctx, message.Value)
			}},
		}
		for _, g := range groups {
			group, err := kafka.NewConsumerGroup(
				cfg.Kafka.Brokers, cfg.Kafka.GroupID+"-"+g.suffix, []string{g.topic}, g.handler)
			if err != nil {
				closeAll(closers, logger)
				return err
			}
			if err := group.Start(ctx); err != nil {
				closeAll(closers, logger)
				return err
			}
			closers = append(closers, closer{"kafka consumer " + g.suffix, group.Stop})
		}
	}

	// TTL-воркер нужен только in-memory хранилищам: Redis истекает ключи сам.
	if len(expiring) > 0 {
		worker := cleanup.NewWorker(expiring, cleanup.WithLogger(logger.WithField("component", "ttl-cleanup-worker")))
		go worker.Run(ctx)
	}

	// REST API.
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	apiHandler := transport.NewHandler(bagService, campaignDirectory, saleOrchestrator, receiptTracker, nil)
	apiHandler.Routes(router)

	metricsSrv := startMetricsServer(ctx, cfg.HTTP.MetricsAddr, logger, healthHandler)

	apiSrv := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("REST API слушает %s", cfg.HTTP.Addr)
		errCh <- apiSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем сервис")
		shutdownHTTP(apiSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		closeAll(closers, logger)
		return ctx.Err()
	case err := <-errCh:
		shutdownHTTP(metricsSrv, logger)
		closeAll(closers, logger)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// discardPublisher используется при запуске без Kafka: сообщения пайплайна
// отбрасываются, REST-часть сервиса остаётся рабочей.
type discardPublisher struct {
	logger *log.Entry
}

func (p *discardPublisher) Publish(_ context.Context, topic, key string, _ []byte) error {
	p.logger.WithFields(log.Fields{"topic": topic, "key": key}).Debug("kafka disabled, message dropped")
	return nil
}

var _ domain.MessagePublisher = (*discardPublisher)(nil)

// pingChecker оборачивает Ping хранилища в health-проверку с таймаутом.
func pingChecker(name string, ping func(ctx context.Context) error) healthcheck.Checker {
	return healthcheck.NewSimpleChecker(name, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return ping(ctx)
	})
}

// closeAll закрывает внешние ресурсы в обратном порядке создания.
func closeAll(closers []closer, logger *log.Entry) {
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].close(); err != nil {
			logger.WithError(err).Warnf("failed to close %s", closers[i].name)
		}
	}
}

// startMetricsServer запускает служебный HTTP-сервер: метрики и health-пробы.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
