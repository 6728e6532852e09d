package app

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config описывает настройки запуска сервиса продаж.
type Config struct {
	HTTP     HTTPConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Postgres PostgresConfig
	Catalog  CatalogConfig
	Pipeline PipelineConfig
	SMTP     SMTPConfig
	Store    StoreConfig
}

// HTTPConfig задаёт адреса REST API и служебного HTTP-сервера.
type HTTPConfig struct {
	Addr        string
	MetricsAddr string
}

// KafkaConfig задаёт подключение к шине сообщений.
// Пустой список брокеров отключает пайплайн: REST-часть остаётся рабочей,
// сообщения логируются и отбрасываются.
type KafkaConfig struct {
	Brokers []string
	GroupID string
}

// Enabled сообщает, настроен ли Kafka.
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// RedisConfig задаёт подключение к Redis для корзин и статусов чеков.
// Пустой URL переключает сервис на in-memory хранилища.
type RedisConfig struct {
	URL string
}

// PostgresConfig задаёт подключение к Postgres для продаж.
// Пустой DSN переключает сервис на in-memory хранилище.
type PostgresConfig struct {
	DSN string
}

// CatalogConfig задаёт адрес внешнего сервиса каталога товаров.
type CatalogConfig struct {
	BaseURL string
}

// PipelineConfig задаёт retry-политику консьюмеров и TTL записей.
type PipelineConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	BagTTL     time.Duration
	ReceiptTTL time.Duration
}

// SMTPConfig задаёт почтовый сервер для отчётов и алертов.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	FromName   string
	FromEmail  string
	AlertEmail string
}

// StoreConfig задаёт реквизиты магазина для печатных форм.
type StoreConfig struct {
	Name string
}

// Load читает конфигурацию из .env-файла и переменных окружения.
func Load() Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	// Отсутствие .env-файла не ошибка: конфигурация придёт из окружения.
	_ = viper.ReadInConfig()

	viper.SetDefault("POS_HTTP_ADDR", ":8080")
	viper.SetDefault("POS_METRICS_ADDR", ":9090")
	viper.SetDefault("POS_KAFKA_BROKERS", "")
	viper.SetDefault("POS_KAFKA_GROUP_ID", "pos-sale-service")
	viper.SetDefault("POS_REDIS_URL", "")
	viper.SetDefault("POS_POSTGRES_DSN", "")
	viper.SetDefault("POS_CATALOG_URL", "http://localhost:8081")
	viper.SetDefault("POS_MAX_RETRIES", 3)
	viper.SetDefault("POS_RETRY_DELAY_SECONDS", 5)
	viper.SetDefault("POS_BAG_TTL_SECONDS", 1800)
	viper.SetDefault("POS_RECEIPT_TTL_SECONDS", 300)
	viper.SetDefault("POS_SMTP_HOST", "localhost")
	viper.SetDefault("POS_SMTP_PORT", 587)
	viper.SetDefault("POS_SMTP_USERNAME", "")
	viper.SetDefault("POS_SMTP_PASSWORD", "")
	viper.SetDefault("POS_SMTP_FROM_NAME", "POS")
	viper.SetDefault("POS_SMTP_FROM_EMAIL", "pos@localhost")
	viper.SetDefault("POS_ALERT_EMAIL", "")
	viper.SetDefault("POS_STORE_NAME", "POS")

	return Config{
		HTTP: HTTPConfig{
			Addr:        viper.GetString("POS_HTTP_ADDR"),
			MetricsAddr: viper.GetString("POS_METRICS_ADDR"),
		},
		Kafka: KafkaConfig{
			Brokers: splitBrokers(viper.GetString("POS_KAFKA_BROKERS")),
			GroupID: viper.GetString("POS_KAFKA_GROUP_ID"),
		},
		Redis: RedisConfig{
			URL: viper.GetString("POS_REDIS_URL"),
		},
		Postgres: PostgresConfig{
			DSN: viper.GetString("POS_POSTGRES_DSN"),
		},
		Catalog: CatalogConfig{
			BaseURL: viper.GetString("POS_CATALOG_URL"),
		},
		Pipeline: PipelineConfig{
			MaxRetries: viper.GetInt("POS_MAX_RETRIES"),
			RetryDelay: time.Duration(viper.GetInt("POS_RETRY_DELAY_SECONDS")) * time.Second,
			BagTTL:     time.Duration(viper.GetInt("POS_BAG_TTL_SECONDS")) * time.Second,
			ReceiptTTL: time.Duration(viper.GetInt("POS_RECEIPT_TTL_SECONDS")) * time.Second,
		},
		SMTP: SMTPConfig{
			Host:       viper.GetString("POS_SMTP_HOST"),
			Port:       viper.GetInt("POS_SMTP_PORT"),
			Username:   viper.GetString("POS_SMTP_USERNAME"),
			Password:   viper.GetString("POS_SMTP_PASSWORD"),
			FromName:   viper.GetString("POS_SMTP_FROM_NAME"),
			FromEmail:  viper.GetString("POS_SMTP_FROM_EMAIL"),
			AlertEmail: viper.GetString("POS_ALERT_EMAIL"),
		},
		Store: StoreConfig{
			Name: viper.GetString("POS_STORE_NAME"),
		},
	}
}

func splitBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}
