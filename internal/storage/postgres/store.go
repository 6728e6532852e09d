// Package postgres содержит PostgreSQL-реализацию хранилища продаж.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
)

// Store оборачивает SQL-подключение к PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open открывает подключение к PostgreSQL и проверяет доступность базы.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// DB возвращает raw SQL DB, когда нужен низкоуровневый доступ.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность подключения.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("postgres store is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema создаёт таблицы продаж, если их ещё нет.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sales (
			id               TEXT PRIMARY KEY,
			cashier_name     TEXT NOT NULL,
			total_price      NUMERIC(12,2) NOT NULL,
			discounted_price NUMERIC(12,2) NOT NULL DEFAULT 0,
			campaign_id      TEXT NOT NULL DEFAULT '',
			campaign_name    TEXT NOT NULL DEFAULT '',
			discount_type    TEXT NOT NULL DEFAULT '',
			discount_value   NUMERIC(12,2) NOT NULL DEFAULT 0,
			amount_received  NUMERIC(12,2) NOT NULL,
			change           NUMERIC(12,2) NOT NULL,
			payment_method   TEXT NOT NULL,
			sale_date        TIMESTAMPTZ NOT NULL,
			is_cancelled     BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS sale_items (
			id         BIGSERIAL PRIMARY KEY,
			sale_id    TEXT NOT NULL REFERENCES sales (id) ON DELETE CASCADE,
			barcode    TEXT NOT NULL,
			name       TEXT NOT NULL,
			quantity   INTEGER NOT NULL,
			sale_price NUMERIC(12,2) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_sale_date ON sales (sale_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_cashier_name ON sales (cashier_name)`,
		`CREATE INDEX IF NOT EXISTS idx_sale_items_sale_id ON sale_items (sale_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Close закрывает подключение к БД.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
