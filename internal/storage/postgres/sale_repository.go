package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const opTimeout = 5 * time.Second

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository создаёт PostgreSQL-реализацию SaleRepository.
func NewSaleRepository(store *Store) domain.SaleRepository {
	return &saleRepository{db: store.DB()}
}

// Create сохраняет продажу вместе с позициями в одной транзакции.
func (r *saleRepository) Create(ctx context.Context, sale domain.Sale) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(opCtx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(opCtx, `
		INSERT INTO sales (
			id, cashier_name, total_price, discounted_price,
			campaign_id, campaign_name, discount_type, discount_value,
			amount_received, change, payment_method, sale_date, is_cancelled
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		sale.ID, sale.CashierName, sale.TotalPrice.String(), sale.DiscountedPrice.String(),
		sale.CampaignID, sale.CampaignName, string(sale.DiscountType), sale.DiscountValue.String(),
		sale.AmountReceived.String(), sale.Change.String(), string(sale.PaymentMethod),
		sale.SaleDate, sale.IsCancelled,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sale %s already exists", sale.ID)
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range sale.Items {
		if _, err = tx.ExecContext(opCtx, `
			INSERT INTO sale_items (sale_id, barcode, name, quantity, sale_price)
			VALUES ($1,$2,$3,$4,$5)
		`,
			sale.ID, item.Barcode, item.Name, item.Quantity, item.SalePrice.String(),
		); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create sale: %w", err)
	}

	return nil
}

func (r *saleRepository) Get(ctx context.Context, id string) (domain.Sale, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(opCtx, `
		SELECT id, cashier_name, total_price, discounted_price,
		       campaign_id, campaign_name, discount_type, discount_value,
		       amount_received, change, payment_method, sale_date, is_cancelled
		FROM sales
		WHERE id = $1
	`, id)

	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sale{}, domain.ErrSaleNotFound
		}
		return domain.Sale{}, fmt.Errorf("select sale: %w", err)
	}

	items, err := r.loadItems(opCtx, sale.ID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items

	return sale, nil
}

// List возвращает продажи по фильтру дат и, опционально, имени кассира.
func (r *saleRepository) List(ctx context.Context, filter domain.SaleFilter) ([]domain.Sale, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `
		SELECT id, cashier_name, total_price, discounted_price,
		       campaign_id, campaign_name, discount_type, discount_value,
		       amount_received, change, payment_method, sale_date, is_cancelled
		FROM sales
		WHERE 1=1
	`
	args := make([]any, 0, 3)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += fmt.Sprintf(" AND sale_date >= $%d", len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += fmt.Sprintf(" AND sale_date <= $%d", len(args))
	}
	if filter.CashierName != "" {
		args = append(args, filter.CashierName)
		query += fmt.Sprintf(" AND cashier_name = $%d", len(args))
	}
	query += " ORDER BY sale_date ASC, id ASC"

	rows, err := r.db.QueryContext(opCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	defer rows.Close()

	sales := make([]domain.Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sale row: %w", err)
		}
		items, err := r.loadItems(opCtx, sale.ID)
		if err != nil {
			return nil, err
		}
		sale.Items = items
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale rows: %w", err)
	}

	return sales, nil
}

// Cancel помечает продажу отменённой. Условие на is_cancelled вместе с
// блокировкой строки сериализует конкурирующие отмены: повторная отмена
// не находит строку и получает ErrSaleAlreadyCancelled.
func (r *saleRepository) Cancel(ctx context.Context, id string) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `
		UPDATE sales
		SET is_cancelled = TRUE
		WHERE id = $1 AND is_cancelled = FALSE
	`, id)
	if err != nil {
		return fmt.Errorf("cancel sale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(opCtx, `
			SELECT EXISTS (SELECT 1 FROM sales WHERE id = $1)
		`, id).Scan(&exists); err != nil {
			return fmt.Errorf("check sale existence: %w", err)
		}
		if !exists {
			return domain.ErrSaleNotFound
		}
		return domain.ErrSaleAlreadyCancelled
	}

	return nil
}

func (r *saleRepository) loadItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT barcode, name, quantity, sale_price
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY id ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0)
	for rows.Next() {
		var (
			item  domain.SaleItem
			price string
		)
		if err := rows.Scan(&item.Barcode, &item.Name, &item.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		if item.SalePrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse sale price: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale items: %w", err)
	}

	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanSale читает строку таблицы sales; NUMERIC-колонки приходят строками
// и разбираются в decimal без потери точности.
func scanSale(row rowScanner) (domain.Sale, error) {
	var (
		sale           domain.Sale
		totalPrice     string
		discounted     string
		discountType   string
		discountValue  string
		amountReceived string
		change         string
		paymentMethod  string
	)

	if err := row.Scan(
		&sale.ID, &sale.CashierName, &totalPrice, &discounted,
		&sale.CampaignID, &sale.CampaignName, &discountType, &discountValue,
		&amountReceived, &change, &paymentMethod, &sale.SaleDate, &sale.IsCancelled,
	); err != nil {
		return domain.Sale{}, err
	}

	sale.DiscountType = domain.DiscountType(discountType)
	sale.PaymentMethod = domain.PaymentMethod(paymentMethod)

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&sale.TotalPrice, totalPrice},
		{&sale.DiscountedPrice, discounted},
		{&sale.DiscountValue, discountValue},
		{&sale.AmountReceived, amountReceived},
		{&sale.Change, change},
	}
	for _, f := range fields {
		value, err := decimal.NewFromString(f.src)
		if err != nil {
			return domain.Sale{}, fmt.Errorf("parse numeric column: %w", err)
		}
		*f.dst = value
	}

	return sale, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.SaleRepository = (*saleRepository)(nil)
