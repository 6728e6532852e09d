// Package catalog содержит HTTP-клиент сервиса каталога товаров.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const defaultRequestTimeout = 5 * time.Second

// Client — HTTP-клиент каталога, реализует domain.ProductCatalog.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// NewClient создаёт клиент каталога по базовому URL.
func NewClient(baseURL string, logger *log.Entry) *Client {
	if logger == nil {
		logger = log.New().WithField("component", "catalog")
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     logger,
	}
}

// GetByBarcode возвращает товар каталога или ErrProductNotFound.
func (c *Client) GetByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	endpoint := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.Product{}, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Product{}, fmt.Errorf("call catalog: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return domain.Product{}, domain.ErrProductNotFound
	default:
		return domain.Product{}, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var product domain.Product
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return domain.Product{}, fmt.Errorf("decode catalog response: %w", err)
	}
	return product, nil
}

// AdjustStock применяет дельту к остатку товара. Отрицательная дельта
// списывает остаток при продаже, положительная возвращает при отмене.
func (c *Client) AdjustStock(ctx context.Context, barcode string, delta int) error {
	body, err := json.Marshal(map[string]int{"delta": delta})
	if err != nil {
		return fmt.Errorf("marshal stock adjustment: %w", err)
	}

	endpoint := fmt.Sprintf("%s/products/%s/stock", c.baseURL, url.PathEscape(barcode))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call catalog: %w", err)
	}
	defer drainAndClose(resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return domain.ErrProductNotFound
	default:
		return fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}

var _ domain.ProductCatalog = (*Client)(nil)
