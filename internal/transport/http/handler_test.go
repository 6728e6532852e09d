package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/bag"
	"github.com/vladislavdragonenkov/pos/internal/service/campaign"
	"github.com/vladislavdragonenkov/pos/internal/service/receipt"
	"github.com/vladislavdragonenkov/pos/internal/service/sale"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
)

type testCatalog struct {
	products map[string]domain.Product
}

func (c *testCatalog) GetByBarcode(_ context.Context, barcode string) (domain.Product, error) {
	product, ok := c.products[barcode]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (c *testCatalog) AdjustStock(_ context.Context, _ string, _ int) error { return nil }

type testPublisher struct{}

func (testPublisher) Publish(_ context.Context, _, _ string, _ []byte) error { return nil }

type env struct {
	server   *httptest.Server
	tracker  receipt.Tracker
	campaign campaign.Directory
}

func newEnv(t *testing.T) *env {
	t.Helper()

	catalog := &testCatalog{products: map[string]domain.Product{
		"123": {Barcode: "123", Name: "milk", Price: decimal.RequireFromString("2.50"), Stock: 10},
	}}

	bagRepo := memory.NewBagRepository()
	campaignRepo := memory.NewCampaignRepository()
	saleRepo := memory.NewSaleRepository()
	receiptRepo := memory.NewReceiptRepository()

	bags := bag.NewService(bagRepo, campaignRepo, catalog, 30*time.Minute, nil)
	campaigns := campaign.NewDirectory(campaignRepo, nil)
	sales := sale.NewOrchestratorWithoutMetrics(bagRepo, saleRepo, testPublisher{}, nil)
	tracker := receipt.NewTracker(receiptRepo, 5*time.Minute, nil)

	router := chi.NewRouter()
	NewHandler(bags, campaigns, sales, tracker, nil).Routes(router)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &env{server: server, tracker: tracker, campaign: campaigns}
}

func (e *env) do(t *testing.T, method, path string, body any, headers map[string]string) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var value T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&value))
	return value
}

func (e *env) createBag(t *testing.T, quantity int) bagResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/bags/items", addItemRequest{Barcode: "123", Quantity: quantity}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decodeJSON[bagResponse](t, resp)
}

func TestBagEndpoints(t *testing.T) {
	e := newEnv(t)

	created := e.createBag(t, 2)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.TotalPrice.Equal(decimal.RequireFromString("5.00")))

	// Добавление в существующую корзину.
	resp := e.do(t, http.MethodPost, "/bags/items", addItemRequest{BagID: created.ID, Barcode: "123", Quantity: 1}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeJSON[bagResponse](t, resp)
	assert.Equal(t, 3, updated.Items[0].Quantity)

	// Снятие части количества.
	resp = e.do(t, http.MethodDelete, "/bags/"+created.ID+"/items", removeItemRequest{Barcode: "123", Quantity: 1}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated = decodeJSON[bagResponse](t, resp)
	assert.Equal(t, 2, updated.Items[0].Quantity)

	// Чтение корзины.
	resp = e.do(t, http.MethodGet, "/bags/"+created.ID, nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Очистка.
	resp = e.do(t, http.MethodPost, "/bags/"+created.ID+"/clear", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated = decodeJSON[bagResponse](t, resp)
	assert.Empty(t, updated.Items)

	// Неизвестная корзина — 404 с конвертом ошибки.
	resp = e.do(t, http.MethodGet, "/bags/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	envelope := decodeJSON[errorResponse](t, resp)
	assert.NotEmpty(t, envelope.Message)
	assert.False(t, envelope.Timestamp.IsZero())
}

func TestBagValidationErrors(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/bags/items", addItemRequest{Barcode: "", Quantity: 1}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/bags/items", addItemRequest{Barcode: "123", Quantity: 100}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	envelope := decodeJSON[errorResponse](t, resp)
	assert.Contains(t, envelope.Message, "stock")
}

func TestCampaignEndpoints(t *testing.T) {
	e := newEnv(t)

	now := time.Now().UTC()
	resp := e.do(t, http.MethodPost, "/campaigns/", campaignRequest{
		Name:          "summer sale",
		StartDate:     now.Add(-time.Hour),
		EndDate:       now.Add(time.Hour),
		DiscountType:  "PERCENTAGE",
		DiscountValue: decimal.RequireFromString("10"),
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeJSON[campaignResponse](t, resp)
	assert.NotEmpty(t, created.ID)

	// Применение кампании к корзине.
	bagCreated := e.createBag(t, 4)
	resp = e.do(t, http.MethodPost, "/bags/"+bagCreated.ID+"/campaign", applyCampaignRequest{CampaignID: created.ID}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	discounted := decodeJSON[bagResponse](t, resp)
	require.NotNil(t, discounted.DiscountedPrice)
	assert.True(t, discounted.DiscountedPrice.Equal(decimal.RequireFromString("9.00")))

	// Снятие кампании.
	resp = e.do(t, http.MethodDelete, "/bags/"+bagCreated.ID+"/campaign", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// Повторное снятие — конфликт.
	resp = e.do(t, http.MethodDelete, "/bags/"+bagCreated.ID+"/campaign", nil, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// Удаление кампании скрывает её из листинга.
	resp = e.do(t, http.MethodDelete, "/campaigns/"+created.ID, nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/campaigns/", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	listed := decodeJSON[[]campaignResponse](t, resp)
	assert.Empty(t, listed)
}

func TestSaleFlow(t *testing.T) {
	e := newEnv(t)

	created := e.createBag(t, 2) // 5.00

	// Оформление без токена кассира отклоняется.
	resp := e.do(t, http.MethodPost, "/sales/"+created.ID+"?paymentMethod=CASH&amountReceived=10.00", nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	headers := map[string]string{CashierTokenHeader: "cashier-alice"}
	resp = e.do(t, http.MethodPost, "/sales/"+created.ID+"?paymentMethod=CASH&amountReceived=10.00", nil, headers)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	completed := decodeJSON[receiptRequestedResponse](t, resp)
	assert.NotEmpty(t, completed.RequestID)

	// Листинг продаж.
	resp = e.do(t, http.MethodGet, "/sales/?cashierName=alice", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sales := decodeJSON[[]saleResponse](t, resp)
	require.Len(t, sales, 1)
	assert.Equal(t, "alice", sales[0].CashierName)
	assert.True(t, sales[0].Change.Equal(decimal.RequireFromString("5.00")))

	saleID := sales[0].ID

	// Повторный запрос чека по продаже.
	resp = e.do(t, http.MethodPost, "/sales/"+saleID+"/receipt", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	regenerated := decodeJSON[receiptRequestedResponse](t, resp)
	assert.NotEqual(t, completed.RequestID, regenerated.RequestID)

	// Отмена продажи.
	resp = e.do(t, http.MethodDelete, "/sales/"+saleID+"/cancel", nil, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodDelete, "/sales/"+saleID+"/cancel", nil, nil)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestReceiptEndpoint(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	// Неизвестный запрос — 404.
	resp := e.do(t, http.MethodGet, "/receipts/missing", nil, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	// PENDING — 202 со статусом.
	require.NoError(t, e.tracker.Init(ctx, "req-1", "sale-1"))
	resp = e.do(t, http.MethodGet, "/receipts/req-1", nil, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	status := decodeJSON[receiptStatusResponse](t, resp)
	assert.Equal(t, "PENDING", status.Status)

	// COMPLETED — PDF с именем файла по продаже.
	require.NoError(t, e.tracker.Update(ctx, "req-1", "sale-1", domain.ReceiptStatusCompleted, []byte("%PDF-1.4")))
	resp = e.do(t, http.MethodGet, "/receipts/req-1", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=receipt_sale-1.pdf`, resp.Header.Get("Content-Disposition"))
	resp.Body.Close()

	// FAILED — 422 со статусом.
	require.NoError(t, e.tracker.Update(ctx, "req-2", "sale-2", domain.ReceiptStatusFailed, nil))
	resp = e.do(t, http.MethodGet, "/receipts/req-2", nil, nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	status = decodeJSON[receiptStatusResponse](t, resp)
	assert.Equal(t, "FAILED", status.Status)
}

func TestReportEndpoint(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/reports", reportRequest{Email: "manager@example.com"}, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodPost, "/reports", reportRequest{}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	from := time.Now().UTC()
	to := from.Add(-time.Hour)
	resp = e.do(t, http.MethodPost, "/reports", reportRequest{Email: "manager@example.com", From: from, To: to}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestListSales_BadDates(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/sales/?from="+url.QueryEscape("not-a-date"), nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	from := time.Now().UTC().Format(time.RFC3339)
	to := time.Now().UTC().Add(-time.Hour).Format(time.RFC3339)
	path := fmt.Sprintf("/sales/?from=%s&to=%s", url.QueryEscape(from), url.QueryEscape(to))
	resp = e.do(t, http.MethodGet, path, nil, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
