// Package http содержит REST-слой сервиса продаж поверх chi.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/bag"
	"github.com/vladislavdragonenkov/pos/internal/service/campaign"
	"github.com/vladislavdragonenkov/pos/internal/service/receipt"
	"github.com/vladislavdragonenkov/pos/internal/service/sale"
)

// CashierTokenHeader несёт идентификационный токен кассира "<prefix>-<name>".
const CashierTokenHeader = "Token"

// Handler связывает REST-маршруты с сервисами.
type Handler struct {
	bags      bag.Service
	campaigns campaign.Directory
	sales     sale.Orchestrator
	receipts  receipt.Tracker
	logger    *log.Entry
}

// NewHandler создаёт REST-handler сервиса продаж.
func NewHandler(
	bags bag.Service,
	campaigns campaign.Directory,
	sales sale.Orchestrator,
	receipts receipt.Tracker,
	logger *log.Entry,
) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "http")
	}
	return &Handler{
		bags:      bags,
		campaigns: campaigns,
		sales:     sales,
		receipts:  receipts,
		logger:    logger,
	}
}

// Routes регистрирует маршруты сервиса.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/bags", func(r chi.Router) {
		r.Post("/items", h.addItem)
		r.Get("/", h.listBags)
		r.Route("/{bagId}", func(r chi.Router) {
			r.Get("/", h.getBag)
			r.Delete("/items", h.removeItem)
			r.Post("/clear", h.clearBag)
			r.Post("/campaign", h.applyCampaign)
			r.Delete("/campaign", h.removeCampaign)
		})
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", h.createCampaign)
		r.Get("/", h.listCampaigns)
		r.Get("/{campaignId}", h.getCampaign)
		r.Delete("/{campaignId}", h.deleteCampaign)
	})

	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.listSales)
		r.Post("/{bagId}", h.completeSale)
		r.Delete("/{saleId}/cancel", h.cancelSale)
		r.Post("/{saleId}/receipt", h.generateReceipt)
	})

	r.Get("/receipts/{requestId}", h.getReceipt)
	r.Post("/reports", h.requestReport)
}

type errorResponse struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type addItemRequest struct {
	BagID    string `json:"bagId,omitempty"`
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

type removeItemRequest struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

type applyCampaignRequest struct {
	CampaignID string `json:"campaignId"`
}

type campaignRequest struct {
	Name          string          `json:"name"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

type reportRequest struct {
	Email       string    `json:"email"`
	From        time.Time `json:"from,omitempty"`
	To          time.Time `json:"to,omitempty"`
	CashierName string    `json:"cashierName,omitempty"`
}

type bagItemResponse struct {
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type bagResponse struct {
	ID              string            `json:"id"`
	Items           []bagItemResponse `json:"items"`
	TotalPrice      decimal.Decimal   `json:"totalPrice"`
	CampaignID      string            `json:"campaignId,omitempty"`
	CampaignName    string            `json:"campaignName,omitempty"`
	DiscountedPrice *decimal.Decimal  `json:"discountedPrice,omitempty"`
}

type bagListResponse struct {
	Bags  []bagResponse `json:"bags"`
	Total int           `json:"total"`
	Page  int           `json:"page"`
	Size  int           `json:"size"`
}

type campaignResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	StartDate     time.Time       `json:"startDate"`
	EndDate       time.Time       `json:"endDate"`
	DiscountType  string          `json:"discountType"`
	DiscountValue decimal.Decimal `json:"discountValue"`
}

type saleItemResponse struct {
	Barcode   string          `json:"barcode"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	SalePrice decimal.Decimal `json:"salePrice"`
}

type saleResponse struct {
	ID              string             `json:"id"`
	CashierName     string             `json:"cashierName"`
	TotalPrice      decimal.Decimal    `json:"totalPrice"`
	DiscountedPrice *decimal.Decimal   `json:"discountedPrice,omitempty"`
	CampaignName    string             `json:"campaignName,omitempty"`
	AmountReceived  decimal.Decimal    `json:"amountReceived"`
	Change          decimal.Decimal    `json:"change"`
	PaymentMethod   string             `json:"paymentMethod"`
	SaleDate        time.Time          `json:"saleDate"`
	IsCancelled     bool               `json:"isCancelled"`
	Items           []saleItemResponse `json:"items"`
}

type receiptRequestedResponse struct {
	RequestID string `json:"requestId"`
}

type receiptStatusResponse struct {
	Status string `json:"status"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.bags.AddItem(r.Context(), req.BagID, req.Barcode, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if req.BagID == "" {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, toBagResponse(updated))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	var req removeItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.bags.RemoveItem(r.Context(), chi.URLParam(r, "bagId"), req.Barcode, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBagResponse(updated))
}

func (h *Handler) clearBag(w http.ResponseWriter, r *http.Request) {
	updated, err := h.bags.Clear(r.Context(), chi.URLParam(r, "bagId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBagResponse(updated))
}

func (h *Handler) applyCampaign(w http.ResponseWriter, r *http.Request) {
	var req applyCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.bags.ApplyCampaign(r.Context(), chi.URLParam(r, "bagId"), req.CampaignID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBagResponse(updated))
}

func (h *Handler) removeCampaign(w http.ResponseWriter, r *http.Request) {
	updated, err := h.bags.RemoveCampaign(r.Context(), chi.URLParam(r, "bagId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBagResponse(updated))
}

func (h *Handler) getBag(w http.ResponseWriter, r *http.Request) {
	found, err := h.bags.Get(r.Context(), chi.URLParam(r, "bagId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toBagResponse(found))
}

func (h *Handler) listBags(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	size := queryInt(r, "size", 20)

	bags, total, err := h.bags.List(r.Context(), page, size)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	response := bagListResponse{
		Bags:  make([]bagResponse, 0, len(bags)),
		Total: total,
		Page:  page,
		Size:  size,
	}
	for _, b := range bags {
		response.Bags = append(response.Bags, toBagResponse(b))
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.campaigns.Create(r.Context(), domain.Campaign{
		Name:          req.Name,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		DiscountType:  domain.DiscountType(req.DiscountType),
		DiscountValue: req.DiscountValue,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, toCampaignResponse(created))
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	response := make([]campaignResponse, 0, len(campaigns))
	for _, c := range campaigns {
		response = append(response, toCampaignResponse(c))
	}
	h.writeJSON(w, http.StatusOK, response)
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	found, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "campaignId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toCampaignResponse(found))
}

func (h *Handler) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Delete(r.Context(), chi.URLParam(r, "campaignId")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) completeSale(w http.ResponseWriter, r *http.Request) {
	amountParam := r.URL.Query().Get("amountReceived")
	amount := decimal.Zero
	if amountParam != "" {
		parsed, err := decimal.NewFromString(amountParam)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid amountReceived")
			return
		}
		amount = parsed
	}

	method := domain.PaymentMethod(r.URL.Query().Get("paymentMethod"))
	token := r.Header.Get(CashierTokenHeader)

	requestID, err := h.sales.CompleteSale(r.Context(), chi.URLParam(r, "bagId"), amount, method, token)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, receiptRequestedResponse{RequestID: requestID})
}

func (h *Handler) cancelSale(w http.ResponseWriter, r *http.Request) {
	if err := h.sales.CancelSale(r.Context(), chi.URLParam(r, "saleId")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) generateReceipt(w http.ResponseWriter, r *http.Request) {
	requestID, err := h.sales.GenerateReceiptByID(r.Context(), chi.URLParam(r, "saleId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, receiptRequestedResponse{RequestID: requestID})
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSaleFilter(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sales, err := h.sales.ListSales(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	response := make([]saleResponse, 0, len(sales))
	for _, s := range sales {
		response = append(response, toSaleResponse(s))
	}
	h.writeJSON(w, http.StatusOK, response)
}

// getReceipt отдаёт готовый PDF либо текущий статус генерации.
func (h *Handler) getReceipt(w http.ResponseWriter, r *http.Request) {
	record, err := h.receipts.Get(r.Context(), chi.URLParam(r, "requestId"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	if record.Status == domain.ReceiptStatusCompleted {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=receipt_%s.pdf", record.SaleID))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(record.Receipt)
		return
	}

	status := http.StatusAccepted
	if record.Status == domain.ReceiptStatusFailed {
		status = http.StatusUnprocessableEntity
	}
	h.writeJSON(w, status, receiptStatusResponse{Status: string(record.Status)})
}

func (h *Handler) requestReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	filter := domain.SaleFilter{From: req.From, To: req.To, CashierName: req.CashierName}
	if err := h.sales.RequestReport(r.Context(), req.Email, filter); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func parseSaleFilter(r *http.Request) (domain.SaleFilter, error) {
	var filter domain.SaleFilter
	query := r.URL.Query()

	if raw := query.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.SaleFilter{}, fmt.Errorf("invalid from date")
		}
		filter.From = parsed
	}
	if raw := query.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.SaleFilter{}, fmt.Errorf("invalid to date")
		}
		filter.To = parsed
	}
	filter.CashierName = query.Get("cashierName")

	return filter, nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	var value int
	if _, err := fmt.Sscanf(raw, "%d", &value); err != nil {
		return fallback
	}
	return value
}

func toBagResponse(b domain.Bag) bagResponse {
	items := make([]bagItemResponse, 0, len(b.Items))
	for _, item := range b.Items {
		items = append(items, bagItemResponse{
			Barcode:   item.Barcode,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	response := bagResponse{
		ID:           b.ID,
		Items:        items,
		TotalPrice:   b.TotalPrice,
		CampaignID:   b.CampaignID,
		CampaignName: b.CampaignName,
	}
	if b.HasCampaign() {
		discounted := b.DiscountedPrice
		response.DiscountedPrice = &discounted
	}
	return response
}

func toCampaignResponse(c domain.Campaign) campaignResponse {
	return campaignResponse{
		ID:            c.ID,
		Name:          c.Name,
		StartDate:     c.StartDate,
		EndDate:       c.EndDate,
		DiscountType:  string(c.DiscountType),
		DiscountValue: c.DiscountValue,
	}
}

func toSaleResponse(s domain.Sale) saleResponse {
	items := make([]saleItemResponse, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, saleItemResponse{
			Barcode:   item.Barcode,
			Name:      item.Name,
			Quantity:  item.Quantity,
			SalePrice: item.SalePrice,
		})
	}

	response := saleResponse{
		ID:             s.ID,
		CashierName:    s.CashierName,
		TotalPrice:     s.TotalPrice,
		CampaignName:   s.CampaignName,
		AmountReceived: s.AmountReceived,
		Change:         s.Change,
		PaymentMethod:  string(s.PaymentMethod),
		SaleDate:       s.SaleDate,
		IsCancelled:    s.IsCancelled,
		Items:          items,
	}
	if s.HasCampaign() {
		discounted := s.DiscountedPrice
		response.DiscountedPrice = &discounted
	}
	return response
}

func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsInvalidInput(err):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case domain.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrBagIsEmpty):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrSaleAlreadyCancelled), errors.Is(err, domain.ErrCampaignNotAttached):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.WithError(err).Error("request failed")
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{Message: message, Timestamp: time.Now().UTC()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.WithError(err).Error("failed to encode response")
	}
}
