// Package render превращает доменные данные в артефакты для клиента:
// PDF-чек продажи и Excel-отчёт по продажам.
package render

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const receiptDateLayout = "02.01.2006 15:04:05"

type pdfReceiptRenderer struct {
	storeName string
}

// NewPDFReceiptRenderer создаёт рендерер PDF-чеков.
func NewPDFReceiptRenderer(storeName string) domain.ReceiptRenderer {
	if storeName == "" {
		storeName = "POS"
	}
	return &pdfReceiptRenderer{storeName: storeName}
}

// Render собирает одностраничный чек: шапка, позиции, скидка и итоги оплаты.
func (r *pdfReceiptRenderer) Render(sale domain.Sale) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, r.storeName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Sale: %s", sale.ID), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Date: %s", sale.SaleDate.Format(receiptDateLayout)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Cashier: %s", sale.CashierName), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(80, 7, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(25, 7, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 7, "Sum", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range sale.Items {
		lineTotal := item.SalePrice.Mul(intToDecimal(item.Quantity))
		pdf.CellFormat(80, 6, item.Name, "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, item.SalePrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, lineTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(140, 6, "Total", "T", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, sale.TotalPrice.StringFixed(2), "T", 1, "R", false, 0, "")

	if sale.HasCampaign() {
		pdf.SetFont("Helvetica", "", 10)
		pdf.CellFormat(140, 6, fmt.Sprintf("Discount (%s)", sale.CampaignName), "", 0, "L", false, 0, "")
		discount := sale.TotalPrice.Sub(sale.DiscountedPrice)
		pdf.CellFormat(35, 6, "-"+discount.StringFixed(2), "", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(140, 6, "To pay", "", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, sale.DiscountedPrice.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(140, 6, fmt.Sprintf("Paid (%s)", sale.PaymentMethod), "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, sale.AmountReceived.StringFixed(2), "", 1, "R", false, 0, "")
	pdf.CellFormat(140, 6, "Change", "", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, sale.Change.StringFixed(2), "", 1, "R", false, 0, "")

	if sale.IsCancelled {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "*** CANCELLED ***", "", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}

var _ domain.ReceiptRenderer = (*pdfReceiptRenderer)(nil)
