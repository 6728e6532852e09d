package render

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const reportSheet = "Sales"

type excelReportRenderer struct{}

// NewExcelReportRenderer создаёт рендерер сводных отчётов в формате xlsx.
func NewExcelReportRenderer() domain.ReportRenderer {
	return &excelReportRenderer{}
}

// Render выгружает продажи построчно и завершает лист итоговой строкой.
func (r *excelReportRenderer) Render(sales []domain.Sale) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	headers := []string{"Sale ID", "Date", "Cashier", "Payment", "Total", "Discounted", "Paid", "Change", "Campaign", "Cancelled"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(reportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	total := decimal.Zero
	for i, sale := range sales {
		row := i + 2
		values := []any{
			sale.ID,
			sale.SaleDate.Format(receiptDateLayout),
			sale.CashierName,
			string(sale.PaymentMethod),
			decimalToFloat(sale.TotalPrice),
			decimalToFloat(sale.DiscountedPrice),
			decimalToFloat(sale.AmountReceived),
			decimalToFloat(sale.Change),
			sale.CampaignName,
			sale.IsCancelled,
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				return nil, fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(reportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("write sale row: %w", err)
			}
		}

		// Отменённые продажи не входят в итоговую выручку.
		if !sale.IsCancelled {
			total = total.Add(sale.PriceToPay())
		}
	}

	totalRow := len(sales) + 3
	labelCell, err := excelize.CoordinatesToCellName(1, totalRow)
	if err != nil {
		return nil, fmt.Errorf("total label cell name: %w", err)
	}
	if err := f.SetCellValue(reportSheet, labelCell, "Revenue"); err != nil {
		return nil, fmt.Errorf("write total label: %w", err)
	}
	valueCell, err := excelize.CoordinatesToCellName(5, totalRow)
	if err != nil {
		return nil, fmt.Errorf("total value cell name: %w", err)
	}
	if err := f.SetCellValue(reportSheet, valueCell, decimalToFloat(total)); err != nil {
		return nil, fmt.Errorf("write total value: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render report xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func decimalToFloat(d decimal.Decimal) float64 {
	value, _ := d.Float64()
	return value
}

func intToDecimal(v int) decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}

var _ domain.ReportRenderer = (*excelReportRenderer)(nil)
