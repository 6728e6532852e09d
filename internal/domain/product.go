package domain

import "github.com/shopspring/decimal"

// Product — проекция товара из каталога, получаемая синхронным запросом.
type Product struct {
	Name    string          `json:"name"`
	Barcode string          `json:"barcode"`
	Price   decimal.Decimal `json:"price"`
	Stock   int             `json:"stock"`
	Deleted bool            `json:"deleted"`
}
