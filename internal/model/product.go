package model

import "github.com/shopspring/decimal"

// Product is a read-only catalog entry. The pipeline never mutates products;
// they come from the menu administration module and are only looked up here.
type Product struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Category          string          `json:"category"`
	Price             decimal.Decimal `json:"price"`
	ServiceFeeExempt  bool            `json:"service_fee_exempt"`
	Paused            bool            `json:"paused"`
	Recipe            []RecipeLine    `json:"recipe,omitempty"`
	PrinterID         string          `json:"printer_id,omitempty"`
	ShouldPrint       bool            `json:"should_print"`
	HasAccompaniments bool            `json:"has_accompaniments"`
}

// RecipeLine maps a sold product to raw-material consumption.
type RecipeLine struct {
	IngredientID string          `json:"ingredient_id"`
	Qty          decimal.Decimal `json:"qty"`
}

// Complement is a priced add-on resolved by id at order time.
type Complement struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// PaymentMethod as configured by the back office. IsFiscal controls whether
// payments with it count toward the fiscal document amount.
type PaymentMethod struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	IsFiscal    bool   `json:"is_fiscal"`
	FiscalCNPJ  string `json:"fiscal_cnpj,omitempty"`
	RequiresRef bool   `json:"requires_ref,omitempty"`
}

// StockItem is the running balance of one raw material. The order pipeline
// only deducts and refunds through the stock sink; purchasing lives elsewhere.
type StockItem struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
	Unit    string          `json:"unit,omitempty"`
}
