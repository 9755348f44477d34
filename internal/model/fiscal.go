package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fiscal pool entry origins.
const (
	OriginRestaurant      = "restaurant"
	OriginReception       = "reception"
	OriginReceptionCharge = "reception_charge"
)

// Fiscal pool statuses. pending → emitted | error | ignored;
// error → emitted | ignored (retry); emitted and ignored are terminal.
const (
	FiscalPending = "pending"
	FiscalEmitted = "emitted"
	FiscalError   = "error"
	FiscalIgnored = "ignored"
)

// FiscalPoolEntry is one settled sale awaiting tax-authority emission.
// The (Origin, OriginalID) pair is unique across pending|emitted entries,
// which makes re-close attempts idempotent.
type FiscalPoolEntry struct {
	ID             uuid.UUID       `json:"id"`
	Origin         string          `json:"origin"`
	OriginalID     string          `json:"original_id"`
	ClosedAt       time.Time       `json:"closed_at"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Items          []OrderItem     `json:"items"`
	PaymentMethods []FiscalPayment `json:"payment_methods"`
	CustomerInfo   CustomerInfo    `json:"customer_info"`
	Status         string          `json:"status"`
	FiscalDocUUID  string          `json:"fiscal_doc_uuid,omitempty"`
	User           string          `json:"user"`
	LastError      string          `json:"last_error,omitempty"`
	RetryCount     int             `json:"retry_count,omitempty"`
	EmittedAt      *time.Time      `json:"emitted_at,omitempty"`
}

// FiscalPayment is one payment leg of a settled sale.
type FiscalPayment struct {
	Method     string          `json:"method"`
	Amount     decimal.Decimal `json:"amount"`
	IsFiscal   bool            `json:"is_fiscal"`
	FiscalCNPJ string          `json:"fiscal_cnpj,omitempty"`
}

// CustomerInfo is the optional identification attached to an emission.
type CustomerInfo struct {
	Name    string `json:"name,omitempty"`
	CPFCNPJ string `json:"cpf_cnpj,omitempty"`
}

// Active reports whether the entry blocks another enqueue for the same
// (origin, original_id).
func (e *FiscalPoolEntry) Active() bool {
	return e.Status == FiscalPending || e.Status == FiscalEmitted
}

// Emittable reports whether Emit may run: pending or error, no doc yet.
func (e *FiscalPoolEntry) Emittable() bool {
	return (e.Status == FiscalPending || e.Status == FiscalError) && e.FiscalDocUUID == ""
}
