package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cashier session types. At most one session per type may be open globally.
const (
	CashierRestaurant       = "restaurant"
	CashierGuestConsumption = "guest_consumption"
	CashierDailyRates       = "daily_rates"
)

// Cashier session statuses.
const (
	SessionOpen   = "open"
	SessionClosed = "closed"
)

// Transaction types. Amounts are always positive; the sign is implied.
const (
	TxSale       = "sale"
	TxIn         = "in"
	TxOut        = "out"
	TxDeposit    = "deposit"
	TxWithdrawal = "withdrawal"
)

// CashMethod is the payment method name that absorbs change on overpayment.
const CashMethod = "Dinheiro"

// CashierSession is the lifecycle of one typed cash register. Balances are
// derived from the transaction list, never stored redundantly — except the
// counted closing figures recorded at close time.
type CashierSession struct {
	ID              uuid.UUID            `json:"id"`
	Type            string               `json:"type"`
	User            string               `json:"user"`
	Status          string               `json:"status"`
	OpenedAt        time.Time            `json:"opened_at"`
	ClosedAt        *time.Time           `json:"closed_at,omitempty"`
	OpeningBalance  decimal.Decimal      `json:"opening_balance"`
	ClosingBalance  *decimal.Decimal     `json:"closing_balance,omitempty"`
	CountedClosing  *decimal.Decimal     `json:"counted_closing_balance,omitempty"`
	ClosingDiff     *decimal.Decimal     `json:"closing_difference,omitempty"`
	Transactions    []CashierTransaction `json:"transactions"`
}

// CashierTransaction is an immutable ledger entry. Cancellations and
// adjustments create inverse entries; existing ones are never deleted.
// The single sanctioned exception: editing a paid charge while its paying
// session is still open mutates the original sale in place.
type CashierTransaction struct {
	ID              uuid.UUID                  `json:"id"`
	Type            string                     `json:"type"`
	Amount          decimal.Decimal            `json:"amount"`
	Description     string                     `json:"description"`
	PaymentMethod   string                     `json:"payment_method,omitempty"`
	Timestamp       time.Time                  `json:"timestamp"`
	User            string                     `json:"user"`
	WaiterBreakdown map[string]decimal.Decimal `json:"waiter_breakdown,omitempty"`
	Flags           []string                   `json:"flags,omitempty"`
	RelatedChargeID string                     `json:"related_charge_id,omitempty"`
	EmitInvoice     bool                       `json:"emit_invoice,omitempty"`
	// ServiceFeeRemoved propagates from the source charge so commission
	// ranking can exclude the sale from commissionable totals.
	ServiceFeeRemoved bool `json:"service_fee_removed,omitempty"`
}

// inflow/outflow classification for balance derivation.
func txInflow(t string) bool {
	return t == TxSale || t == TxIn || t == TxDeposit
}

// ExpectedBalance derives opening + Σ(sale,in,deposit) − Σ(out,withdrawal).
func (s *CashierSession) ExpectedBalance() decimal.Decimal {
	bal := s.OpeningBalance
	for _, tx := range s.Transactions {
		if txInflow(tx.Type) {
			bal = bal.Add(tx.Amount)
		} else {
			bal = bal.Sub(tx.Amount)
		}
	}
	return bal
}
