package model

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer types seated at a table.
const (
	CustomerPassante    = "passante"
	CustomerHospede     = "hospede"
	CustomerFuncionario = "funcionario"
)

// TableOrder statuses. A table order only exists while open; closing,
// transferring or cancelling deletes it from the table_orders collection.
const (
	TableOpen   = "open"
	TableClosed = "closed"
)

// OrderItem sources.
const (
	SourceRestaurant    = "restaurant"
	SourceMinibar       = "minibar"
	SourceAutoCover     = "auto_cover"
	SourceReceptionEdit = "reception_edit"
)

// Print statuses for an order item.
const (
	PrintPending = "pending"
	PrintPrinted = "printed"
	PrintError   = "error"
	PrintSkipped = "skipped"
)

// MinibarCategory is excluded from the 10% service fee.
const MinibarCategory = "Frigobar"

// staffTablePrefix marks staff consumption accounts ("FUNC_<name>").
const staffTablePrefix = "FUNC_"

// maxRoomID: table ids 1..35 are hotel rooms; above are restaurant tables.
const maxRoomID = 35

// TableOrder is the live state of an open table, room account or staff
// account. It is exclusively owned by the order book until settlement.
type TableOrder struct {
	TableID                 string           `json:"table_id"`
	Status                  string           `json:"status"`
	OpenedAt                time.Time        `json:"opened_at"`
	CustomerType            string           `json:"customer_type"`
	RoomNumber              string           `json:"room_number,omitempty"`
	NumAdults               int              `json:"num_adults"`
	Waiter                  string           `json:"waiter"`
	Items                   []OrderItem      `json:"items"`
	Total                   decimal.Decimal  `json:"total"`
	PaidAmount              decimal.Decimal  `json:"paid_amount"`
	Locked                  bool             `json:"locked"`
	ReopenedAfterPull       bool             `json:"reopened_after_pull"`
	ReopenCount             int              `json:"reopen_count,omitempty"`
	ItemsRemovedAfterReopen bool             `json:"items_removed_after_reopen,omitempty"`
	RemovedItemsLog         []RemovedItemLog `json:"removed_items_log,omitempty"`
	LastTransfer            *TransferRecord  `json:"last_transfer,omitempty"`
	NextItemID              int              `json:"next_item_id"`
}

// OrderItem is a line on an open table. Price is the unit price after the
// staff discount when applicable; complements add on top per unit.
type OrderItem struct {
	ID               int             `json:"id"`
	ProductID        string          `json:"product_id,omitempty"`
	Name             string          `json:"name"`
	Qty              decimal.Decimal `json:"qty"`
	Price            decimal.Decimal `json:"price"`
	Complements      []Complement    `json:"complements,omitempty"`
	Accompaniments   []string        `json:"accompaniments,omitempty"`
	Observations     []string        `json:"observations,omitempty"`
	Category         string          `json:"category"`
	ServiceFeeExempt bool            `json:"service_fee_exempt"`
	Source           string          `json:"source"`
	Waiter           string          `json:"waiter"`
	Printed          bool            `json:"printed"`
	PrintStatus      string          `json:"print_status"`
	TransferredFrom  string          `json:"transferred_from,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// RemovedItemLog keeps an audit trail of removals for downstream review,
// in particular removals happening after a bill pull.
type RemovedItemLog struct {
	ItemID     int             `json:"item_id"`
	Name       string          `json:"name"`
	Qty        decimal.Decimal `json:"qty"`
	Reason     string          `json:"reason"`
	Authorizer string          `json:"authorizer"`
	AfterPull  bool            `json:"after_pull"`
	RemovedAt  time.Time       `json:"removed_at"`
}

// TransferRecord documents the last item/table transfer touching this table.
type TransferRecord struct {
	FromTable string    `json:"from_table"`
	ToTable   string    `json:"to_table"`
	Operator  string    `json:"operator"`
	At        time.Time `json:"at"`
}

// UnitTotal is the per-unit price including complements.
func (i OrderItem) UnitTotal() decimal.Decimal {
	unit := i.Price
	for _, c := range i.Complements {
		unit = unit.Add(c.Price)
	}
	return unit
}

// Subtotal is qty * (price + complements).
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Qty.Mul(i.UnitTotal())
}

// FeeTaxable reports whether this item counts toward the service fee base.
func (i OrderItem) FeeTaxable() bool {
	return !i.ServiceFeeExempt && i.Category != MinibarCategory && i.Source != SourceMinibar
}

// RecomputeTotal rederives Total from the items. Derived values are never
// trusted from disk; every mutation path calls this before saving.
func (t *TableOrder) RecomputeTotal() {
	total := decimal.Zero
	for _, i := range t.Items {
		total = total.Add(i.Subtotal())
	}
	t.Total = total
}

// TaxableSubtotal is the base for the 10% service fee: non-exempt,
// non-minibar items only.
func (t *TableOrder) TaxableSubtotal() decimal.Decimal {
	base := decimal.Zero
	for _, i := range t.Items {
		if i.FeeTaxable() {
			base = base.Add(i.Subtotal())
		}
	}
	return base
}

// IsRoomTable reports whether tableID addresses a hotel room (numeric, 1-35).
func IsRoomTable(tableID string) bool {
	n, err := strconv.Atoi(strings.TrimLeft(tableID, "0"))
	if err != nil {
		return false
	}
	return n >= 1 && n <= maxRoomID
}

// IsStaffTable reports whether tableID is a staff consumption account.
func IsStaffTable(tableID string) bool {
	return strings.HasPrefix(tableID, staffTablePrefix)
}
