package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RoomCharge statuses.
const (
	ChargePending  = "pending"
	ChargePaid     = "paid"
	ChargeCanceled = "canceled"
)

// RoomCharge is a deferred room debit produced by a table→room transfer or
// direct guest consumption (minibar). Items are immutable snapshots: edits
// append new lines and audit entries, never rewrite history.
type RoomCharge struct {
	ID                uuid.UUID                  `json:"id"`
	RoomNumber        string                     `json:"room_number"`
	TableID           string                     `json:"table_id,omitempty"`
	Items             []OrderItem                `json:"items"`
	Total             decimal.Decimal            `json:"total"`
	ServiceFee        decimal.Decimal            `json:"service_fee"`
	ServiceFeeRemoved bool                       `json:"service_fee_removed"`
	WaiterBreakdown   map[string]decimal.Decimal `json:"waiter_breakdown,omitempty"`
	Source            string                     `json:"source"`
	Status            string                     `json:"status"`
	Date              time.Time                  `json:"date"`
	PaidAt            *time.Time                 `json:"paid_at,omitempty"`
	PaymentMethod     string                     `json:"payment_method,omitempty"`
	AuditLog          []ChargeAuditEntry         `json:"audit_log,omitempty"`
}

// ChargeAuditEntry records one mutation of a charge (edit, payment, cancel).
type ChargeAuditEntry struct {
	Action        string    `json:"action"`
	Operator      string    `json:"operator"`
	Justification string    `json:"justification,omitempty"`
	At            time.Time `json:"at"`
}

// GrandTotal is items + service fee.
func (c *RoomCharge) GrandTotal() decimal.Decimal {
	return c.Total.Add(c.ServiceFee)
}

// NormalizeRoom canonicalizes a room number to two-digit zero-padded form
// ("7" → "07"). Non-numeric input is returned unchanged.
func NormalizeRoom(room string) string {
	n, err := strconv.Atoi(strings.TrimSpace(room))
	if err != nil {
		return room
	}
	return fmt.Sprintf("%02d", n)
}

// RoomAccountID is the consolidated fiscal original_id for a room closure.
func RoomAccountID(room string) string {
	return "ROOM_" + NormalizeRoom(room)
}

// RoomOccupancy is the slice of the reception's room map the pipeline needs:
// whether a guest currently occupies the room.
type RoomOccupancy struct {
	RoomNumber string     `json:"room_number"`
	GuestName  string     `json:"guest_name"`
	Active     bool       `json:"active"`
	CheckedIn  time.Time  `json:"checked_in"`
	CheckedOut *time.Time `json:"checked_out,omitempty"`
}
