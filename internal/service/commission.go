package service

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

// AllocateCommission splits amount across waiters proportionally to the item
// subtotals each one sold (base price plus complements, times qty). Items
// without a waiter fall to primaryWaiter; when nothing is attributable the
// primary takes everything. Shares are rounded to cents and the rounding
// drift is folded into the largest share so the map always sums to amount.
func AllocateCommission(items []model.OrderItem, primaryWaiter string, amount decimal.Decimal) map[string]decimal.Decimal {
	if primaryWaiter == "" {
		primaryWaiter = "sem_garcom"
	}

	sold := make(map[string]decimal.Decimal)
	total := decimal.Zero
	for _, it := range items {
		w := it.Waiter
		if w == "" {
			w = primaryWaiter
		}
		sub := it.Subtotal()
		sold[w] = sold[w].Add(sub)
		total = total.Add(sub)
	}

	if len(sold) == 0 || total.IsZero() {
		return map[string]decimal.Decimal{primaryWaiter: amount}
	}

	shares := make(map[string]decimal.Decimal, len(sold))
	allocated := decimal.Zero
	largest := primaryWaiter
	for w, s := range sold {
		share := amount.Mul(s).Div(total).Round(2)
		shares[w] = share
		allocated = allocated.Add(share)
		if sold[w].GreaterThan(sold[largest]) {
			largest = w
		}
	}
	if _, ok := shares[largest]; !ok {
		for w := range shares {
			largest = w
			break
		}
	}
	if drift := amount.Sub(allocated); !drift.IsZero() {
		shares[largest] = shares[largest].Add(drift)
	}
	return shares
}

// SumBreakdowns merges per-charge waiter breakdowns, used when a room
// account consolidates several charges into one settlement.
func SumBreakdowns(breakdowns ...map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, b := range breakdowns {
		for w, v := range b {
			out[w] = out[w].Add(v)
		}
	}
	return out
}

// WaiterRank is one row of the commission ranking.
type WaiterRank struct {
	Waiter         string          `json:"waiter"`
	Gross          decimal.Decimal `json:"gross"`
	Commissionable decimal.Decimal `json:"commissionable"`
	Commission     decimal.Decimal `json:"commission"`
}

// CommissionService aggregates waiter breakdowns across cashier sales.
type CommissionService interface {
	Ranking(start, end time.Time, rate decimal.Decimal) ([]WaiterRank, error)
}

type commissionService struct {
	cashierRepo repository.CashierRepository
	defaultRate decimal.Decimal
}

func NewCommissionService(cashierRepo repository.CashierRepository, defaultRate decimal.Decimal) CommissionService {
	return &commissionService{cashierRepo: cashierRepo, defaultRate: defaultRate}
}

// Ranking sums waiter_breakdown over sale transactions in [start, end],
// scaled by rate (the configured default when zero). Sales flagged
// service_fee_removed stay in gross but are excluded from commissionable.
func (s *commissionService) Ranking(start, end time.Time, rate decimal.Decimal) ([]WaiterRank, error) {
	if rate.IsZero() {
		rate = s.defaultRate
	}

	sessions, err := s.cashierRepo.List()
	if err != nil {
		return nil, err
	}

	rows := make(map[string]*WaiterRank)
	for _, sess := range sessions {
		for _, tx := range sess.Transactions {
			if tx.Type != model.TxSale {
				continue
			}
			if !start.IsZero() && tx.Timestamp.Before(start) {
				continue
			}
			if !end.IsZero() && tx.Timestamp.After(end) {
				continue
			}
			for w, v := range tx.WaiterBreakdown {
				row, ok := rows[w]
				if !ok {
					row = &WaiterRank{Waiter: w}
					rows[w] = row
				}
				row.Gross = row.Gross.Add(v)
				if !tx.ServiceFeeRemoved {
					row.Commissionable = row.Commissionable.Add(v)
				}
			}
		}
	}

	out := make([]WaiterRank, 0, len(rows))
	for _, row := range rows {
		row.Commission = row.Commissionable.Mul(rate).Round(2)
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Commission.GreaterThan(out[j].Commission) })
	return out, nil
}
