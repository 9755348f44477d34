package repository

import (
	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// StockRepository is the pipeline's sink for raw-material consumption.
// Purchasing and counting live in the inventory module; the pipeline only
// deducts on sale and refunds on removal/cancellation.
type StockRepository interface {
	// Adjust applies delta (negative = consumption) to the ingredient's
	// balance and returns the new balance. Unknown ingredients are created
	// on the fly so a menu change never blocks a sale.
	Adjust(ingredientID string, delta decimal.Decimal) (decimal.Decimal, error)
	Balance(ingredientID string) (decimal.Decimal, error)
}

type stockRepo struct{ st *store.Store }

func NewStockRepository(st *store.Store) StockRepository { return &stockRepo{st: st} }

func (r *stockRepo) Adjust(ingredientID string, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := store.Update(r.st, store.KindStock, func(col *[]model.StockItem) error {
		for i := range *col {
			if (*col)[i].ID == ingredientID {
				(*col)[i].Balance = (*col)[i].Balance.Add(delta)
				balance = (*col)[i].Balance
				return nil
			}
		}
		item := model.StockItem{ID: ingredientID, Balance: delta}
		*col = append(*col, item)
		balance = item.Balance
		return nil
	})
	return balance, err
}

func (r *stockRepo) Balance(ingredientID string) (decimal.Decimal, error) {
	var col []model.StockItem
	if err := r.st.Load(store.KindStock, &col); err != nil {
		return decimal.Zero, err
	}
	for i := range col {
		if col[i].ID == ingredientID {
			return col[i].Balance, nil
		}
	}
	return decimal.Zero, nil
}
