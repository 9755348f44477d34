package repository

import (
	"fmt"
	"sort"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// OrderRepository owns the live table_orders collection, keyed by table id.
type OrderRepository interface {
	Find(tableID string) (*model.TableOrder, error)
	Exists(tableID string) bool
	List() ([]model.TableOrder, error)
	Put(order *model.TableOrder) error
	Delete(tableID string) error
	// Update loads, mutates and saves the order under the collection mutex.
	Update(tableID string, fn func(*model.TableOrder) error) error
	// UpdateAll exposes the whole map for multi-table mutations (transfers)
	// so both sides land in a single atomic save.
	UpdateAll(fn func(map[string]*model.TableOrder) error) error
}

type orderRepo struct{ st *store.Store }

func NewOrderRepository(st *store.Store) OrderRepository { return &orderRepo{st: st} }

type orderMap = map[string]*model.TableOrder

func (r *orderRepo) Find(tableID string) (*model.TableOrder, error) {
	var col orderMap
	if err := r.st.Load(store.KindTableOrders, &col); err != nil {
		return nil, err
	}
	o, ok := col[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: mesa %s", domain.ErrNotFound, tableID)
	}
	return o, nil
}

func (r *orderRepo) Exists(tableID string) bool {
	_, err := r.Find(tableID)
	return err == nil
}

func (r *orderRepo) List() ([]model.TableOrder, error) {
	var col orderMap
	if err := r.st.Load(store.KindTableOrders, &col); err != nil {
		return nil, err
	}
	out := make([]model.TableOrder, 0, len(col))
	for _, o := range col {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TableID < out[j].TableID })
	return out, nil
}

func (r *orderRepo) Put(order *model.TableOrder) error {
	return store.Update(r.st, store.KindTableOrders, func(col *orderMap) error {
		if *col == nil {
			*col = make(orderMap)
		}
		(*col)[order.TableID] = order
		return nil
	})
}

func (r *orderRepo) Delete(tableID string) error {
	return store.Update(r.st, store.KindTableOrders, func(col *orderMap) error {
		delete(*col, tableID)
		return nil
	})
}

func (r *orderRepo) Update(tableID string, fn func(*model.TableOrder) error) error {
	return store.Update(r.st, store.KindTableOrders, func(col *orderMap) error {
		o, ok := (*col)[tableID]
		if !ok {
			return fmt.Errorf("%w: mesa %s", domain.ErrNotFound, tableID)
		}
		return fn(o)
	})
}

func (r *orderRepo) UpdateAll(fn func(map[string]*model.TableOrder) error) error {
	return store.Update(r.st, store.KindTableOrders, func(col *orderMap) error {
		if *col == nil {
			*col = make(orderMap)
		}
		return fn(*col)
	})
}
