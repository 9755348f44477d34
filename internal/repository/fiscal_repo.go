package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// FiscalFilter narrows List results.
type FiscalFilter struct {
	Origin string
	Status string
	From   time.Time
	To     time.Time
}

// FiscalRepository owns the fiscal_pool collection.
type FiscalRepository interface {
	// CreateIfAbsent inserts the entry unless another with the same
	// (origin, original_id) is already pending or emitted. The check and
	// the insert happen under the same file mutex, so re-close attempts
	// cannot race a duplicate in.
	CreateIfAbsent(entry *model.FiscalPoolEntry) (created bool, err error)
	FindByID(id uuid.UUID) (*model.FiscalPoolEntry, error)
	Update(id uuid.UUID, fn func(*model.FiscalPoolEntry) error) error
	List(filter FiscalFilter) ([]model.FiscalPoolEntry, error)
}

type fiscalRepo struct{ st *store.Store }

func NewFiscalRepository(st *store.Store) FiscalRepository { return &fiscalRepo{st: st} }

func (r *fiscalRepo) CreateIfAbsent(entry *model.FiscalPoolEntry) (bool, error) {
	created := false
	err := store.Update(r.st, store.KindFiscalPool, func(col *[]model.FiscalPoolEntry) error {
		for i := range *col {
			e := &(*col)[i]
			if e.Origin == entry.Origin && e.OriginalID == entry.OriginalID && e.Active() {
				return nil
			}
		}
		*col = append(*col, *entry)
		created = true
		return nil
	})
	return created, err
}

func (r *fiscalRepo) FindByID(id uuid.UUID) (*model.FiscalPoolEntry, error) {
	var col []model.FiscalPoolEntry
	if err := r.st.Load(store.KindFiscalPool, &col); err != nil {
		return nil, err
	}
	for i := range col {
		if col[i].ID == id {
			return &col[i], nil
		}
	}
	return nil, fmt.Errorf("%w: nota %s", domain.ErrNotFound, id)
}

func (r *fiscalRepo) Update(id uuid.UUID, fn func(*model.FiscalPoolEntry) error) error {
	return store.Update(r.st, store.KindFiscalPool, func(col *[]model.FiscalPoolEntry) error {
		for i := range *col {
			if (*col)[i].ID == id {
				return fn(&(*col)[i])
			}
		}
		return fmt.Errorf("%w: nota %s", domain.ErrNotFound, id)
	})
}

func (r *fiscalRepo) List(filter FiscalFilter) ([]model.FiscalPoolEntry, error) {
	var col []model.FiscalPoolEntry
	if err := r.st.Load(store.KindFiscalPool, &col); err != nil {
		return nil, err
	}
	out := make([]model.FiscalPoolEntry, 0, len(col))
	for _, e := range col {
		if filter.Origin != "" && e.Origin != filter.Origin {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		if !filter.From.IsZero() && e.ClosedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && e.ClosedAt.After(filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}
