package repository

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// CashierRepository owns the cashier_sessions collection, both open sessions
// and the closed history. All writes serialize on the sessions file.
type CashierRepository interface {
	CreateSession(s *model.CashierSession) error
	FindByID(id uuid.UUID) (*model.CashierSession, error)
	// FindOpenByType returns the single open session of the given type, or
	// domain.ErrNotFound. The one-open-per-type invariant is global.
	FindOpenByType(sessionType string) (*model.CashierSession, error)
	Update(id uuid.UUID, fn func(*model.CashierSession) error) error
	AppendTransaction(sessionID uuid.UUID, tx model.CashierTransaction) error
	History(start, end time.Time, typeFilter string) ([]model.CashierSession, error)
	List() ([]model.CashierSession, error)
}

type cashierRepo struct{ st *store.Store }

func NewCashierRepository(st *store.Store) CashierRepository { return &cashierRepo{st: st} }

func (r *cashierRepo) CreateSession(s *model.CashierSession) error {
	return store.Update(r.st, store.KindCashierSessions, func(col *[]model.CashierSession) error {
		for i := range *col {
			if (*col)[i].Type == s.Type && (*col)[i].Status == model.SessionOpen {
				return domain.ErrDuplicateOpenSession
			}
		}
		*col = append(*col, *s)
		return nil
	})
}

func (r *cashierRepo) List() ([]model.CashierSession, error) {
	var col []model.CashierSession
	if err := r.st.Load(store.KindCashierSessions, &col); err != nil {
		return nil, err
	}
	return col, nil
}

func (r *cashierRepo) FindByID(id uuid.UUID) (*model.CashierSession, error) {
	sessions, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: caixa %s", domain.ErrNotFound, id)
}

func (r *cashierRepo) FindOpenByType(sessionType string) (*model.CashierSession, error) {
	sessions, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		if sessions[i].Type == sessionType && sessions[i].Status == model.SessionOpen {
			return &sessions[i], nil
		}
	}
	return nil, fmt.Errorf("%w: caixa %s aberto", domain.ErrNotFound, sessionType)
}

func (r *cashierRepo) Update(id uuid.UUID, fn func(*model.CashierSession) error) error {
	return store.Update(r.st, store.KindCashierSessions, func(col *[]model.CashierSession) error {
		for i := range *col {
			if (*col)[i].ID == id {
				return fn(&(*col)[i])
			}
		}
		return fmt.Errorf("%w: caixa %s", domain.ErrNotFound, id)
	})
}

func (r *cashierRepo) AppendTransaction(sessionID uuid.UUID, tx model.CashierTransaction) error {
	return r.Update(sessionID, func(s *model.CashierSession) error {
		if s.Status != model.SessionOpen {
			return domain.ErrCashierNotOpen
		}
		s.Transactions = append(s.Transactions, tx)
		return nil
	})
}

func (r *cashierRepo) History(start, end time.Time, typeFilter string) ([]model.CashierSession, error) {
	sessions, err := r.List()
	if err != nil {
		return nil, err
	}
	out := make([]model.CashierSession, 0)
	for _, s := range sessions {
		if s.Status != model.SessionClosed {
			continue
		}
		if typeFilter != "" && s.Type != typeFilter {
			continue
		}
		if !start.IsZero() && s.OpenedAt.Before(start) {
			continue
		}
		if !end.IsZero() && s.OpenedAt.After(end) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}
