package repository

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// OperatorRepository reads the operators collection maintained by the user
// administration module. The pipeline only authenticates and authorizes.
type OperatorRepository interface {
	FindByUsername(username string) (*model.Operator, error)
	FindByID(id uuid.UUID) (*model.Operator, error)
	// Managers returns active gerente/admin operators, for the
	// manager-password override on item removal.
	Managers() ([]model.Operator, error)
}

type operatorRepo struct{ st *store.Store }

func NewOperatorRepository(st *store.Store) OperatorRepository { return &operatorRepo{st: st} }

func (r *operatorRepo) list() ([]model.Operator, error) {
	var col []model.Operator
	if err := r.st.Load(store.KindOperators, &col); err != nil {
		return nil, err
	}
	return col, nil
}

func (r *operatorRepo) FindByUsername(username string) (*model.Operator, error) {
	ops, err := r.list()
	if err != nil {
		return nil, err
	}
	for i := range ops {
		if strings.EqualFold(ops[i].Username, username) && ops[i].Active {
			return &ops[i], nil
		}
	}
	return nil, fmt.Errorf("%w: operador %s", domain.ErrNotFound, username)
}

func (r *operatorRepo) FindByID(id uuid.UUID) (*model.Operator, error) {
	ops, err := r.list()
	if err != nil {
		return nil, err
	}
	for i := range ops {
		if ops[i].ID == id {
			return &ops[i], nil
		}
	}
	return nil, fmt.Errorf("%w: operador %s", domain.ErrNotFound, id)
}

func (r *operatorRepo) Managers() ([]model.Operator, error) {
	ops, err := r.list()
	if err != nil {
		return nil, err
	}
	out := make([]model.Operator, 0)
	for _, o := range ops {
		if o.Active && (o.Role == model.RoleGerente || o.Role == model.RoleAdmin) {
			out = append(out, o)
		}
	}
	return out, nil
}
