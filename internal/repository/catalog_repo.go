package repository

import (
	"fmt"
	"strings"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/store"
)

// ProductRepository is the read-only view over the menu administration's
// products and payment methods. The pipeline never writes these kinds.
type ProductRepository interface {
	FindByID(id string) (*model.Product, error)
	FindByName(name string) (*model.Product, error)
	List() ([]model.Product, error)
	PaymentMethods() ([]model.PaymentMethod, error)
	FindPaymentMethod(name string) (*model.PaymentMethod, error)
}

type productRepo struct{ st *store.Store }

func NewProductRepository(st *store.Store) ProductRepository { return &productRepo{st: st} }

func (r *productRepo) List() ([]model.Product, error) {
	var col []model.Product
	if err := r.st.Load(store.KindProducts, &col); err != nil {
		return nil, err
	}
	return col, nil
}

func (r *productRepo) FindByID(id string) (*model.Product, error) {
	products, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("%w: produto %s", domain.ErrNotFound, id)
}

func (r *productRepo) FindByName(name string) (*model.Product, error) {
	products, err := r.List()
	if err != nil {
		return nil, err
	}
	for i := range products {
		if strings.EqualFold(products[i].Name, name) {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("%w: produto %q", domain.ErrNotFound, name)
}

func (r *productRepo) PaymentMethods() ([]model.PaymentMethod, error) {
	var col []model.PaymentMethod
	if err := r.st.Load(store.KindPaymentMethods, &col); err != nil {
		return nil, err
	}
	return col, nil
}

func (r *productRepo) FindPaymentMethod(name string) (*model.PaymentMethod, error) {
	methods, err := r.PaymentMethods()
	if err != nil {
		return nil, err
	}
	for i := range methods {
		if strings.EqualFold(methods[i].Name, name) {
			return &methods[i], nil
		}
	}
	return nil, fmt.Errorf("%w: forma de pagamento %q", domain.ErrNotFound, name)
}
