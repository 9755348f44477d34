package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/domain"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/model"
	"github.com/diamantegut/sistema-almareia-mirapraia-sub000/internal/repository"
)

// CatalogService is the read-only facade over the menu: products,
// complements and payment methods. The pipeline looks things up here and
// never writes back.
type CatalogService interface {
	// FindProduct resolves by id first, then by case-insensitive name.
	FindProduct(idOrName string) (*model.Product, error)
	// RequireSellable resolves a product and rejects paused ones.
	RequireSellable(idOrName string) (*model.Product, error)
	// ExpandRecipe multiplies the product's recipe by qty.
	ExpandRecipe(product *model.Product, qty decimal.Decimal) []model.RecipeLine
	// ResolveComplement resolves a complement id to a priced line.
	ResolveComplement(id string) (*model.Complement, error)
	List() ([]model.Product, error)
	PaymentMethod(name string) (*model.PaymentMethod, error)
}

type catalogService struct {
	repo repository.ProductRepository
}

func NewCatalogService(repo repository.ProductRepository) CatalogService {
	return &catalogService{repo: repo}
}

func (s *catalogService) FindProduct(idOrName string) (*model.Product, error) {
	if p, err := s.repo.FindByID(idOrName); err == nil {
		return p, nil
	}
	return s.repo.FindByName(idOrName)
}

func (s *catalogService) RequireSellable(idOrName string) (*model.Product, error) {
	p, err := s.FindProduct(idOrName)
	if err != nil {
		return nil, err
	}
	if p.Paused {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductPaused, p.Name)
	}
	return p, nil
}

func (s *catalogService) ExpandRecipe(product *model.Product, qty decimal.Decimal) []model.RecipeLine {
	if product == nil || len(product.Recipe) == 0 {
		return nil
	}
	out := make([]model.RecipeLine, 0, len(product.Recipe))
	for _, line := range product.Recipe {
		out = append(out, model.RecipeLine{
			IngredientID: line.IngredientID,
			Qty:          line.Qty.Mul(qty),
		})
	}
	return out
}

// Complements are catalog products in the "Complementos" category.
func (s *catalogService) ResolveComplement(id string) (*model.Complement, error) {
	p, err := s.FindProduct(id)
	if err != nil {
		return nil, err
	}
	return &model.Complement{ID: p.ID, Name: p.Name, Price: p.Price}, nil
}

func (s *catalogService) List() ([]model.Product, error) {
	return s.repo.List()
}

func (s *catalogService) PaymentMethod(name string) (*model.PaymentMethod, error) {
	return s.repo.FindPaymentMethod(name)
}
