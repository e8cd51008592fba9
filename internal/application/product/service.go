package product

import (
	"context"
	"time"

	"github.com/froome/fulfillment/internal/application"
	"github.com/froome/fulfillment/internal/auth"
	domain "github.com/froome/fulfillment/internal/domain/product"
	"github.com/froome/fulfillment/internal/observability"
	"github.com/froome/fulfillment/internal/observability/logctx"
	"github.com/shopspring/decimal"
)

// Ledger is the slice of the inventory contract restocking goes
// through; the catalog never writes stock directly.
type Ledger interface {
	Release(ctx context.Context, productID string, quantity int) error
	Reserve(ctx context.Context, productID string, quantity int) error
}

type IDGenerator interface {
	NewID() string
}

type Service struct {
	products domain.Repository
	ledger   Ledger
	idGen    IDGenerator
	tel      observability.Telemetry
	log      observability.Logger
}

func NewService(products domain.Repository, ledger Ledger, idGen IDGenerator, tel observability.Telemetry) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		products: products,
		ledger:   ledger,
		idGen:    idGen,
		tel:      tel,
		log:      tel.Logger().With(observability.F("service", "product_catalog")),
	}
}

type CreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
}

// Create adds a catalog entry; admin only.
func (s *Service) Create(ctx context.Context, cap auth.Capability, input CreateInput) (_ *domain.Product, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "product.create", start, err) }()

	if err = cap.RequireAdmin(); err != nil {
		return nil, err
	}
	p, err := domain.New(s.idGen.NewID(), input.Name, input.Description, input.Price, input.Stock)
	if err != nil {
		return nil, err
	}
	if err = s.products.Insert(ctx, p); err != nil {
		return nil, err
	}
	logctx.FromOr(ctx, s.log).Info("product_created",
		observability.F("product_id", p.ID),
		observability.F("stock", p.Stock),
	)
	return p, nil
}

// Get is a public catalog read.
func (s *Service) Get(ctx context.Context, id string) (*domain.Product, error) {
	return s.products.Get(ctx, id)
}

// List pages through the catalog; public.
func (s *Service) List(ctx context.Context, page, size int) ([]*domain.Product, error) {
	offset, limit := application.PageBounds(page, size)
	return s.products.List(ctx, offset, limit)
}

type UpdateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
}

// Update rewrites name, description and price, keeping any field the
// input leaves empty; stock moves only through the ledger. Admin only.
func (s *Service) Update(ctx context.Context, cap auth.Capability, id string, input UpdateInput) (_ *domain.Product, err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "product.update", start, err) }()

	if err = cap.RequireAdmin(); err != nil {
		return nil, err
	}
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		p.Name = input.Name
	}
	if input.Description != "" {
		p.Description = input.Description
	}
	if input.Price.IsNegative() {
		return nil, domain.ErrInvalidPrice
	}
	// A zero price means the field was omitted, matching the
	// keep-when-empty handling of name and description.
	if !input.Price.IsZero() {
		p.Price = input.Price
	}

	if err = s.products.Update(ctx, p); err != nil {
		return nil, err
	}
	logctx.FromOr(ctx, s.log).Info("product_updated", observability.F("product_id", id))
	return p, nil
}

// Restock raises available stock through the ledger; admin only.
func (s *Service) Restock(ctx context.Context, cap auth.Capability, id string, quantity int) (err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "product.restock", start, err) }()

	if err = cap.RequireAdmin(); err != nil {
		return err
	}
	return s.ledger.Release(ctx, id, quantity)
}

// Delete removes a catalog entry; admin only. Items still referencing
// the product fall back to the cascade's idempotent release path.
func (s *Service) Delete(ctx context.Context, cap auth.Capability, id string) (err error) {
	start := time.Now()
	defer func() { application.Observe(s.tel, "product.delete", start, err) }()

	if err = cap.RequireAdmin(); err != nil {
		return err
	}
	if err = s.products.Delete(ctx, id); err != nil {
		return err
	}
	logctx.FromOr(ctx, s.log).Info("product_deleted", observability.F("product_id", id))
	return nil
}
