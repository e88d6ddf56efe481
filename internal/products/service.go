package products

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

// CreateInput describes a new catalog entry.
type CreateInput struct {
	TenantID      *uuid.UUID
	Name          string
	Description   *string
	Price         decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         int
	Type          enums.OrderType
	BookingConfig *types.BookingConfig
	Tags          []string
	ImageURL      *string
	Variants      []VariantInput
}

// VariantInput is one size row for a variant product.
type VariantInput struct {
	Size  string
	Price decimal.Decimal
	Stock int
}

// UpdateInput carries partial catalog edits.
type UpdateInput struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	DiscountPrice *decimal.Decimal
	Stock         *int
	IsActive      *bool
	ImageURL      *string
}

// Service provides catalog operations. Writes are tenant-scoped: a tenant may
// only touch its own products, admins may touch any.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, productID uuid.UUID, actorTenantID *uuid.UUID, isAdmin bool, input UpdateInput) (*models.Product, error)
	Get(ctx context.Context, productID uuid.UUID) (*models.Product, error)
	List(ctx context.Context, limit int) ([]models.Product, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo Repository
}

// NewService builds the catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product type")
	}
	if input.Type.IsBooking() && input.BookingConfig == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking products require a booking config")
	}

	product := &models.Product{
		TenantID:      input.TenantID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Price:         input.Price,
		DiscountPrice: input.DiscountPrice,
		Stock:         input.Stock,
		Type:          input.Type,
		BookingConfig: input.BookingConfig,
		Tags:          input.Tags,
		ImageURL:      input.ImageURL,
		IsActive:      true,
	}
	if len(input.Variants) > 0 {
		product.HasVariants = true
		product.Stock = 0
		for _, v := range input.Variants {
			if strings.TrimSpace(v.Size) == "" {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant size required")
			}
			if v.Stock < 0 {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant stock must not be negative")
			}
			product.Variants = append(product.Variants, models.ProductVariant{
				Size:  strings.TrimSpace(v.Size),
				Price: v.Price,
				Stock: v.Stock,
			})
		}
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, productID uuid.UUID, actorTenantID *uuid.UUID, isAdmin bool, input UpdateInput) (*models.Product, error) {
	product, err := s.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		if actorTenantID == nil || product.TenantID == nil || *product.TenantID != *actorTenantID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product does not belong to tenant")
		}
	}

	updates := map[string]any{}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name required")
		}
		updates["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
		}
		updates["price"] = *input.Price
	}
	if input.DiscountPrice != nil {
		updates["discount_price"] = *input.DiscountPrice
	}
	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
		}
		if product.HasVariants {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant products track stock per size")
		}
		updates["stock"] = *input.Stock
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.ImageURL != nil {
		updates["image_url"] = *input.ImageURL
	}
	if len(updates) == 0 {
		return product, nil
	}

	if err := s.repo.Update(ctx, productID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return s.Get(ctx, productID)
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByIDWithVariants(ctx, productID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, limit int) ([]models.Product, error) {
	products, err := s.repo.ListActive(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

func (s *service) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Product, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	products, err := s.repo.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenant products")
	}
	return products, nil
}
