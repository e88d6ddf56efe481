package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/peakkart/peakkart-backend/api/middleware"
	"github.com/peakkart/peakkart-backend/api/responses"
	"github.com/peakkart/peakkart-backend/api/validators"
	"github.com/peakkart/peakkart-backend/internal/products"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/logger"
	"github.com/peakkart/peakkart-backend/pkg/pagination"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

type productVariantRequest struct {
	Size  string          `json:"size" validate:"required,min=1,max=32"`
	Price decimal.Decimal `json:"price" validate:"required"`
	Stock int             `json:"stock" validate:"min=0"`
}

type createProductRequest struct {
	Name          string                  `json:"name" validate:"required,min=2,max=200"`
	Description   *string                 `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price         decimal.Decimal         `json:"price" validate:"required"`
	DiscountPrice *decimal.Decimal        `json:"discount_price,omitempty"`
	Stock         int                     `json:"stock" validate:"min=0"`
	Type          string                  `json:"type,omitempty"`
	BookingConfig *types.BookingConfig    `json:"booking_config,omitempty"`
	Tags          []string                `json:"tags,omitempty"`
	ImageURL      *string                 `json:"image_url,omitempty" validate:"omitempty,url"`
	Variants      []productVariantRequest `json:"variants,omitempty" validate:"omitempty,dive"`
}

type updateProductRequest struct {
	Name          *string          `json:"name,omitempty" validate:"omitempty,min=2,max=200"`
	Description   *string          `json:"description,omitempty" validate:"omitempty,max=5000"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	DiscountPrice *decimal.Decimal `json:"discount_price,omitempty"`
	Stock         *int             `json:"stock,omitempty" validate:"omitempty,min=0"`
	IsActive      *bool            `json:"is_active,omitempty"`
	ImageURL      *string          `json:"image_url,omitempty" validate:"omitempty,url"`
}

// ListProducts returns the active catalog.
func ListProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.List(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// GetProduct returns one product with its variants.
func GetProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// CreateProduct adds a product owned by the calling tenant. Admins create
// platform-owned products.
func CreateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productType := enums.OrderTypeStandard
		if req.Type != "" {
			parsed, err := enums.ParseOrderType(req.Type)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product type"))
				return
			}
			productType = parsed
		}

		input := products.CreateInput{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			DiscountPrice: req.DiscountPrice,
			Stock:         req.Stock,
			Type:          productType,
			BookingConfig: req.BookingConfig,
			Tags:          req.Tags,
			ImageURL:      req.ImageURL,
		}
		for _, v := range req.Variants {
			input.Variants = append(input.Variants, products.VariantInput{
				Size:  v.Size,
				Price: v.Price,
				Stock: v.Stock,
			})
		}

		if middleware.RoleFromContext(r.Context()) == string(enums.RoleTenant) {
			tenantID, err := actorTenantID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.TenantID = &tenantID
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// UpdateProduct applies a partial update scoped to the calling tenant.
func UpdateProduct(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := parseProductID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req updateProductRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		isAdmin := middleware.RoleFromContext(r.Context()) == string(enums.RoleAdmin)
		var tenantID *uuid.UUID
		if !isAdmin {
			id, err := actorTenantID(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			tenantID = &id
		}

		product, err := svc.Update(r.Context(), productID, tenantID, isAdmin, products.UpdateInput{
			Name:          req.Name,
			Description:   req.Description,
			Price:         req.Price,
			DiscountPrice: req.DiscountPrice,
			Stock:         req.Stock,
			IsActive:      req.IsActive,
			ImageURL:      req.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// TenantProducts lists the calling tenant's own catalog.
func TenantProducts(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := actorTenantID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListByTenant(r.Context(), tenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func parseProductID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "productId")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	return id, nil
}
