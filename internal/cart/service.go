package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

// Service manages a user's single active cart.
type Service interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, qty int) (*models.CartRecord, error)
	UpdateItemQty(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.CartRecord, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error)
}

type service struct {
	repo Repository
}

// NewService builds the cart service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOrCreate(ctx context.Context, userID uuid.UUID) (*models.CartRecord, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	fresh := &models.CartRecord{UserID: userID}
	if err := s.repo.Create(ctx, fresh); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return fresh, nil
}

func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, variantID *uuid.UUID, qty int) (*models.CartRecord, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Same product+variant lines merge by bumping quantity.
	for _, item := range cart.Items {
		if item.ProductID == productID && equalVariant(item.VariantID, variantID) {
			if err := s.repo.UpdateItemQty(ctx, item.ID, item.Quantity+qty); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump cart line")
			}
			return s.repo.FindActiveByUser(ctx, userID)
		}
	}

	item := &models.CartItem{
		CartID:    cart.ID,
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
	}
	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add cart line")
	}
	return s.repo.FindActiveByUser(ctx, userID)
}

func (s *service) UpdateItemQty(ctx context.Context, userID, itemID uuid.UUID, qty int) (*models.CartRecord, error) {
	if qty <= 0 {
		return s.RemoveItem(ctx, userID, itemID)
	}
	cart, err := s.requireOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateItemQty(ctx, itemID, qty); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart line")
	}
	return s.repo.FindActiveByUser(ctx, cart.UserID)
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error) {
	cart, err := s.requireOwnedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RemoveItem(ctx, cart.ID, itemID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove cart line")
	}
	return s.repo.FindActiveByUser(ctx, cart.UserID)
}

func (s *service) requireOwnedItem(ctx context.Context, userID, itemID uuid.UUID) (*models.CartRecord, error) {
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	cart, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, item := range cart.Items {
		if item.ID == itemID {
			return cart, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
}

func equalVariant(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
