package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

// Ledger adjusts product stock inside an ambient transaction. Reserve and
// Release are conditional single-statement updates, so concurrent checkouts
// serialize on the row and can never drive stock negative.
type Ledger interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantSize *string, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantSize *string, qty int) error
}

type ledger struct{}

// NewLedger exposes the default stock ledger.
func NewLedger() Ledger {
	return ledger{}
}

func (ledger) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantSize *string, qty int) error {
	if err := validateAdjustment(tx, productID, qty); err != nil {
		return err
	}

	product, err := loadProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	if product.IsBooking() {
		return nil
	}

	if product.HasVariants {
		size, err := requireSize(variantSize)
		if err != nil {
			return err
		}
		if err := requireVariant(ctx, tx, productID, size); err != nil {
			return err
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock - ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND size = ? AND stock >= ?
		`, qty, productID, size, qty)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve variant stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for size "+size)
		}
		return nil
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock - ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND stock >= ?
	`, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for product "+product.Name)
	}
	return nil
}

func (ledger) Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantSize *string, qty int) error {
	if err := validateAdjustment(tx, productID, qty); err != nil {
		return err
	}

	product, err := loadProduct(ctx, tx, productID)
	if err != nil {
		return err
	}
	if product.IsBooking() {
		return nil
	}

	if product.HasVariants {
		size, err := requireSize(variantSize)
		if err != nil {
			return err
		}
		res := tx.WithContext(ctx).Exec(`
			UPDATE product_variants
			SET stock = stock + ?,
				updated_at = CURRENT_TIMESTAMP
			WHERE product_id = ? AND size = ?
		`, qty, productID, size)
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release variant stock")
		}
		if res.RowsAffected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for release")
		}
		return nil
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET stock = stock + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found for release")
	}
	return nil
}

func validateAdjustment(tx *gorm.DB, productID uuid.UUID, qty int) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock adjustment")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	return nil
}

func loadProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.WithContext(ctx).
		Select("id", "name", "type", "has_variants").
		Where("id = ?", productID).
		First(&product).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

func requireSize(variantSize *string) (string, error) {
	if variantSize == nil || *variantSize == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "size required for variant product")
	}
	return *variantSize, nil
}

func requireVariant(ctx context.Context, tx *gorm.DB, productID uuid.UUID, size string) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&models.ProductVariant{}).
		Where("product_id = ? AND size = ?", productID, size).
		Count(&count).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check variant")
	}
	if count == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "variant not found for size "+size)
	}
	return nil
}
