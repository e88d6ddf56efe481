package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

// Closer retires the user's active cart inside an ambient transaction. A
// missing cart is not an error; direct checkouts never opened one.
type Closer struct {
	repo Repository
}

// NewCloser builds the checkout-facing cart closer.
func NewCloser(repo Repository) *Closer {
	return &Closer{repo: repo}
}

func (c *Closer) CloseActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	if c == nil || c.repo == nil {
		return nil
	}
	repo := c.repo.WithTx(tx)
	cart, err := repo.FindActiveByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart for checkout")
	}
	if err := repo.MarkConverted(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "convert cart")
	}
	return nil
}
