package inventory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

func TestReserveFlatStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := seedProduct(t, db, 5, false)

	err := db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, nil, 3)
	})
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.Stock != 2 {
		t.Fatalf("expected stock 2, got %d", got.Stock)
	}
}

func TestReserveRejectsOversell(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := seedProduct(t, db, 2, false)

	err := db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, nil, 3)
	})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("unexpected error: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.Stock != 2 {
		t.Fatalf("rejected reserve must not change stock, got %d", got.Stock)
	}
}

func TestReserveExactRemainderThenConflict(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := seedProduct(t, db, 4, false)

	if err := db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, nil, 4)
	}); err != nil {
		t.Fatalf("reserve exact remainder: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, nil, 1)
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on empty stock, got %v", err)
	}
}

func TestReserveVariantStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := seedProduct(t, db, 0, true)
	seedVariant(t, db, product.ID, "M", 3)
	seedVariant(t, db, product.ID, "L", 1)

	size := "M"
	if err := db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, &size, 2)
	}); err != nil {
		t.Fatalf("reserve variant: %v", err)
	}

	var got models.ProductVariant
	if err := db.First(&got, "product_id = ? AND size = ?", product.ID, "M").Error; err != nil {
		t.Fatalf("load variant: %v", err)
	}
	if got.Stock != 1 {
		t.Fatalf("expected variant stock 1, got %d", got.Stock)
	}

	// Sibling variant untouched.
	var sibling models.ProductVariant
	if err := db.First(&sibling, "product_id = ? AND size = ?", product.ID, "L").Error; err != nil {
		t.Fatalf("load sibling: %v", err)
	}
	if sibling.Stock != 1 {
		t.Fatalf("sibling variant changed: %d", sibling.Stock)
	}
}

func TestReserveVariantUnknownSize(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := seedProduct(t, db, 0, true)
	seedVariant(t, db, product.ID, "M", 3)

	size := "XL"
	err := db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, &size, 1)
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown size, got %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, nil, 1)
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing size, got %v", err)
	}
}

func TestBookingProductSkipsLedger(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := &models.Product{
		ID:    uuid.New(),
		Name:  "spa session",
		Price: decimal.NewFromInt(500),
		Type:  enums.OrderTypeBooking,
		Stock: 1,
		BookingConfig: &types.BookingConfig{
			LeadDays: 2,
			MinQty:   1,
			MaxQty:   4,
		},
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed booking product: %v", err)
	}

	// Far more than nominal stock, still fine.
	if err := db.Transaction(func(tx *gorm.DB) error {
		return led.Reserve(ctx, tx, product.ID, nil, 10)
	}); err != nil {
		t.Fatalf("booking reserve should be a no-op: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.Stock != 1 {
		t.Fatalf("booking product stock must stay untouched, got %d", got.Stock)
	}
}

func TestReleaseRestoresStock(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := seedProduct(t, db, 5, false)

	if err := db.Transaction(func(tx *gorm.DB) error {
		if err := led.Reserve(ctx, tx, product.ID, nil, 4); err != nil {
			return err
		}
		return nil
	}); err != nil {
		t.Fatalf("reserve: %v", err)
	}

	if err := db.Transaction(func(tx *gorm.DB) error {
		return led.Release(ctx, tx, product.ID, nil, 4)
	}); err != nil {
		t.Fatalf("release: %v", err)
	}

	var got models.Product
	if err := db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got.Stock)
	}
}

func TestReserveInvalidQty(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()
	led := NewLedger()

	product := seedProduct(t, db, 5, false)

	for _, qty := range []int{0, -1} {
		err := led.Reserve(ctx, db, product.ID, nil, qty)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for qty %d, got %v", qty, err)
		}
	}

	err := led.Reserve(ctx, db, uuid.New(), nil, 1)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unknown product, got %v", err)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, stock int, hasVariants bool) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		Name:        "tee",
		Price:       decimal.NewFromInt(100),
		Type:        enums.OrderTypeStandard,
		HasVariants: hasVariants,
		Stock:       stock,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func seedVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, size string, stock int) {
	t.Helper()
	variant := &models.ProductVariant{
		ID:        uuid.New(),
		ProductID: productID,
		Size:      size,
		Price:     decimal.NewFromInt(100),
		Stock:     stock,
	}
	if err := db.Create(variant).Error; err != nil {
		t.Fatalf("seed variant: %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:inventory_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Product{}, &models.ProductVariant{}); err != nil {
		t.Fatalf("migrate products: %v", err)
	}
	return db
}
