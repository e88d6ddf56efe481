package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:products_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.ProductVariant{}))
	return db
}

func newService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestCreateProductWithVariants(t *testing.T) {
	t.Parallel()
	svc := newService(t, newTestDB(t))

	product, err := svc.Create(context.Background(), CreateInput{
		Name:  "Premium Hoodie",
		Price: decimal.NewFromInt(1200),
		Type:  enums.OrderTypeStandard,
		Variants: []VariantInput{
			{Size: "M", Price: decimal.NewFromInt(1200), Stock: 5},
			{Size: "L", Price: decimal.NewFromInt(1300), Stock: 3},
		},
	})
	require.NoError(t, err)
	require.True(t, product.HasVariants)
	require.Zero(t, product.Stock)
	require.Len(t, product.Variants, 2)

	loaded, err := svc.Get(context.Background(), product.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Variants, 2)
}

func TestCreateBookingProductRequiresConfig(t *testing.T) {
	t.Parallel()
	svc := newService(t, newTestDB(t))

	_, err := svc.Create(context.Background(), CreateInput{
		Name:  "Studio Session",
		Price: decimal.NewFromInt(2000),
		Type:  enums.OrderTypeBooking,
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	_, err = svc.Create(context.Background(), CreateInput{
		Name:  "Studio Session",
		Price: decimal.NewFromInt(2000),
		Type:  enums.OrderTypeBooking,
		BookingConfig: &types.BookingConfig{
			LeadDays: 2,
			MinQty:   1,
			MaxQty:   4,
		},
	})
	require.NoError(t, err)
}

func TestUpdateEnforcesTenantOwnership(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newService(t, db)
	ownerID := uuid.New()

	product, err := svc.Create(context.Background(), CreateInput{
		TenantID: &ownerID,
		Name:     "Spice Box",
		Price:    decimal.NewFromInt(350),
		Stock:    10,
		Type:     enums.OrderTypeStandard,
	})
	require.NoError(t, err)

	strangerID := uuid.New()
	newName := "Spice Box XL"
	_, err = svc.Update(context.Background(), product.ID, &strangerID, false, UpdateInput{Name: &newName})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeForbidden, pkgerrors.As(err).Code())

	updated, err := svc.Update(context.Background(), product.ID, &ownerID, false, UpdateInput{Name: &newName})
	require.NoError(t, err)
	require.Equal(t, "Spice Box XL", updated.Name)

	// Admins bypass tenant scoping.
	inactive := false
	updated, err = svc.Update(context.Background(), product.ID, nil, true, UpdateInput{IsActive: &inactive})
	require.NoError(t, err)
	require.False(t, updated.IsActive)
}

func TestUpdateRejectsStockOnVariantProduct(t *testing.T) {
	t.Parallel()
	svc := newService(t, newTestDB(t))

	product, err := svc.Create(context.Background(), CreateInput{
		Name:  "Premium Hoodie",
		Price: decimal.NewFromInt(1200),
		Type:  enums.OrderTypeStandard,
		Variants: []VariantInput{
			{Size: "M", Price: decimal.NewFromInt(1200), Stock: 5},
		},
	})
	require.NoError(t, err)

	stock := 99
	_, err = svc.Update(context.Background(), product.ID, nil, true, UpdateInput{Stock: &stock})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestListActiveHidesDisabledProducts(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	svc := newService(t, db)

	visible, err := svc.Create(context.Background(), CreateInput{
		Name:  "Visible",
		Price: decimal.NewFromInt(100),
		Stock: 1,
		Type:  enums.OrderTypeStandard,
	})
	require.NoError(t, err)

	hidden, err := svc.Create(context.Background(), CreateInput{
		Name:  "Hidden",
		Price: decimal.NewFromInt(100),
		Stock: 1,
		Type:  enums.OrderTypeStandard,
	})
	require.NoError(t, err)
	off := false
	_, err = svc.Update(context.Background(), hidden.ID, nil, true, UpdateInput{IsActive: &off})
	require.NoError(t, err)

	list, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, visible.ID, list[0].ID)
}

func TestListByTenantScopesCatalog(t *testing.T) {
	t.Parallel()
	svc := newService(t, newTestDB(t))
	tenantA := uuid.New()
	tenantB := uuid.New()

	_, err := svc.Create(context.Background(), CreateInput{
		TenantID: &tenantA, Name: "A1", Price: decimal.NewFromInt(10), Stock: 1, Type: enums.OrderTypeStandard,
	})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), CreateInput{
		TenantID: &tenantB, Name: "B1", Price: decimal.NewFromInt(10), Stock: 1, Type: enums.OrderTypeStandard,
	})
	require.NoError(t, err)

	list, err := svc.ListByTenant(context.Background(), tenantA)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "A1", list[0].Name)
}
