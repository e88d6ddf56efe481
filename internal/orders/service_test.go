package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/internal/cart"
	"github.com/peakkart/peakkart-backend/internal/coupons"
	"github.com/peakkart/peakkart-backend/internal/inventory"
	"github.com/peakkart/peakkart-backend/internal/tenants"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/pagination"
	"github.com/peakkart/peakkart-backend/pkg/types"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type fixture struct {
	db  *gorm.DB
	svc Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Tenant{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusEntry{},
		&models.Coupon{},
		&models.CouponRedemption{},
		&models.Offer{},
		&models.TreasureConfig{},
		&models.CartRecord{},
		&models.CartItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	runner := testTxRunner{db: db}
	couponSvc, err := coupons.NewService(coupons.NewRepository(db), runner)
	if err != nil {
		t.Fatalf("coupon service: %v", err)
	}

	svc, err := NewService(
		NewRepository(db),
		runner,
		inventory.NewLedger(),
		couponSvc,
		productReaderFor(db),
		tenants.NewRepository(db),
		cart.NewCloser(cart.NewRepository(db)),
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("orders service: %v", err)
	}
	return &fixture{db: db, svc: svc}
}

type productReader struct {
	db *gorm.DB
}

func productReaderFor(db *gorm.DB) productReader {
	return productReader{db: db}
}

func (r productReader) FindByIDWithVariants(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Preload("Variants").Where("id = ?", id).First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func testAddress() types.Address {
	return types.Address{
		FullName:   "Asha Rao",
		Phone:      "9999999999",
		Line1:      "12 Hill Road",
		City:       "Mumbai",
		State:      "MH",
		PostalCode: "400050",
		Country:    "IN",
	}
}

func (f *fixture) seedUser(t *testing.T) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "buyer",
		PasswordHash: "x",
		Role:         enums.RoleCustomer,
	}
	if err := f.db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *fixture) seedProduct(t *testing.T, price int64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:    uuid.New(),
		Name:  "trail shoe",
		Price: decimal.NewFromInt(price),
		Type:  enums.OrderTypeStandard,
		Stock: stock,
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

func TestCreateOrderHappyPath(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	product := f.seedProduct(t, 300, 10)

	order, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if len(order.OrderNumber) != 12 || order.OrderNumber[:2] != "PK" {
		t.Fatalf("unexpected order number %q", order.OrderNumber)
	}
	// 600 subtotal clears the free shipping threshold.
	if !order.Total.Equal(decimal.NewFromInt(600)) {
		t.Fatalf("expected total 600, got %s", order.Total)
	}

	var got models.Product
	if err := f.db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.Stock != 8 {
		t.Fatalf("expected stock 8 after reservation, got %d", got.Stock)
	}

	loaded, err := f.svc.Get(ctx, order.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(loaded.StatusHistory) != 1 || loaded.StatusHistory[0].Status != "pending" {
		t.Fatalf("expected seeded history, got %+v", loaded.StatusHistory)
	}
	if loaded.StatusHistory[0].Note == nil || *loaded.StatusHistory[0].Note != "Order placed successfully" {
		t.Fatalf("unexpected seed note %+v", loaded.StatusHistory[0].Note)
	}
}

func TestCreateOrderAppliesShippingBelowThreshold(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	product := f.seedProduct(t, 100, 5)

	order, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !order.ShippingFee.Equal(decimal.NewFromInt(49)) {
		t.Fatalf("expected shipping 49, got %s", order.ShippingFee)
	}
	if !order.Total.Equal(decimal.NewFromInt(149)) {
		t.Fatalf("expected total 149, got %s", order.Total)
	}
}

func TestCreateOrderChargesGiftWrap(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	wrapped := f.seedProduct(t, 300, 10)
	plain := f.seedProduct(t, 300, 10)

	photo := "https://cdn.example.com/uploads/mug-photo.png"
	order, err := f.svc.Create(ctx, CreateInput{
		UserID: user.ID,
		Items: []ItemInput{
			{ProductID: wrapped.ID, Quantity: 1, GiftWrap: true, CustomPhoto: &photo},
			{ProductID: plain.ID, Quantity: 1},
		},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !order.GiftWrapFee.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected gift wrap fee 30, got %s", order.GiftWrapFee)
	}
	if !order.TaxAmount.Equal(decimal.Zero) {
		t.Fatalf("expected zero tax, got %s", order.TaxAmount)
	}
	// 600 subtotal, free shipping, plus the wrap fee.
	if !order.Total.Equal(decimal.NewFromInt(630)) {
		t.Fatalf("expected total 630, got %s", order.Total)
	}

	var items []models.OrderItem
	if err := f.db.Where("order_id = ?", order.ID).Order("gift_wrap DESC").Find(&items).Error; err != nil {
		t.Fatalf("load items: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[0].GiftWrap || items[0].CustomPhoto == nil || *items[0].CustomPhoto != photo {
		t.Fatalf("wrapped line not persisted: %+v", items[0])
	}
	if items[1].GiftWrap || items[1].CustomPhoto != nil {
		t.Fatalf("plain line gained wrap fields: %+v", items[1])
	}
}

func TestCreateOrderRollsBackOnPartialStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	plenty := f.seedProduct(t, 300, 10)
	scarce := f.seedProduct(t, 300, 1)

	_, err := f.svc.Create(ctx, CreateInput{
		UserID: user.ID,
		Items: []ItemInput{
			{ProductID: plenty.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 3},
		},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	// The whole transaction rolls back, including the earlier reservation.
	var got models.Product
	if err := f.db.First(&got, "id = ?", plenty.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.Stock != 10 {
		t.Fatalf("expected rollback to restore stock 10, got %d", got.Stock)
	}

	var count int64
	if err := f.db.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("no order should persist, got %d", count)
	}
}

func TestCreateOrderWithCouponMarksUsage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	product := f.seedProduct(t, 500, 5)

	limit := 5
	if err := f.db.Create(&models.Coupon{
		ID:             uuid.New(),
		Code:           "SAVE10",
		DiscountType:   enums.DiscountTypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: decimal.NewFromInt(100),
		UsageLimit:     &limit,
		IsActive:       true,
	}).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	code := "save10"
	order, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodRazorpay,
		ShippingAddress: testAddress(),
		CouponCode:      &code,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if !order.DiscountAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected discount 50, got %s", order.DiscountAmount)
	}
	if order.CouponCode == nil || *order.CouponCode != "SAVE10" {
		t.Fatalf("expected coupon code snapshot, got %v", order.CouponCode)
	}

	var coupon models.Coupon
	if err := f.db.First(&coupon, "code = ?", "SAVE10").Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if coupon.UsedCount != 1 {
		t.Fatalf("expected used_count 1, got %d", coupon.UsedCount)
	}

	var redemptions int64
	if err := f.db.Model(&models.CouponRedemption{}).
		Where("user_id = ?", user.ID).Count(&redemptions).Error; err != nil {
		t.Fatalf("count redemptions: %v", err)
	}
	if redemptions != 1 {
		t.Fatalf("expected one redemption row, got %d", redemptions)
	}
}

func TestCreateOrderConvertsActiveCart(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	product := f.seedProduct(t, 300, 5)

	cartRow := &models.CartRecord{ID: uuid.New(), UserID: user.ID}
	if err := f.db.Create(cartRow).Error; err != nil {
		t.Fatalf("seed cart: %v", err)
	}

	if _, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	var got models.CartRecord
	if err := f.db.First(&got, "id = ?", cartRow.ID).Error; err != nil {
		t.Fatalf("load cart: %v", err)
	}
	if got.Status != enums.CartStatusConverted {
		t.Fatalf("expected converted cart, got %s", got.Status)
	}
}

func TestCreateBookingValidatesConfig(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)

	product := &models.Product{
		ID:    uuid.New(),
		Name:  "city tour",
		Price: decimal.NewFromInt(1000),
		Type:  enums.OrderTypeBooking,
		BookingConfig: &types.BookingConfig{
			LeadDays:             2,
			MinQty:               1,
			MaxQty:               4,
			AllowedCities:        []string{"Mumbai"},
			CommissionPercentage: decimal.NewFromInt(15),
		},
	}
	if err := f.db.Create(product).Error; err != nil {
		t.Fatalf("seed booking product: %v", err)
	}

	base := BookingInput{
		UserID:          user.ID,
		ProductID:       product.ID,
		Quantity:        2,
		BookingDate:     time.Now().AddDate(0, 0, 5),
		PaymentMethod:   enums.PaymentMethodRazorpay,
		ShippingAddress: testAddress(),
	}

	// Lead time violation.
	early := base
	early.BookingDate = time.Now()
	if _, err := f.svc.CreateBooking(ctx, early); err == nil {
		t.Fatal("expected lead time rejection")
	}

	// Quantity bounds.
	tooMany := base
	tooMany.Quantity = 5
	if _, err := f.svc.CreateBooking(ctx, tooMany); err == nil {
		t.Fatal("expected quantity rejection")
	}

	// Disallowed city.
	elsewhere := base
	elsewhere.ShippingAddress.City = "Delhi"
	if _, err := f.svc.CreateBooking(ctx, elsewhere); err == nil {
		t.Fatal("expected city rejection")
	}

	order, err := f.svc.CreateBooking(ctx, base)
	if err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if order.Type != enums.OrderTypeBooking {
		t.Fatalf("expected booking type, got %s", order.Type)
	}
	// Vendor info travels on tenant_id alone; the routing flag is
	// reserved for formally routed orders.
	if order.RoutedToTenant {
		t.Fatal("booking must not be marked as routed")
	}
	// Commission settled eagerly: 15% of 2000.
	if order.CommissionAmount == nil || !order.CommissionAmount.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected commission 300, got %v", order.CommissionAmount)
	}
}

func TestUpdateStatusGuardsTransitions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	product := f.seedProduct(t, 300, 5)

	order, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	admin := uuid.New()
	updated, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusShipped,
		ActorID:   admin,
		ActorRole: enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("forward skip transition: %v", err)
	}
	if updated.Status != enums.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", updated.Status)
	}

	// Backwards is rejected.
	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusAccepted,
		ActorID:   admin,
		ActorRole: enums.RoleAdmin,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	delivered, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusDelivered,
		ActorID:   admin,
		ActorRole: enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.DeliveredAt == nil {
		t.Fatal("delivered_at not set")
	}

	// Terminal states accept nothing.
	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusCancelled,
		ActorID:   admin,
		ActorRole: enums.RoleAdmin,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected terminal rejection, got %v", err)
	}
}

func TestDeliveredComputesCommissionOnce(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	seller := f.seedUser(t)
	product := f.seedProduct(t, 500, 5)

	tenant := &models.Tenant{
		ID:             uuid.New(),
		UserID:         seller.ID,
		BusinessName:   "Peak Sports",
		BusinessEmail:  "shop@peaksports.example",
		CommissionRate: decimal.NewFromInt(10),
		Status:         enums.TenantStatusApproved,
	}
	if err := f.db.Create(tenant).Error; err != nil {
		t.Fatalf("seed tenant: %v", err)
	}

	order, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.db.Model(&models.Order{}).Where("id = ?", order.ID).
		Updates(map[string]any{"tenant_id": tenant.ID, "routed_to_tenant": true}).Error; err != nil {
		t.Fatalf("assign tenant: %v", err)
	}

	admin := uuid.New()
	delivered, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:   order.ID,
		NewStatus: enums.OrderStatusDelivered,
		ActorID:   admin,
		ActorRole: enums.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	// 10% of 500.
	if delivered.CommissionAmount == nil || !delivered.CommissionAmount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected commission 50, got %v", delivered.CommissionAmount)
	}
}

func TestCancelRestoresStockAndAuthorizes(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	stranger := f.seedUser(t)
	product := f.seedProduct(t, 300, 5)

	order, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 2}},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = f.svc.Cancel(ctx, CancelInput{
		OrderID:   order.ID,
		ActorID:   stranger.ID,
		ActorRole: enums.RoleCustomer,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for stranger, got %v", err)
	}

	cancelled, err := f.svc.Cancel(ctx, CancelInput{
		OrderID:   order.ID,
		Reason:    "changed my mind",
		ActorID:   user.ID,
		ActorRole: enums.RoleCustomer,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("unexpected cancel state %+v", cancelled.Status)
	}

	var got models.Product
	if err := f.db.First(&got, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("load product: %v", err)
	}
	if got.Stock != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got.Stock)
	}

	// Cancelling again hits the terminal guard.
	_, err = f.svc.Cancel(ctx, CancelInput{
		OrderID:   order.ID,
		ActorID:   user.ID,
		ActorRole: enums.RoleCustomer,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestTenantCannotUpdateForeignOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	product := f.seedProduct(t, 300, 5)

	order, err := f.svc.Create(ctx, CreateInput{
		UserID:          user.ID,
		Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
		PaymentMethod:   enums.PaymentMethodCashOnDelivery,
		ShippingAddress: testAddress(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	otherTenant := uuid.New()
	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:       order.ID,
		NewStatus:     enums.OrderStatusProcessing,
		ActorID:       uuid.New(),
		ActorRole:     enums.RoleTenant,
		ActorTenantID: &otherTenant,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListByUserPaginates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	user := f.seedUser(t)
	product := f.seedProduct(t, 300, 100)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.Create(ctx, CreateInput{
			UserID:          user.ID,
			Items:           []ItemInput{{ProductID: product.ID, Quantity: 1}},
			PaymentMethod:   enums.PaymentMethodCashOnDelivery,
			ShippingAddress: testAddress(),
		}); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	got, err := f.svc.ListByUser(ctx, user.ID, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	// Limit+1 buffer rows signal the next page.
	if len(got) != 3 {
		t.Fatalf("expected buffered page of 3, got %d", len(got))
	}
}
