package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:coupons_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Coupon{},
		&models.CouponRedemption{},
		&models.Offer{},
		&models.TreasureConfig{},
	); err != nil {
		t.Fatalf("migrate coupons: %v", err)
	}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedCoupon(t *testing.T, db *gorm.DB, mutate func(*models.Coupon)) *models.Coupon {
	t.Helper()
	coupon := &models.Coupon{
		ID:             uuid.New(),
		Code:           "SAVE10",
		DiscountType:   enums.DiscountTypePercentage,
		DiscountValue:  decimal.NewFromInt(10),
		MinOrderAmount: decimal.NewFromInt(100),
		IsActive:       true,
	}
	if mutate != nil {
		mutate(coupon)
	}
	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
	return coupon
}

func TestValidatePercentageCoupon(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	seedCoupon(t, db, nil)

	// Lowercase input resolves the uppercase stored code.
	got, err := svc.Validate(ctx, "save10", uuid.New(), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Source != SourceCoupon {
		t.Fatalf("expected coupon source, got %s", got.Source)
	}
	if !got.Discount.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected discount 50, got %s", got.Discount)
	}
	if !got.FinalTotal.Equal(decimal.NewFromInt(450)) {
		t.Fatalf("expected final total 450, got %s", got.FinalTotal)
	}
}

func TestValidateAppliesMaxDiscountCap(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	cap := decimal.NewFromInt(30)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.MaxDiscount = &cap
	})

	got, err := svc.Validate(ctx, "SAVE10", uuid.New(), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !got.Discount.Equal(cap) {
		t.Fatalf("expected capped discount 30, got %s", got.Discount)
	}
}

func TestValidateFixedDiscountNeverExceedsTotal(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "FLAT200"
		c.DiscountType = enums.DiscountTypeFixed
		c.DiscountValue = decimal.NewFromInt(200)
		c.MinOrderAmount = decimal.NewFromInt(100)
	})

	got, err := svc.Validate(ctx, "FLAT200", uuid.New(), decimal.NewFromInt(150))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !got.Discount.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("discount must clamp to total, got %s", got.Discount)
	}
	if !got.FinalTotal.IsZero() {
		t.Fatalf("expected zero final total, got %s", got.FinalTotal)
	}
}

func TestValidateRejectsBelowMinimum(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	seedCoupon(t, db, nil)

	_, err := svc.Validate(ctx, "SAVE10", uuid.New(), decimal.NewFromInt(99))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsOutsideWindow(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "EXPIRED"
		c.ExpiresAt = &past
	})
	future := time.Now().Add(time.Hour)
	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "NOTYET"
		c.StartsAt = &future
	})

	for _, code := range []string{"EXPIRED", "NOTYET"} {
		_, err := svc.Validate(ctx, code, uuid.New(), decimal.NewFromInt(500))
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected window rejection for %s, got %v", code, err)
		}
	}
}

func TestValidateEnforcesUsageLimits(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	limit := 2
	seedCoupon(t, db, func(c *models.Coupon) {
		c.UsageLimit = &limit
		c.UsedCount = 2
	})

	_, err := svc.Validate(ctx, "SAVE10", uuid.New(), decimal.NewFromInt(500))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for exhausted coupon, got %v", err)
	}
}

func TestValidateEnforcesPerUserLimit(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	perUser := 1
	seedCoupon(t, db, func(c *models.Coupon) {
		c.PerUserLimit = &perUser
	})

	userID := uuid.New()
	if err := svc.MarkUsed(ctx, "SAVE10", userID, nil); err != nil {
		t.Fatalf("mark used: %v", err)
	}

	_, err := svc.Validate(ctx, "SAVE10", userID, decimal.NewFromInt(500))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected per-user rejection, got %v", err)
	}

	// A different user is still fine.
	if _, err := svc.Validate(ctx, "SAVE10", uuid.New(), decimal.NewFromInt(500)); err != nil {
		t.Fatalf("other user should validate: %v", err)
	}
}

func TestValidateFallsBackToTreasureThenOffer(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	if err := db.Create(&models.TreasureConfig{
		ID:                 uuid.New(),
		Code:               "HIDDEN",
		DiscountPercentage: decimal.NewFromInt(20),
		MaxDiscount:        decimal.NewFromInt(100),
		MinOrderAmount:     decimal.NewFromInt(200),
		IsActive:           true,
	}).Error; err != nil {
		t.Fatalf("seed treasure: %v", err)
	}
	if err := db.Create(&models.Offer{
		ID:            uuid.New(),
		Title:         "festival",
		Code:          "FEST5",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(5),
		IsActive:      true,
	}).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	treasure, err := svc.Validate(ctx, "hidden", uuid.New(), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("treasure validate: %v", err)
	}
	if treasure.Source != SourceTreasure {
		t.Fatalf("expected treasure source, got %s", treasure.Source)
	}
	if !treasure.Discount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected treasure cap 100, got %s", treasure.Discount)
	}

	offer, err := svc.Validate(ctx, "FEST5", uuid.New(), decimal.NewFromInt(50))
	if err != nil {
		t.Fatalf("offer validate: %v", err)
	}
	if offer.Source != SourceOffer {
		t.Fatalf("expected offer source, got %s", offer.Source)
	}
}

func TestValidateTreasureHonoursWindow(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	seed := func(startsAt, endsAt *time.Time) {
		if err := db.Where("1 = 1").Delete(&models.TreasureConfig{}).Error; err != nil {
			t.Fatalf("reset treasure: %v", err)
		}
		if err := db.Create(&models.TreasureConfig{
			ID:                 uuid.New(),
			Code:               "HIDDEN",
			DiscountPercentage: decimal.NewFromInt(20),
			MaxDiscount:        decimal.NewFromInt(100),
			IsActive:           true,
			StartsAt:           startsAt,
			EndsAt:             endsAt,
		}).Error; err != nil {
			t.Fatalf("seed treasure: %v", err)
		}
	}

	future := time.Now().Add(24 * time.Hour)
	seed(&future, nil)
	_, err := svc.Validate(ctx, "HIDDEN", uuid.New(), decimal.NewFromInt(1000))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected rejection before the window opens, got %v", err)
	}

	past := time.Now().Add(-24 * time.Hour)
	seed(nil, &past)
	_, err = svc.Validate(ctx, "HIDDEN", uuid.New(), decimal.NewFromInt(1000))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected rejection after the window closes, got %v", err)
	}

	opened := time.Now().Add(-time.Hour)
	closes := time.Now().Add(time.Hour)
	seed(&opened, &closes)
	got, err := svc.Validate(ctx, "HIDDEN", uuid.New(), decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("in-window validate: %v", err)
	}
	if got.Source != SourceTreasure {
		t.Fatalf("expected treasure source, got %s", got.Source)
	}
}

func TestValidateCouponShadowsOffer(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	seedCoupon(t, db, func(c *models.Coupon) {
		c.Code = "DOUBLE"
		c.DiscountValue = decimal.NewFromInt(10)
	})
	if err := db.Create(&models.Offer{
		ID:            uuid.New(),
		Title:         "shadowed",
		Code:          "DOUBLE",
		DiscountType:  enums.DiscountTypeFixed,
		DiscountValue: decimal.NewFromInt(999),
		IsActive:      true,
	}).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	got, err := svc.Validate(ctx, "DOUBLE", uuid.New(), decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got.Source != SourceCoupon {
		t.Fatalf("coupon table must win, got %s", got.Source)
	}
}

func TestValidateUnknownCode(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Validate(context.Background(), "NOPE", uuid.New(), decimal.NewFromInt(500))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMarkUsedGuardsGlobalLimit(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	limit := 1
	seedCoupon(t, db, func(c *models.Coupon) {
		c.UsageLimit = &limit
	})

	if err := svc.MarkUsed(ctx, "SAVE10", uuid.New(), nil); err != nil {
		t.Fatalf("first use: %v", err)
	}

	err := svc.MarkUsed(ctx, "SAVE10", uuid.New(), nil)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on exhausted coupon, got %v", err)
	}

	var coupon models.Coupon
	if err := db.First(&coupon, "code = ?", "SAVE10").Error; err != nil {
		t.Fatalf("load coupon: %v", err)
	}
	if coupon.UsedCount != 1 {
		t.Fatalf("used count must stay at limit, got %d", coupon.UsedCount)
	}
}

func TestEnsureTreasureDefaultSeedsOnce(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()

	if err := svc.EnsureTreasureDefault(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.EnsureTreasureDefault(ctx); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	var count int64
	if err := db.Model(&models.TreasureConfig{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one treasure row, got %d", count)
	}
}
