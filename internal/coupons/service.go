package coupons

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

// Source identifies which table produced the discount.
type Source string

const (
	SourceCoupon   Source = "coupon"
	SourceTreasure Source = "treasure"
	SourceOffer    Source = "offer"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Validation is the outcome of resolving and pricing a code against a cart.
type Validation struct {
	Code          string
	Source        Source
	DiscountType  enums.DiscountType
	DiscountValue decimal.Decimal
	Discount      decimal.Decimal
	FinalTotal    decimal.Decimal
}

// Service validates discount codes and records their use.
type Service interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, cartTotal decimal.Decimal) (*Validation, error)
	MarkUsed(ctx context.Context, code string, userID uuid.UUID, orderID *uuid.UUID) error
	MarkUsedTx(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID, orderID *uuid.UUID) error
	EnsureTreasureDefault(ctx context.Context) error
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds the coupon service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupons repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) Validate(ctx context.Context, code string, userID uuid.UUID, cartTotal decimal.Decimal) (*Validation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if cartTotal.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total must not be negative")
	}

	now := s.now()

	// Resolution order: coupon table, treasure code, active offer.
	if coupon, err := s.repo.FindCouponByCode(ctx, code); err == nil {
		return s.validateCoupon(ctx, coupon, userID, cartTotal, now)
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	if treasure, err := s.repo.FindActiveTreasure(ctx); err == nil {
		if strings.EqualFold(treasure.Code, code) {
			return s.validateTreasure(treasure, cartTotal, now)
		}
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load treasure config")
	}

	if offer, err := s.repo.FindActiveOfferByCode(ctx, code); err == nil {
		return s.validateOffer(offer, cartTotal, now)
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}

	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid coupon code")
}

func (s *service) validateCoupon(ctx context.Context, coupon *models.Coupon, userID uuid.UUID, cartTotal decimal.Decimal, now time.Time) (*Validation, error) {
	if err := checkWindow(coupon.StartsAt, coupon.ExpiresAt, now); err != nil {
		return nil, err
	}
	if cartTotal.LessThan(coupon.MinOrderAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total below coupon minimum")
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
	}
	if coupon.PerUserLimit != nil && userID != uuid.Nil {
		used, err := s.repo.CountRedemptions(ctx, coupon.Code, userID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count redemptions")
		}
		if used >= int64(*coupon.PerUserLimit) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "coupon already used")
		}
	}

	discount := computeDiscount(coupon.DiscountType, coupon.DiscountValue, coupon.MaxDiscount, cartTotal)
	return &Validation{
		Code:          coupon.Code,
		Source:        SourceCoupon,
		DiscountType:  coupon.DiscountType,
		DiscountValue: coupon.DiscountValue,
		Discount:      discount,
		FinalTotal:    cartTotal.Sub(discount),
	}, nil
}

func (s *service) validateTreasure(cfg *models.TreasureConfig, cartTotal decimal.Decimal, now time.Time) (*Validation, error) {
	if err := checkWindow(cfg.StartsAt, cfg.EndsAt, now); err != nil {
		return nil, err
	}
	if cartTotal.LessThan(cfg.MinOrderAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total below treasure minimum")
	}
	maxDiscount := cfg.MaxDiscount
	discount := computeDiscount(enums.DiscountTypePercentage, cfg.DiscountPercentage, &maxDiscount, cartTotal)
	return &Validation{
		Code:          strings.ToUpper(cfg.Code),
		Source:        SourceTreasure,
		DiscountType:  enums.DiscountTypePercentage,
		DiscountValue: cfg.DiscountPercentage,
		Discount:      discount,
		FinalTotal:    cartTotal.Sub(discount),
	}, nil
}

func (s *service) validateOffer(offer *models.Offer, cartTotal decimal.Decimal, now time.Time) (*Validation, error) {
	if offer.DiscountType == enums.DiscountTypeNone {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invalid coupon code")
	}
	if err := checkWindow(offer.StartsAt, offer.EndsAt, now); err != nil {
		return nil, err
	}
	if cartTotal.LessThan(offer.MinOrderAmount) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order total below offer minimum")
	}

	discount := computeDiscount(offer.DiscountType, offer.DiscountValue, offer.MaxDiscount, cartTotal)
	return &Validation{
		Code:          strings.ToUpper(offer.Code),
		Source:        SourceOffer,
		DiscountType:  offer.DiscountType,
		DiscountValue: offer.DiscountValue,
		Discount:      discount,
		FinalTotal:    cartTotal.Sub(discount),
	}, nil
}

func (s *service) MarkUsed(ctx context.Context, code string, userID uuid.UUID, orderID *uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.MarkUsedTx(ctx, tx, code, userID, orderID)
	})
}

// MarkUsedTx records a redemption inside an ambient transaction so checkout
// can fold it into order creation.
func (s *service) MarkUsedTx(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID, orderID *uuid.UUID) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon code required")
	}
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	repo := s.repo.WithTx(tx)

	// Only coupon-table codes carry a global usage counter.
	if _, err := repo.FindCouponByCode(ctx, code); err == nil {
		bumped, err := repo.IncrementCouponUsage(ctx, code)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "increment coupon usage")
		}
		if !bumped {
			return pkgerrors.New(pkgerrors.CodeConflict, "coupon usage limit reached")
		}
	} else if err != gorm.ErrRecordNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load coupon")
	}

	redemption := &models.CouponRedemption{
		Code:    code,
		UserID:  userID,
		OrderID: orderID,
	}
	if err := repo.CreateRedemption(ctx, redemption); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record redemption")
	}
	return nil
}

// EnsureTreasureDefault seeds the hidden-code singleton on startup.
func (s *service) EnsureTreasureDefault(ctx context.Context) error {
	seed := models.TreasureConfig{
		Code:               "PEAKTREASURE",
		DiscountPercentage: decimal.NewFromInt(10),
		MaxDiscount:        decimal.NewFromInt(500),
		MinOrderAmount:     decimal.NewFromInt(999),
		IsActive:           false,
	}
	if err := s.repo.EnsureTreasureDefault(ctx, seed); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "seed treasure config")
	}
	return nil
}

func checkWindow(startsAt, endsAt *time.Time, now time.Time) error {
	if startsAt != nil && now.Before(*startsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon not active yet")
	}
	if endsAt != nil && now.After(*endsAt) {
		return pkgerrors.New(pkgerrors.CodeValidation, "coupon expired")
	}
	return nil
}

func computeDiscount(discountType enums.DiscountType, value decimal.Decimal, maxDiscount *decimal.Decimal, cartTotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch discountType {
	case enums.DiscountTypePercentage:
		discount = cartTotal.Mul(value).Div(decimal.NewFromInt(100)).Round(2)
		if maxDiscount != nil && discount.GreaterThan(*maxDiscount) {
			discount = *maxDiscount
		}
	case enums.DiscountTypeFixed:
		discount = value
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(cartTotal) {
		discount = cartTotal
	}
	if discount.IsNegative() {
		return decimal.Zero
	}
	return discount
}
