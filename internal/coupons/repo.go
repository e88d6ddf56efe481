package coupons

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
)

// Repository loads discount sources and records redemptions.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
	FindActiveTreasure(ctx context.Context) (*models.TreasureConfig, error)
	FindActiveOfferByCode(ctx context.Context, code string) (*models.Offer, error)
	CountRedemptions(ctx context.Context, code string, userID uuid.UUID) (int64, error)
	IncrementCouponUsage(ctx context.Context, code string) (bool, error)
	CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error
	CreateCoupon(ctx context.Context, coupon *models.Coupon) error
	EnsureTreasureDefault(ctx context.Context, seed models.TreasureConfig) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a coupons repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindCouponByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", strings.ToUpper(code), true).
		First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

func (r *repository) FindActiveTreasure(ctx context.Context) (*models.TreasureConfig, error) {
	var cfg models.TreasureConfig
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at DESC").
		First(&cfg).Error
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *repository) FindActiveOfferByCode(ctx context.Context, code string) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("UPPER(code) = ? AND is_active = ?", strings.ToUpper(code), true).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) CountRedemptions(ctx context.Context, code string, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponRedemption{}).
		Where("code = ? AND user_id = ?", strings.ToUpper(code), userID).
		Count(&count).Error
	return count, err
}

// IncrementCouponUsage bumps used_count only while the global limit holds.
// The false return means the coupon ran out between validation and use.
func (r *repository) IncrementCouponUsage(ctx context.Context, code string) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE coupons
		SET used_count = used_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE code = ? AND is_active = ?
			AND (usage_limit IS NULL OR used_count < usage_limit)
	`, strings.ToUpper(code), true)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) CreateRedemption(ctx context.Context, redemption *models.CouponRedemption) error {
	redemption.Code = strings.ToUpper(redemption.Code)
	return r.db.WithContext(ctx).Create(redemption).Error
}

func (r *repository) CreateCoupon(ctx context.Context, coupon *models.Coupon) error {
	coupon.Code = strings.ToUpper(coupon.Code)
	return r.db.WithContext(ctx).Create(coupon).Error
}

// EnsureTreasureDefault seeds the singleton row when none exists yet.
func (r *repository) EnsureTreasureDefault(ctx context.Context, seed models.TreasureConfig) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.TreasureConfig{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&seed).Error
}
