package routing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	"github.com/peakkart/peakkart-backend/pkg/pagination"
)

// Repository covers the order-routing persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Claim atomically assigns an unclaimed order to a tenant. It reports
	// whether this caller won the assignment.
	Claim(ctx context.Context, orderID, tenantID uuid.UUID) (bool, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	AppendEntry(ctx context.Context, entry *models.OrderStatusEntry) error
	ListVisible(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Order, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Claim(ctx context.Context, orderID, tenantID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND routed_to_tenant = ?", orderID, false).
		Updates(map[string]any{
			"tenant_id":        tenantID,
			"routed_to_tenant": true,
			"status":           enums.OrderStatusPending,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) AppendEntry(ctx context.Context, entry *models.OrderStatusEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListVisible returns the tenant's routed orders plus the unassigned pool.
// Booking orders stay out of the pool; they carry vendor info at creation
// without going through formal routing.
func (r *repository) ListVisible(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("(routed_to_tenant = ? AND type = ?) OR tenant_id = ?", false, enums.OrderTypeStandard, tenantID)

	if cursor, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, err
	} else if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var orders []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
