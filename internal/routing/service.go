package routing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/internal/orders"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/metrics"
	"github.com/peakkart/peakkart-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TenantReader resolves tenants for assignment checks.
type TenantReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*models.Tenant, error)
}

// AssignInput is an admin-directed routing request.
type AssignInput struct {
	OrderID  uuid.UUID
	TenantID uuid.UUID
	ActorID  uuid.UUID
	// NotifyOnly pings the tenant about the order without claiming it,
	// leaving the order open for a first-accept race.
	NotifyOnly bool
}

// AcceptInput is a tenant pulling an open order for itself.
type AcceptInput struct {
	OrderID      uuid.UUID
	TenantUserID uuid.UUID
}

// Service routes orders to tenants. Assignment is first-writer-wins: the
// claim flips routed_to_tenant exactly once no matter how many admins or
// tenants race for the same order.
type Service interface {
	Assign(ctx context.Context, input AssignInput) (*models.Order, error)
	Accept(ctx context.Context, input AcceptInput) (*models.Order, error)
	ListVisible(ctx context.Context, tenantUserID uuid.UUID, params pagination.Params) ([]models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	tenants  TenantReader
	notifier orders.Notifier
	metrics  *metrics.OrderMetrics
}

// NewService wires the routing service. Notifier and metrics may be nil.
func NewService(repo Repository, tx txRunner, tenants TenantReader, notifier orders.Notifier, m *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "routing repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if tenants == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant reader required")
	}
	return &service{repo: repo, tx: tx, tenants: tenants, notifier: notifier, metrics: m}, nil
}

func (s *service) Assign(ctx context.Context, input AssignInput) (*models.Order, error) {
	tenant, err := s.approvedTenant(ctx, input.TenantID)
	if err != nil {
		return nil, err
	}

	if input.NotifyOnly {
		order, err := s.openOrder(ctx, input.OrderID)
		if err != nil {
			return nil, err
		}
		s.notify(ctx, order, tenant)
		return order, nil
	}

	order, err := s.claim(ctx, input.OrderID, tenant, input.ActorID, enums.RoleAdmin)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, order, tenant)
	return order, nil
}

func (s *service) Accept(ctx context.Context, input AcceptInput) (*models.Order, error) {
	tenant, err := s.tenants.FindByUserID(ctx, input.TenantUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load tenant")
	}
	if tenant.Status != enums.TenantStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant is not approved")
	}
	return s.claim(ctx, input.OrderID, tenant, input.TenantUserID, enums.RoleTenant)
}

func (s *service) ListVisible(ctx context.Context, tenantUserID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	tenant, err := s.tenants.FindByUserID(ctx, tenantUserID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load tenant")
	}
	rows, err := s.repo.ListVisible(ctx, tenant.ID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list orders")
	}
	return rows, nil
}

// claim performs the single-winner assignment and appends the audit entry.
func (s *service) claim(ctx context.Context, orderID uuid.UUID, tenant *models.Tenant, actorID uuid.UUID, actorRole enums.Role) (*models.Order, error) {
	var claimed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		won, err := repo.Claim(ctx, orderID, tenant.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to claim order")
		}
		if !won {
			if s.metrics != nil {
				s.metrics.IncRoutingConflict()
			}
			// Distinguish a missing order from a lost race.
			if _, err := repo.FindOrder(ctx, orderID); err != nil {
				if err == gorm.ErrRecordNotFound {
					return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order")
			}
			return pkgerrors.New(pkgerrors.CodeConflict, "order already routed to a tenant")
		}

		role := actorRole.String()
		note := "Order routed to " + tenant.BusinessName
		entry := &models.OrderStatusEntry{
			OrderID:   orderID,
			Status:    enums.OrderStatusAssigned,
			Note:      &note,
			ActorID:   &actorID,
			ActorRole: &role,
		}
		if err := repo.AppendEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to record assignment")
		}

		claimed, err = repo.FindOrder(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// openOrder loads an order that has not yet been routed.
func (s *service) openOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load order")
	}
	if order.RoutedToTenant {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order already routed to a tenant")
	}
	return order, nil
}

func (s *service) approvedTenant(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	tenant, err := s.tenants.FindByID(ctx, tenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load tenant")
	}
	if tenant.Status != enums.TenantStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant is not approved")
	}
	return tenant, nil
}

// notify pings the tenant's linked user. Best effort, never fails the call.
func (s *service) notify(ctx context.Context, order *models.Order, tenant *models.Tenant) {
	if s.notifier == nil {
		return
	}
	tenantID := tenant.ID
	s.notifier.OrderEvent(ctx, orders.OrderEvent{
		Event:       "order.routed",
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      tenant.UserID,
		TenantID:    &tenantID,
		Status:      order.Status.String(),
		Total:       order.Total,
	})
}
