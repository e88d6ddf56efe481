package tenants

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

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ApplyInput is the seller application submitted by a customer account.
type ApplyInput struct {
	UserID        uuid.UUID
	BusinessName  string
	BusinessEmail string
	BusinessPhone *string
	Description   *string
}

// Service manages the tenant onboarding lifecycle. Approval flips the linked
// user to the tenant role; suspension and rejection flip it back.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*models.Tenant, error)
	Approve(ctx context.Context, tenantID uuid.UUID, commissionRate decimal.Decimal) (*models.Tenant, error)
	Reject(ctx context.Context, tenantID uuid.UUID, reason string) error
	Suspend(ctx context.Context, tenantID uuid.UUID, reason string) error
	Reactivate(ctx context.Context, tenantID uuid.UUID) error
	Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error)
	List(ctx context.Context, status *string) ([]models.Tenant, error)
}

type service struct {
	repo Repository
	tx   txRunner
	now  func() time.Time
}

// NewService builds the tenant onboarding service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenants repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	return &service{repo: repo, tx: tx, now: time.Now}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*models.Tenant, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.BusinessName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business name required")
	}
	if strings.TrimSpace(input.BusinessEmail) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "business email required")
	}

	if existing, err := s.repo.FindByUserID(ctx, input.UserID); err == nil {
		if existing.Status == enums.TenantStatusRejected {
			// Rejected applicants may reapply in place.
			err := s.repo.Update(ctx, existing.ID, map[string]any{
				"business_name":  strings.TrimSpace(input.BusinessName),
				"business_email": strings.TrimSpace(input.BusinessEmail),
				"business_phone": input.BusinessPhone,
				"description":    input.Description,
				"status":         enums.TenantStatusPending,
				"status_reason":  nil,
			})
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reapply tenant")
			}
			return s.repo.FindByID(ctx, existing.ID)
		}
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "tenant application already exists")
	} else if err != gorm.ErrRecordNotFound {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing tenant")
	}

	tenant := &models.Tenant{
		UserID:        input.UserID,
		BusinessName:  strings.TrimSpace(input.BusinessName),
		BusinessEmail: strings.TrimSpace(input.BusinessEmail),
		BusinessPhone: input.BusinessPhone,
		Description:   input.Description,
		Status:        enums.TenantStatusPending,
	}
	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tenant")
	}
	return tenant, nil
}

func (s *service) Approve(ctx context.Context, tenantID uuid.UUID, commissionRate decimal.Decimal) (*models.Tenant, error) {
	if commissionRate.IsNegative() || commissionRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
	}

	var approved *models.Tenant
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tenant, err := loadTenant(ctx, repo, tenantID)
		if err != nil {
			return err
		}
		if tenant.Status == enums.TenantStatusApproved {
			approved = tenant
			return nil
		}
		if tenant.Status == enums.TenantStatusSuspended {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "use reactivate for suspended tenants")
		}

		now := s.now()
		updates := map[string]any{
			"status":          enums.TenantStatusApproved,
			"status_reason":   nil,
			"commission_rate": commissionRate,
			"approved_at":     now,
		}
		if err := repo.Update(ctx, tenant.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "approve tenant")
		}
		if err := repo.UpdateUserRole(ctx, tenant.UserID, string(enums.RoleTenant)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "promote tenant user")
		}

		tenant.Status = enums.TenantStatusApproved
		tenant.CommissionRate = commissionRate
		tenant.ApprovedAt = &now
		approved = tenant
		return nil
	})
	if err != nil {
		return nil, err
	}
	return approved, nil
}

func (s *service) Reject(ctx context.Context, tenantID uuid.UUID, reason string) error {
	return s.transition(ctx, tenantID, enums.TenantStatusRejected, reason,
		[]enums.TenantStatus{enums.TenantStatusPending}, true)
}

func (s *service) Suspend(ctx context.Context, tenantID uuid.UUID, reason string) error {
	return s.transition(ctx, tenantID, enums.TenantStatusSuspended, reason,
		[]enums.TenantStatus{enums.TenantStatusApproved}, true)
}

func (s *service) Reactivate(ctx context.Context, tenantID uuid.UUID) error {
	return s.transition(ctx, tenantID, enums.TenantStatusApproved, "",
		[]enums.TenantStatus{enums.TenantStatusSuspended}, false)
}

func (s *service) transition(ctx context.Context, tenantID uuid.UUID, target enums.TenantStatus, reason string, allowedFrom []enums.TenantStatus, demote bool) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		tenant, err := loadTenant(ctx, repo, tenantID)
		if err != nil {
			return err
		}
		if tenant.Status == target {
			return nil
		}
		if !contains(allowedFrom, tenant.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "tenant cannot move to "+string(target)+" from "+string(tenant.Status))
		}

		updates := map[string]any{"status": target}
		if reason != "" {
			updates["status_reason"] = reason
		} else {
			updates["status_reason"] = nil
		}
		if err := repo.Update(ctx, tenant.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tenant status")
		}

		role := enums.RoleTenant
		if demote && target != enums.TenantStatusApproved {
			role = enums.RoleCustomer
		}
		if err := repo.UpdateUserRole(ctx, tenant.UserID, string(role)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update tenant user role")
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, tenantID uuid.UUID) (*models.Tenant, error) {
	return loadTenant(ctx, s.repo, tenantID)
}

func (s *service) List(ctx context.Context, status *string) ([]models.Tenant, error) {
	tenants, err := s.repo.List(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenants")
	}
	return tenants, nil
}

func loadTenant(ctx context.Context, repo Repository, tenantID uuid.UUID) (*models.Tenant, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	tenant, err := repo.FindByID(ctx, tenantID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant")
	}
	return tenant, nil
}

func contains(list []enums.TenantStatus, status enums.TenantStatus) bool {
	for _, candidate := range list {
		if candidate == status {
			return true
		}
	}
	return false
}
