package tenants

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
)

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:tenants_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Tenant{}); err != nil {
		t.Fatalf("migrate tenants: %v", err)
	}
	svc, err := NewService(NewRepository(db), testTxRunner{db: db})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "seller",
		PasswordHash: "x",
		Role:         enums.RoleCustomer,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestApplyAndApprovePromotesUser(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db)

	tenant, err := svc.Apply(ctx, ApplyInput{
		UserID:        user.ID,
		BusinessName:  "Peak Sports",
		BusinessEmail: "shop@peaksports.example",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if tenant.Status != enums.TenantStatusPending {
		t.Fatalf("expected pending application, got %s", tenant.Status)
	}

	approved, err := svc.Approve(ctx, tenant.ID, decimal.NewFromInt(12))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != enums.TenantStatusApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if approved.ApprovedAt == nil {
		t.Fatal("approved_at not set")
	}

	var gotUser models.User
	if err := db.First(&gotUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if gotUser.Role != enums.RoleTenant {
		t.Fatalf("expected tenant role, got %s", gotUser.Role)
	}
}

func TestApplyRejectsDuplicate(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db)

	input := ApplyInput{
		UserID:        user.ID,
		BusinessName:  "Peak Sports",
		BusinessEmail: "shop@peaksports.example",
	}
	if _, err := svc.Apply(ctx, input); err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err := svc.Apply(ctx, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestRejectedApplicantMayReapply(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db)

	tenant, err := svc.Apply(ctx, ApplyInput{
		UserID:        user.ID,
		BusinessName:  "Peak Sports",
		BusinessEmail: "shop@peaksports.example",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := svc.Reject(ctx, tenant.ID, "incomplete documents"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	again, err := svc.Apply(ctx, ApplyInput{
		UserID:        user.ID,
		BusinessName:  "Peak Sports v2",
		BusinessEmail: "shop@peaksports.example",
	})
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	if again.ID != tenant.ID {
		t.Fatalf("reapply must reuse the tenant row")
	}
	if again.Status != enums.TenantStatusPending || again.BusinessName != "Peak Sports v2" {
		t.Fatalf("unexpected reapplied tenant %+v", again)
	}
}

func TestSuspendAndReactivate(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db)

	tenant, err := svc.Apply(ctx, ApplyInput{
		UserID:        user.ID,
		BusinessName:  "Peak Sports",
		BusinessEmail: "shop@peaksports.example",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := svc.Approve(ctx, tenant.ID, decimal.NewFromInt(10)); err != nil {
		t.Fatalf("approve: %v", err)
	}

	if err := svc.Suspend(ctx, tenant.ID, "policy violation"); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	var gotUser models.User
	if err := db.First(&gotUser, "id = ?", user.ID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if gotUser.Role != enums.RoleCustomer {
		t.Fatalf("suspension must demote user, got %s", gotUser.Role)
	}

	// Approve is not the path back from suspension.
	if _, err := svc.Approve(ctx, tenant.ID, decimal.NewFromInt(10)); err == nil {
		t.Fatal("expected state conflict approving a suspended tenant")
	}

	if err := svc.Reactivate(ctx, tenant.ID); err != nil {
		t.Fatalf("reactivate: %v", err)
	}
	got, err := svc.Get(ctx, tenant.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != enums.TenantStatusApproved {
		t.Fatalf("expected approved after reactivate, got %s", got.Status)
	}
}

func TestApproveValidatesRate(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	ctx := context.Background()
	user := seedUser(t, db)

	tenant, err := svc.Apply(ctx, ApplyInput{
		UserID:        user.ID,
		BusinessName:  "Peak Sports",
		BusinessEmail: "shop@peaksports.example",
	})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}

	_, err = svc.Approve(ctx, tenant.ID, decimal.NewFromInt(101))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
