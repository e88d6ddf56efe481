package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/internal/orders"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/pagination"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDispatcherPersistsOrderEvents(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	dispatcher := NewDispatcher(NewRepository(db), nil, nil)

	userID := uuid.New()
	dispatcher.OrderEvent(context.Background(), orders.OrderEvent{
		Event:       "order.created",
		OrderID:     uuid.New(),
		OrderNumber: "PK2509010042",
		UserID:      userID,
		Status:      "pending",
		Total:       decimal.NewFromInt(649),
	})

	var rows []models.Notification
	if err := db.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one stored notification, got %d", len(rows))
	}
	row := rows[0]
	if row.Event != "order.created" || row.SentAt != nil {
		t.Fatalf("unexpected row %+v", row)
	}
	if row.Subject != "Order PK2509010042 confirmed" {
		t.Fatalf("unexpected subject %q", row.Subject)
	}
	if row.Payload["order_number"] != "PK2509010042" {
		t.Fatalf("payload missing order number: %+v", row.Payload)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	svc, err := NewService(NewRepository(db))
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	ctx := context.Background()

	owner := uuid.New()
	notification := &models.Notification{
		UserID:  owner,
		Channel: "email",
		Event:   "order.created",
		Subject: "s",
		Body:    "b",
	}
	if err := db.Create(notification).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	// A stranger cannot mark it.
	err = svc.MarkRead(ctx, uuid.New(), notification.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for stranger, got %v", err)
	}

	if err := svc.MarkRead(ctx, owner, notification.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	// Second mark is a no-op reported as not found.
	err = svc.MarkRead(ctx, owner, notification.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found on re-mark, got %v", err)
	}

	rows, err := svc.ListByUser(ctx, owner, pagination.Params{Limit: 10})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ReadAt == nil {
		t.Fatalf("expected read row, got %+v", rows)
	}
}
