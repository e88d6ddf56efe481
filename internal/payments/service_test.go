package payments

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/peakkart/peakkart-backend/internal/orders"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

type staticVerifier struct {
	err error
}

func (v staticVerifier) VerifyPaymentSignature(_, _, _ string) error { return v.err }

func newPaymentsDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Order{}, &models.OrderItem{}, &models.OrderStatusEntry{}))
	return db
}

func seedPendingOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, method enums.PaymentMethod) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID:        userID,
		OrderNumber:   "ORD-TEST-" + uuid.NewString()[:8],
		Status:        enums.OrderStatusPending,
		Type:          enums.OrderTypeStandard,
		PaymentMethod: method,
		PaymentStatus: enums.PaymentStatusPending,
		Subtotal:      decimal.NewFromInt(500),
		Total:         decimal.NewFromInt(549),
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func TestVerifyMarksOrderPaid(t *testing.T) {
	t.Parallel()
	db := newPaymentsDB(t)
	userID := uuid.New()
	order := seedPendingOrder(t, db, userID, enums.PaymentMethodRazorpay)

	svc := NewService(orders.NewRepository(db), staticVerifier{}, nil)
	got, err := svc.Verify(context.Background(), VerifyInput{
		OrderID:          order.ID,
		UserID:           userID,
		GatewayOrderID:   "order_abc",
		GatewayPaymentID: "pay_abc",
		Signature:        "sig",
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, got.PaymentStatus)
	require.NotNil(t, got.PaymentRef)
	require.Equal(t, "pay_abc", *got.PaymentRef)

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, enums.PaymentStatusPaid, stored.PaymentStatus)

	// Retrying a paid order is a no-op.
	again, err := svc.Verify(context.Background(), VerifyInput{
		OrderID: order.ID, UserID: userID,
		GatewayOrderID: "order_abc", GatewayPaymentID: "pay_abc", Signature: "sig",
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, again.PaymentStatus)
}

func TestVerifyRejectsBadSignature(t *testing.T) {
	t.Parallel()
	db := newPaymentsDB(t)
	userID := uuid.New()
	order := seedPendingOrder(t, db, userID, enums.PaymentMethodRazorpay)

	sigErr := pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature mismatch")
	svc := NewService(orders.NewRepository(db), staticVerifier{err: sigErr}, nil)
	_, err := svc.Verify(context.Background(), VerifyInput{
		OrderID: order.ID, UserID: userID,
		GatewayOrderID: "order_abc", GatewayPaymentID: "pay_abc", Signature: "bad",
	})
	require.Error(t, err)
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.As(err).Code())

	var stored models.Order
	require.NoError(t, db.First(&stored, "id = ?", order.ID).Error)
	require.Equal(t, enums.PaymentStatusPending, stored.PaymentStatus)
}

func TestVerifyScopedToOwnerAndMethod(t *testing.T) {
	t.Parallel()
	db := newPaymentsDB(t)
	userID := uuid.New()
	order := seedPendingOrder(t, db, userID, enums.PaymentMethodRazorpay)
	codOrder := seedPendingOrder(t, db, userID, enums.PaymentMethodCashOnDelivery)

	svc := NewService(orders.NewRepository(db), staticVerifier{}, nil)

	_, err := svc.Verify(context.Background(), VerifyInput{
		OrderID: order.ID, UserID: uuid.New(),
		GatewayOrderID: "o", GatewayPaymentID: "p", Signature: "s",
	})
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())

	_, err = svc.Verify(context.Background(), VerifyInput{
		OrderID: codOrder.ID, UserID: userID,
		GatewayOrderID: "o", GatewayPaymentID: "p", Signature: "s",
	})
	require.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}
