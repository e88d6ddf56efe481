package payments

import (
	"context"

	"github.com/google/uuid"

	"github.com/peakkart/peakkart-backend/internal/orders"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/logger"
)

// SignatureVerifier checks a gateway checkout callback. Satisfied by the
// razorpay client wrapper.
type SignatureVerifier interface {
	VerifyPaymentSignature(orderID, paymentID, signature string) error
}

// VerifyInput carries the checkout callback fields from the client.
type VerifyInput struct {
	OrderID          uuid.UUID
	UserID           uuid.UUID
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

type Service interface {
	Verify(ctx context.Context, input VerifyInput) (*models.Order, error)
}

type service struct {
	orders   orders.Repository
	verifier SignatureVerifier
	logger   *logger.Logger
}

func NewService(orderRepo orders.Repository, verifier SignatureVerifier, logg *logger.Logger) Service {
	return &service{orders: orderRepo, verifier: verifier, logger: logg}
}

// Verify validates the gateway signature and marks the order paid. A second
// verification of an already paid order is a no-op so client retries stay safe.
func (s *service) Verify(ctx context.Context, input VerifyInput) (*models.Order, error) {
	if s.verifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment gateway not configured")
	}

	order, err := s.orders.FindByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != input.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if order.PaymentMethod != enums.PaymentMethodRazorpay {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order is not a gateway payment")
	}
	if order.PaymentStatus == enums.PaymentStatusPaid {
		return order, nil
	}
	if order.PaymentStatus != enums.PaymentStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending")
	}

	if err := s.verifier.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature); err != nil {
		if s.logger != nil {
			s.logger.Warn(ctx, "payment signature rejected")
		}
		return nil, err
	}

	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"payment_ref":    input.GatewayPaymentID,
	}
	if err := s.orders.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marking order paid")
	}

	order.PaymentStatus = enums.PaymentStatusPaid
	order.PaymentRef = &input.GatewayPaymentID
	return order, nil
}
