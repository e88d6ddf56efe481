package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/peakkart/peakkart-backend/internal/commission"
	"github.com/peakkart/peakkart-backend/internal/coupons"
	"github.com/peakkart/peakkart-backend/pkg/db"
	"github.com/peakkart/peakkart-backend/pkg/db/models"
	"github.com/peakkart/peakkart-backend/pkg/enums"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/metrics"
	"github.com/peakkart/peakkart-backend/pkg/pagination"
)

const (
	freeShippingThreshold = 499
	standardShippingFee   = 49
	giftWrapFeePerItem    = 30
	orderNumberAttempts   = 3
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StockLedger adjusts product stock inside the checkout transaction.
type StockLedger interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantSize *string, qty int) error
	Release(ctx context.Context, tx *gorm.DB, productID uuid.UUID, variantSize *string, qty int) error
}

// CouponMarker validates discount codes and records their use transactionally.
type CouponMarker interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, cartTotal decimal.Decimal) (*coupons.Validation, error)
	MarkUsedTx(ctx context.Context, tx *gorm.DB, code string, userID uuid.UUID, orderID *uuid.UUID) error
}

// ProductReader loads catalog rows for pricing and validation. Stock
// correctness does not depend on these reads; the conditional reserve update
// is the guard.
type ProductReader interface {
	FindByIDWithVariants(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// TenantReader resolves commission rates at delivery time.
type TenantReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// CartCloser retires the user's active cart inside the checkout transaction.
type CartCloser interface {
	CloseActive(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

// Notifier publishes order lifecycle events. Implementations must not fail
// the request path.
type Notifier interface {
	OrderEvent(ctx context.Context, event OrderEvent)
}

// Service owns the order lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	CreateBooking(ctx context.Context, input BookingInput) (*models.Order, error)
	UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error)
	Cancel(ctx context.Context, input CancelInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Order, error)
	ListAll(ctx context.Context, params pagination.Params) ([]models.Order, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	ledger   StockLedger
	coupons  CouponMarker
	products ProductReader
	tenants  TenantReader
	carts    CartCloser
	notifier Notifier
	metrics  *metrics.OrderMetrics
	now      func() time.Time
}

// NewService wires the order service. Notifier and metrics may be nil.
func NewService(
	repo Repository,
	tx txRunner,
	ledger StockLedger,
	couponSvc CouponMarker,
	products ProductReader,
	tenants TenantReader,
	carts CartCloser,
	notifier Notifier,
	m *metrics.OrderMetrics,
) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders repository required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock ledger required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "product reader required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ledger:   ledger,
		coupons:  couponSvc,
		products: products,
		tenants:  tenants,
		carts:    carts,
		notifier: notifier,
		metrics:  m,
		now:      time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	started := s.now()

	var created *models.Order
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		orderNumber := NewOrderNumber(s.now())
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			order, err := s.buildStandardOrder(ctx, tx, input, orderNumber)
			if err != nil {
				return err
			}
			created = order
			return nil
		})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if db.IsUniqueViolation(err) {
			continue
		}
		break
	}
	if lastErr != nil {
		if db.IsUniqueViolation(lastErr) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, lastErr, "could not allocate order number")
		}
		if typed := pkgerrors.As(lastErr); typed != nil {
			if typed.Code() == pkgerrors.CodeConflict {
				s.metrics.IncStockConflict(string(enums.OrderTypeStandard))
			}
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create order")
	}

	s.metrics.IncOrderCreated(string(enums.OrderTypeStandard))
	s.metrics.ObserveCheckout(string(enums.OrderTypeStandard), s.now().Sub(started))
	s.emit(ctx, created, "order.created")
	return created, nil
}

func (s *service) buildStandardOrder(ctx context.Context, tx *gorm.DB, input CreateInput, orderNumber string) (*models.Order, error) {
	repo := s.repo.WithTx(tx)

	subtotal := decimal.Zero
	giftWrapTotal := decimal.Zero
	items := make([]models.OrderItem, 0, len(input.Items))

	for _, line := range input.Items {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		product, err := s.products.FindByIDWithVariants(ctx, line.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product "+product.Name+" is unavailable")
		}
		if product.IsBooking() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking products use the booking endpoint")
		}

		unitPrice, variantID, err := resolveUnitPrice(product, line.Size)
		if err != nil {
			return nil, err
		}

		if err := s.ledger.Reserve(ctx, tx, product.ID, line.Size, line.Quantity); err != nil {
			return nil, err
		}

		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		if line.GiftWrap {
			giftWrapTotal = giftWrapTotal.Add(decimal.NewFromInt(giftWrapFeePerItem))
		}
		items = append(items, models.OrderItem{
			ProductID:   product.ID,
			VariantID:   variantID,
			ProductName: product.Name,
			Size:        line.Size,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			LineTotal:   lineTotal,
			GiftWrap:    line.GiftWrap,
			CustomPhoto: line.CustomPhoto,
		})
	}

	discount := decimal.Zero
	var couponCode *string
	if input.CouponCode != nil && strings.TrimSpace(*input.CouponCode) != "" {
		if s.coupons == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "coupon service not configured")
		}
		validation, err := s.coupons.Validate(ctx, *input.CouponCode, input.UserID, subtotal)
		if err != nil {
			return nil, err
		}
		discount = validation.Discount
		code := validation.Code
		couponCode = &code
	}

	shipping := decimal.NewFromInt(standardShippingFee)
	if subtotal.GreaterThanOrEqual(decimal.NewFromInt(freeShippingThreshold)) {
		shipping = decimal.Zero
	}
	total := subtotal.Sub(discount).Add(shipping).Add(giftWrapTotal)

	order := &models.Order{
		OrderNumber:     orderNumber,
		UserID:          input.UserID,
		Type:            enums.OrderTypeStandard,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		Subtotal:        subtotal,
		DiscountAmount:  discount,
		TaxAmount:       decimal.Zero,
		ShippingFee:     shipping,
		GiftWrapFee:     giftWrapTotal,
		Total:           total,
		CouponCode:      couponCode,
		ShippingAddress: input.ShippingAddress,
		Items:           items,
	}
	if err := repo.Create(ctx, order); err != nil {
		return nil, err
	}

	if err := s.appendHistory(ctx, repo, order.ID, string(enums.OrderStatusPending), strPtr("Order placed successfully"), input.UserID, enums.RoleCustomer); err != nil {
		return nil, err
	}

	if couponCode != nil {
		if err := s.coupons.MarkUsedTx(ctx, tx, *couponCode, input.UserID, &order.ID); err != nil {
			return nil, err
		}
	}

	if s.carts != nil {
		if err := s.carts.CloseActive(ctx, tx, input.UserID); err != nil {
			return nil, err
		}
	}

	return order, nil
}

func (s *service) CreateBooking(ctx context.Context, input BookingInput) (*models.Order, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, err
	}

	product, err := s.products.FindByIDWithVariants(ctx, input.ProductID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsBooking() || product.BookingConfig == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not bookable")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product "+product.Name+" is unavailable")
	}

	cfg := product.BookingConfig
	now := s.now()
	if input.Quantity < cfg.MinQty || (cfg.MaxQty > 0 && input.Quantity > cfg.MaxQty) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity outside booking bounds")
	}
	earliest := now.AddDate(0, 0, cfg.LeadDays).Truncate(24 * time.Hour)
	if input.BookingDate.Before(earliest) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking date violates lead time")
	}
	if len(cfg.AllowedCities) > 0 && !cityAllowed(cfg.AllowedCities, input.ShippingAddress.City) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking not available in this city")
	}

	unitPrice := product.Price
	if product.DiscountPrice != nil && product.DiscountPrice.IsPositive() {
		unitPrice = *product.DiscountPrice
	}
	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(input.Quantity)))

	// Bookings carry their commission from creation.
	split, err := commission.Split(subtotal, cfg.CommissionPercentage)
	if err != nil {
		return nil, err
	}
	commissionAmount := split.PlatformShare

	var created *models.Order
	var lastErr error
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		orderNumber := NewOrderNumber(s.now())
		err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			bookingDate := input.BookingDate
			order := &models.Order{
				OrderNumber:      orderNumber,
				UserID:           input.UserID,
				TenantID:         product.TenantID,
				Type:             enums.OrderTypeBooking,
				Status:           enums.OrderStatusPending,
				PaymentMethod:    input.PaymentMethod,
				PaymentStatus:    enums.PaymentStatusPending,
				Subtotal:         subtotal,
				DiscountAmount:   decimal.Zero,
				TaxAmount:        decimal.Zero,
				ShippingFee:      decimal.Zero,
				GiftWrapFee:      decimal.Zero,
				Total:            subtotal,
				CommissionAmount: &commissionAmount,
				ShippingAddress:  input.ShippingAddress,
				BookingDate:      &bookingDate,
				Items: []models.OrderItem{{
					ProductID:   product.ID,
					ProductName: product.Name,
					Quantity:    input.Quantity,
					UnitPrice:   unitPrice,
					LineTotal:   subtotal,
				}},
			}
			// A booking carries the vendor on tenant_id without formal
			// routing, so routed_to_tenant stays false.
			if err := repo.Create(ctx, order); err != nil {
				return err
			}
			if err := s.appendHistory(ctx, repo, order.ID, string(enums.OrderStatusPending), strPtr("Booking placed successfully"), input.UserID, enums.RoleCustomer); err != nil {
				return err
			}
			created = order
			return nil
		})
		if err == nil {
			lastErr = nil
			break
		}
		lastErr = err
		if !db.IsUniqueViolation(err) {
			break
		}
	}
	if lastErr != nil {
		if typed := pkgerrors.As(lastErr); typed != nil {
			return nil, typed
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create booking")
	}

	s.metrics.IncOrderCreated(string(enums.OrderTypeBooking))
	s.emit(ctx, created, "order.created")
	return created, nil
}

func (s *service) UpdateStatus(ctx context.Context, input UpdateStatusInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}

		if input.ActorRole == enums.RoleTenant {
			if input.ActorTenantID == nil || order.TenantID == nil || *order.TenantID != *input.ActorTenantID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to tenant")
			}
		}

		if order.Status == input.NewStatus {
			updated = order
			return nil
		}
		if !order.Status.CanTransitionTo(input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from "+string(order.Status)+" to "+string(input.NewStatus))
		}

		now := s.now()
		updates := map[string]any{"status": input.NewStatus}

		switch input.NewStatus {
		case enums.OrderStatusCancelled:
			updates["cancelled_at"] = now
			if input.Note != nil {
				updates["cancel_reason"] = *input.Note
			}
			if !order.Type.IsBooking() {
				for _, item := range order.Items {
					if err := s.ledger.Release(ctx, tx, item.ProductID, item.Size, item.Quantity); err != nil {
						return err
					}
				}
			}
		case enums.OrderStatusDelivered:
			updates["delivered_at"] = now
			// Commission is settled exactly once, on this edge. Bookings
			// already carry theirs from creation.
			if !order.Type.IsBooking() && order.CommissionAmount == nil && order.TenantID != nil && s.tenants != nil {
				tenant, err := s.tenants.FindByID(ctx, *order.TenantID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant for commission")
				}
				split, err := commission.Split(order.Total, tenant.CommissionRate)
				if err != nil {
					return err
				}
				updates["commission_amount"] = split.PlatformShare
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if err := s.appendHistory(ctx, repo, order.ID, string(input.NewStatus), input.Note, input.ActorID, input.ActorRole); err != nil {
			return err
		}

		updated, err = repo.FindByID(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, updated, "order.status_changed")
	return updated, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if input.ActorRole != enums.RoleAdmin && order.UserID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already "+string(order.Status))
	}

	reason := input.Reason
	if strings.TrimSpace(reason) == "" {
		reason = "Cancelled by " + string(input.ActorRole)
	}
	return s.UpdateStatus(ctx, UpdateStatusInput{
		OrderID:   input.OrderID,
		NewStatus: enums.OrderStatusCancelled,
		Note:      &reason,
		ActorID:   input.ActorID,
		ActorRole: input.ActorRole,
	})
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return loadOrder(ctx, s.repo, orderID)
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) ListByTenant(ctx context.Context, tenantID uuid.UUID, params pagination.Params) ([]models.Order, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context missing")
	}
	orders, err := s.repo.ListByTenant(ctx, tenantID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenant orders")
	}
	return orders, nil
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) ([]models.Order, error) {
	orders, err := s.repo.ListAll(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

func (s *service) appendHistory(ctx context.Context, repo Repository, orderID uuid.UUID, status string, note *string, actorID uuid.UUID, actorRole enums.Role) error {
	entry := &models.OrderStatusEntry{
		OrderID: orderID,
		Status:  status,
		Note:    note,
	}
	if actorID != uuid.Nil {
		id := actorID
		role := string(actorRole)
		entry.ActorID = &id
		entry.ActorRole = &role
	}
	if err := repo.CreateStatusEntry(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
	}
	return nil
}

func (s *service) emit(ctx context.Context, order *models.Order, event string) {
	if s.notifier == nil || order == nil {
		return
	}
	s.notifier.OrderEvent(ctx, OrderEvent{
		Event:       event,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		TenantID:    order.TenantID,
		Status:      string(order.Status),
		Total:       order.Total,
	})
}

func loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func resolveUnitPrice(product *models.Product, size *string) (decimal.Decimal, *uuid.UUID, error) {
	if product.HasVariants {
		if size == nil || *size == "" {
			return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeValidation, "size required for "+product.Name)
		}
		for _, variant := range product.Variants {
			if variant.Size == *size {
				id := variant.ID
				return variant.Price, &id, nil
			}
		}
		return decimal.Zero, nil, pkgerrors.New(pkgerrors.CodeNotFound, "size "+*size+" not available for "+product.Name)
	}

	price := product.Price
	if product.DiscountPrice != nil && product.DiscountPrice.IsPositive() {
		price = *product.DiscountPrice
	}
	return price, nil, nil
}

func cityAllowed(cities []string, city string) bool {
	for _, candidate := range cities {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(city)) {
			return true
		}
	}
	return false
}

func strPtr(v string) *string {
	return &v
}
