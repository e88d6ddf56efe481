package razorpay

import (
	"context"
	"errors"
	"fmt"
	"strings"

	rzp "github.com/razorpay/razorpay-go"
	"github.com/shopspring/decimal"

	"github.com/peakkart/peakkart-backend/pkg/config"
	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
	"github.com/peakkart/peakkart-backend/pkg/logger"
)

var (
	errKeyIDRequired     = errors.New("razorpay key id is required")
	errKeySecretRequired = errors.New("razorpay key secret is required")
	errLoggerRequired    = errors.New("razorpay logger is required")
)

// Client exposes the Razorpay primitives used at checkout with centralized
// error mapping and logging.
type Client struct {
	sdk       *rzp.Client
	keySecret string
	logger    *logger.Logger
}

// GatewayOrder is the provider-side order created before collecting payment.
type GatewayOrder struct {
	ID       string
	Amount   int64
	Currency string
}

// NewClient initializes the Razorpay wrapper and validates the credentials.
func NewClient(cfg config.RazorpayConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	keyID := strings.TrimSpace(cfg.KeyID)
	if keyID == "" {
		return nil, errKeyIDRequired
	}
	keySecret := strings.TrimSpace(cfg.KeySecret)
	if keySecret == "" {
		return nil, errKeySecretRequired
	}

	return &Client{
		sdk:       rzp.NewClient(keyID, keySecret),
		keySecret: keySecret,
		logger:    logg,
	}, nil
}

// CreateOrder registers a gateway order for the given amount. Razorpay wants
// the amount in the smallest currency unit, so rupees become paise here.
func (c *Client) CreateOrder(ctx context.Context, amount decimal.Decimal, currency, receipt string) (*GatewayOrder, error) {
	if c == nil || c.sdk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not initialized")
	}
	if currency == "" {
		currency = "INR"
	}

	paise := amount.Mul(decimal.NewFromInt(100)).IntPart()
	data := map[string]interface{}{
		"amount":   paise,
		"currency": currency,
		"receipt":  receipt,
	}

	body, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		c.logger.Error(ctx, "razorpay order create failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "creating razorpay order")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "razorpay order response missing id")
	}

	return &GatewayOrder{
		ID:       id,
		Amount:   paise,
		Currency: currency,
	}, nil
}

// VerifyPaymentSignature checks the checkout callback signature.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "razorpay client not initialized")
	}
	return VerifySignature(c.keySecret, orderID, paymentID, signature)
}

// Ping confirms the credentials are usable without charging anything.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.sdk == nil {
		return errors.New("razorpay client not initialized")
	}
	if _, err := c.sdk.Order.All(map[string]interface{}{"count": 1}, nil); err != nil {
		return fmt.Errorf("razorpay ping: %w", err)
	}
	return nil
}
