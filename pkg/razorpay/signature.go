package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	pkgerrors "github.com/peakkart/peakkart-backend/pkg/errors"
)

// VerifySignature validates a checkout callback signature. Razorpay signs
// "<order_id>|<payment_id>" with HMAC-SHA256 over the key secret.
func VerifySignature(keySecret, orderID, paymentID, signature string) error {
	if strings.TrimSpace(keySecret) == "" {
		return pkgerrors.New(pkgerrors.CodeDependency, "razorpay key secret not configured")
	}
	if orderID == "" || paymentID == "" || signature == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id, payment id and signature are required")
	}

	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "payment signature mismatch")
	}
	return nil
}
