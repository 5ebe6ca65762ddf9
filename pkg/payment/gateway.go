package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// OrderRef identifies a provider-side order created for an appointment.
type OrderRef struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Gateway is the payment collaborator contract. Verify is a pure signature
// check; CreateOrder and Refund talk to the provider and must respect the
// context deadline.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*OrderRef, error)
	Verify(orderID, paymentID, signature string) bool
	Refund(ctx context.Context, paymentID string, amount int64) error
}

// SignPayment computes the provider signature over "order_id|payment_id"
// with HMAC-SHA256, hex encoded.
func SignPayment(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a provider signature in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) bool {
	expected := SignPayment(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
