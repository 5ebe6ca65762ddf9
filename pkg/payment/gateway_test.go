package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignPayment(t *testing.T) {
	sig := SignPayment("secret", "order_123", "pay_456")

	assert.Len(t, sig, 64, "HMAC-SHA256 hex digest")
	assert.Equal(t, sig, SignPayment("secret", "order_123", "pay_456"), "signing must be deterministic")
	assert.NotEqual(t, sig, SignPayment("other", "order_123", "pay_456"))
}

func TestVerifySignature(t *testing.T) {
	sig := SignPayment("secret", "order_123", "pay_456")

	assert.True(t, VerifySignature("secret", "order_123", "pay_456", sig))
	assert.False(t, VerifySignature("secret", "order_123", "pay_456", sig+"00"), "tampered signature")
	assert.False(t, VerifySignature("secret", "order_999", "pay_456", sig), "signature bound to order")
	assert.False(t, VerifySignature("secret", "order_123", "pay_999", sig), "signature bound to payment")
	assert.False(t, VerifySignature("wrong", "order_123", "pay_456", sig), "wrong secret")
	assert.False(t, VerifySignature("secret", "order_123", "pay_456", ""))
}
