package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func sign(orderID, paymentID, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature(t *testing.T) {
	secret := "test_secret"
	orderID := "order_ABC123"
	paymentID := "pay_XYZ789"
	good := sign(orderID, paymentID, secret)

	assert.True(t, VerifySignature(orderID, paymentID, good, secret))
}

func TestVerifySignature_BitFlip(t *testing.T) {
	secret := "test_secret"
	good := sign("order_ABC123", "pay_XYZ789", secret)

	// Flip one hex character.
	flipped := []byte(good)
	if flipped[0] == 'a' {
		flipped[0] = 'b'
	} else {
		flipped[0] = 'a'
	}
	assert.False(t, VerifySignature("order_ABC123", "pay_XYZ789", string(flipped), secret))
}

func TestVerifySignature_WrongInputs(t *testing.T) {
	secret := "test_secret"
	good := sign("order_ABC123", "pay_XYZ789", secret)

	assert.False(t, VerifySignature("order_OTHER", "pay_XYZ789", good, secret))
	assert.False(t, VerifySignature("order_ABC123", "pay_OTHER", good, secret))
	assert.False(t, VerifySignature("order_ABC123", "pay_XYZ789", good, "wrong_secret"))
}

func TestVerifySignature_EmptyInputs(t *testing.T) {
	secret := "test_secret"
	good := sign("order_ABC123", "pay_XYZ789", secret)

	assert.False(t, VerifySignature("", "pay_XYZ789", good, secret))
	assert.False(t, VerifySignature("order_ABC123", "", good, secret))
	assert.False(t, VerifySignature("order_ABC123", "pay_XYZ789", "", secret))
	assert.False(t, VerifySignature("order_ABC123", "pay_XYZ789", good, ""))
}

func TestVerifySignature_MalformedSignatureDoesNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		VerifySignature("order_ABC123", "pay_XYZ789", "not-hex-at-all!", "secret")
	})
}

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "webhook_secret"
	body := []byte(`{"event":"payment.captured"}`)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	good := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifyWebhookSignature(body, good, secret))
	assert.False(t, VerifyWebhookSignature([]byte(`{}`), good, secret))
	assert.False(t, VerifyWebhookSignature(nil, good, secret))
	assert.False(t, VerifyWebhookSignature(body, "", secret))
}
