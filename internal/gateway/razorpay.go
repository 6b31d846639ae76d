package gateway

import (
	"context"
	"fmt"
	"log"

	razorpay "github.com/razorpay/razorpay-go"

	"udin/platform/internal/config"
)

// Order is a gateway order created ahead of a charge.
type Order struct {
	ID          string
	AmountPaise int64
	Currency    string
	Receipt     string
}

// PaymentDetails is what the gateway reports about a captured payment.
// FeePaise is the gateway's cut, in minor units per their docs.
type PaymentDetails struct {
	ID          string
	AmountPaise int64
	Status      string
	Method      string
	FeePaise    int64
}

// Refund is the result of a refund request.
type Refund struct {
	ID string
}

// GatewayError wraps an upstream rejection. The message is propagated as-is
// and the call is never retried automatically.
type GatewayError struct {
	Op      string
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %s", e.Op, e.Message)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// IGateway is the server-side half of the payment gateway adapter.
type IGateway interface {
	CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]interface{}) (*Order, error)
	FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error)
	CreateRefund(ctx context.Context, paymentID string, amountPaise int64, notes map[string]interface{}) (*Refund, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	KeyID() string
}

// razorpayGateway implements IGateway over the Razorpay SDK.
type razorpayGateway struct {
	cfg    *config.Config
	client *razorpay.Client
}

// NewRazorpayGateway creates a gateway adapter from configured credentials.
func NewRazorpayGateway(cfg *config.Config) IGateway {
	return &razorpayGateway{
		cfg:    cfg,
		client: razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret),
	}
}

// CreateOrder opens an order for amountPaise minor units. payment_capture is
// set so successful charges capture immediately.
func (g *razorpayGateway) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string, notes map[string]interface{}) (*Order, error) {
	if amountPaise <= 0 {
		return nil, &GatewayError{Op: "order.create", Message: "amount must be a positive number of minor units"}
	}
	data := map[string]interface{}{
		"amount":          amountPaise,
		"currency":        currency,
		"receipt":         receipt,
		"notes":           notes,
		"payment_capture": 1,
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		log.Printf("Razorpay create order error: %v", err)
		return nil, &GatewayError{Op: "order.create", Message: err.Error(), Err: err}
	}

	return &Order{
		ID:          asString(body["id"]),
		AmountPaise: asInt64(body["amount"]),
		Currency:    asString(body["currency"]),
		Receipt:     asString(body["receipt"]),
	}, nil
}

// FetchPayment retrieves charge details for fee and method bookkeeping.
func (g *razorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*PaymentDetails, error) {
	body, err := g.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		log.Printf("Razorpay fetch payment error: %v", err)
		return nil, &GatewayError{Op: "payment.fetch", Message: err.Error(), Err: err}
	}
	return &PaymentDetails{
		ID:          asString(body["id"]),
		AmountPaise: asInt64(body["amount"]),
		Status:      asString(body["status"]),
		Method:      asString(body["method"]),
		FeePaise:    asInt64(body["fee"]),
	}, nil
}

// CreateRefund refunds amountPaise of a captured payment.
func (g *razorpayGateway) CreateRefund(ctx context.Context, paymentID string, amountPaise int64, notes map[string]interface{}) (*Refund, error) {
	data := map[string]interface{}{"notes": notes}
	body, err := g.client.Payment.Refund(paymentID, int(amountPaise), data, nil)
	if err != nil {
		log.Printf("Razorpay create refund error: %v", err)
		return nil, &GatewayError{Op: "refund.create", Message: err.Error(), Err: err}
	}
	return &Refund{ID: asString(body["id"])}, nil
}

// VerifyPaymentSignature checks the client-returned checkout signature.
func (g *razorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return VerifySignature(orderID, paymentID, signature, g.cfg.RazorpayKeySecret)
}

// KeyID exposes the public key id for checkout prefill responses.
func (g *razorpayGateway) KeyID() string {
	return g.cfg.RazorpayKeyID
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	default:
		return 0
	}
}
