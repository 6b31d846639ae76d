package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrCheckoutDismissed reports that the user closed the hosted checkout
// without paying. Callers offer a retry without re-charging.
var ErrCheckoutDismissed = errors.New("payment popup dismissed by user")

// CheckoutFailedError reports a payment the gateway itself declined or
// errored on inside the checkout flow. Distinct from a dismissal: the
// attempt reached the gateway and failed there.
type CheckoutFailedError struct {
	Reason string
}

func (e *CheckoutFailedError) Error() string {
	if e.Reason == "" {
		return "payment failed in checkout"
	}
	return fmt.Sprintf("payment failed in checkout: %s", e.Reason)
}

// Customer identifies the payer for checkout prefill.
type Customer struct {
	Name    string
	Email   string
	Contact string
}

// CheckoutRequest parameterizes the hosted checkout overlay.
type CheckoutRequest struct {
	Key         string
	OrderID     string
	AmountPaise int64
	Currency    string
	Name        string
	Description string
	Customer    Customer
	Notes       map[string]string
	ThemeColor  string
}

// CheckoutResult is what a completed overlay hands back.
type CheckoutResult struct {
	PaymentID string
	OrderID   string
	Signature string
}

// Checkout is the client-side half of the gateway adapter: it suspends the
// caller on external user interaction with no timeout of its own (the
// overlay's lifecycle governs). Open returns ErrCheckoutDismissed when the
// user closes the overlay and a *CheckoutFailedError when the gateway
// reports a failed payment.
type Checkout interface {
	Open(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
}
