package services

import "errors"

// Sentinel errors shared across the service layer. Handlers map these onto
// HTTP statuses; anything unrecognized is reported as a 500.
var (
	// ErrValidation covers malformed or incomplete input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound covers both genuinely missing records and records that
	// exist but belong to another user. The two cases are deliberately
	// indistinguishable to callers.
	ErrNotFound = errors.New("not found")

	// ErrInvalidSignature reports a payment confirmation whose signature
	// does not match the gateway secret.
	ErrInvalidSignature = errors.New("invalid payment signature")

	// ErrDuplicateContent reports a file whose content hash matches one of
	// the user's live documents.
	ErrDuplicateContent = errors.New("duplicate document content")

	// ErrStatusRegression reports an attempt to move a transaction
	// backwards in its lifecycle.
	ErrStatusRegression = errors.New("status regression rejected")

	// ErrAmountBelowMinimum reports an order total under the gateway's
	// minimum chargeable amount.
	ErrAmountBelowMinimum = errors.New("amount below minimum charge")

	// ErrRefundNotAllowed reports a refund against a payment that is not
	// in a refundable state.
	ErrRefundNotAllowed = errors.New("payment is not refundable")
)
