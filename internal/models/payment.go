package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus is the lifecycle of a gateway charge record.
type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "created"
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Payment is one gateway order and its eventual charge. Created at
// order-creation time, updated once to paid after signature verification.
// The refund transition is one-way: paid -> refunded.
type Payment struct {
	ID                primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID     `bson:"user_id" json:"userId"`
	DocumentID        *primitive.ObjectID    `bson:"document_id,omitempty" json:"documentId,omitempty"` // nil in cart mode
	RazorpayOrderID   string                 `bson:"razorpay_order_id" json:"orderId"`                  // unique
	RazorpayPaymentID string                 `bson:"razorpay_payment_id,omitempty" json:"paymentId,omitempty"`
	RazorpaySignature string                 `bson:"razorpay_signature,omitempty" json:"-"`
	Amount            float64                `bson:"amount" json:"amount"` // rupees, matching the UI
	Currency          string                 `bson:"currency" json:"currency"`
	Status            PaymentStatus          `bson:"status" json:"status"`
	PaymentMethod     string                 `bson:"payment_method,omitempty" json:"paymentMethod,omitempty"`
	Description       string                 `bson:"description,omitempty" json:"description,omitempty"`
	Receipt           string                 `bson:"receipt,omitempty" json:"receipt,omitempty"`
	Notes             map[string]interface{} `bson:"notes,omitempty" json:"notes,omitempty"`
	FailureReason     string                 `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	RefundID          string                 `bson:"refund_id,omitempty" json:"refundId,omitempty"`
	RefundAmount      float64                `bson:"refund_amount,omitempty" json:"refundAmount,omitempty"`
	RefundReason      string                 `bson:"refund_reason,omitempty" json:"refundReason,omitempty"`
	PaymentDate       *time.Time             `bson:"payment_date,omitempty" json:"paymentDate,omitempty"`
	RefundDate        *time.Time             `bson:"refund_date,omitempty" json:"refundDate,omitempty"`
	TransactionFee    int64                  `bson:"transaction_fee,omitempty" json:"transactionFee,omitempty"` // paise, per gateway docs
	NetAmount         float64                `bson:"net_amount,omitempty" json:"netAmount,omitempty"`           // rupees
	Metadata          map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	CreatedAt         time.Time              `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time              `bson:"updated_at" json:"updatedAt"`
}
