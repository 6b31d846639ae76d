package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TransactionType distinguishes what a ledger entry accounts for.
type TransactionType string

const (
	TransactionTypePayment TransactionType = "payment"
	TransactionTypeRefund  TransactionType = "refund"
	TransactionTypeFee     TransactionType = "fee"
	TransactionTypeUpload  TransactionType = "upload"
)

// TransactionStatus is the lifecycle state of a payment attempt.
type TransactionStatus string

const (
	TransactionInitiated TransactionStatus = "initiated"
	TransactionPending   TransactionStatus = "pending"
	TransactionPaid      TransactionStatus = "paid"
	TransactionFailed    TransactionStatus = "failed"
	TransactionCancelled TransactionStatus = "cancelled"
	TransactionUploaded  TransactionStatus = "uploaded"
	TransactionCompleted TransactionStatus = "completed"
)

// statusRank orders ledger statuses for regression checks. The failure exits
// sit below paid so a charged transaction can never be rewound to failed or
// cancelled; a retried payment may still move a failed row forward.
var statusRank = map[TransactionStatus]int{
	TransactionInitiated: 0,
	TransactionPending:   1,
	TransactionFailed:    2,
	TransactionCancelled: 2,
	TransactionPaid:      3,
	TransactionUploaded:  4,
	TransactionCompleted: 5,
}

// Valid reports whether s is a known ledger status.
func (s TransactionStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsRegression reports whether moving from s to next would rewind the lifecycle.
func (s TransactionStatus) IsRegression(next TransactionStatus) bool {
	from, okFrom := statusRank[s]
	to, okTo := statusRank[next]
	if !okFrom || !okTo {
		return false
	}
	return to < from
}

// ReconciliationStatus tracks operator-facing matching of ledger entries
// against delivered uploads.
type ReconciliationStatus string

const (
	ReconciliationPending   ReconciliationStatus = "pending"
	ReconciliationMatched   ReconciliationStatus = "matched"
	ReconciliationUnmatched ReconciliationStatus = "unmatched"
)

// RazorpayData links a ledger entry to the gateway artefacts.
type RazorpayData struct {
	OrderID   string `bson:"order_id,omitempty" json:"orderId,omitempty"`
	PaymentID string `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	Signature string `bson:"signature,omitempty" json:"signature,omitempty"`
	Method    string `bson:"method,omitempty" json:"method,omitempty"`
	Provider  string `bson:"provider,omitempty" json:"provider,omitempty"`
}

// TransactionAmounts is the pricing snapshot taken when the attempt started.
type TransactionAmounts struct {
	Subtotal     float64 `bson:"subtotal" json:"subtotal"`
	BulkDiscount float64 `bson:"bulk_discount" json:"bulkDiscount"`
	GSTAmount    float64 `bson:"gst_amount" json:"gstAmount"`
	TotalAmount  float64 `bson:"total_amount" json:"totalAmount"`
	TaxRate      float64 `bson:"tax_rate" json:"taxRate"`
}

// TransactionItem is one line of the items snapshot.
type TransactionItem struct {
	DocumentTypeID string  `bson:"document_type_id" json:"documentTypeId"`
	Tier           string  `bson:"tier" json:"tier"`
	Quantity       int     `bson:"quantity" json:"quantity"`
	UnitPrice      float64 `bson:"unit_price" json:"unitPrice"`
	FileID         string  `bson:"file_id,omitempty" json:"fileId,omitempty"`
	FileName       string  `bson:"file_name,omitempty" json:"fileName,omitempty"`
}

// Transaction is the accounting record of one payment attempt. Entries are
// append-only: metadata merges accumulate and rows are never deleted.
type Transaction struct {
	ID                   primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID               primitive.ObjectID     `bson:"user_id" json:"userId"`
	PaymentID            *primitive.ObjectID    `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	DocumentID           *primitive.ObjectID    `bson:"document_id,omitempty" json:"documentId,omitempty"`
	TransactionID        string                 `bson:"transaction_id" json:"transactionId"`
	Type                 TransactionType        `bson:"type" json:"type"`
	Provider             string                 `bson:"provider" json:"provider"`
	Amount               float64                `bson:"amount" json:"amount"`
	AmountPaise          int64                  `bson:"amount_paise" json:"amountPaise"`
	Currency             string                 `bson:"currency" json:"currency"`
	Status               TransactionStatus      `bson:"status" json:"status"`
	Description          string                 `bson:"description,omitempty" json:"description,omitempty"`
	Items                []TransactionItem      `bson:"items,omitempty" json:"items,omitempty"`
	Amounts              TransactionAmounts     `bson:"amounts" json:"amounts"`
	RazorpayData         RazorpayData           `bson:"razorpay_data" json:"razorpayData"`
	Metadata             map[string]interface{} `bson:"metadata" json:"metadata"`
	FailureReason        string                 `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`
	PaidAt               *time.Time             `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	ReconciliationStatus ReconciliationStatus   `bson:"reconciliation_status" json:"reconciliationStatus"`
	ReconciliationDate   *time.Time             `bson:"reconciliation_date,omitempty" json:"reconciliationDate,omitempty"`
	Notes                map[string]interface{} `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt            time.Time              `bson:"created_at" json:"createdAt"`
	UpdatedAt            time.Time              `bson:"updated_at" json:"updatedAt"`
}
