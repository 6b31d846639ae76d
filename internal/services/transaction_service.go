package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"udin/platform/internal/config"
	"udin/platform/internal/db"
	"udin/platform/internal/models"
	"udin/platform/internal/utils"
)

// ITransactionService defines the interface for ledger operations.
type ITransactionService interface {
	Create(ctx context.Context, userID primitive.ObjectID, input CreateTransactionInput) (*models.Transaction, error)
	GetByID(ctx context.Context, userID primitive.ObjectID, transactionID string) (*models.Transaction, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Transaction, int64, error)
	UpdateStatus(ctx context.Context, userID primitive.ObjectID, transactionID string, patch StatusPatch) (*models.Transaction, error)
	SweepUnmatched(ctx context.Context, olderThan time.Duration) (int64, error)
}

const transactionsCollection = "transactions"

// CreateTransactionInput describes a new ledger entry. Amount is in rupees
// for display, AmountPaise is the integer truth the gateway charges.
type CreateTransactionInput struct {
	Type        models.TransactionType
	Amount      float64
	AmountPaise int64
	Currency    string
	Description string
	Amounts     models.TransactionAmounts
	Items       []models.TransactionItem
	Metadata    map[string]interface{}
}

// StatusPatch carries one lifecycle update for a ledger entry. Metadata and
// Notes merge shallowly: top-level keys overwrite, everything else survives.
type StatusPatch struct {
	Status        models.TransactionStatus
	Razorpay      *models.RazorpayData
	FailureReason string
	Metadata      map[string]interface{}
	Notes         map[string]interface{}
}

// transactionService implements ITransactionService.
type transactionService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewTransactionService creates a new TransactionService.
func NewTransactionService(database *mongo.Database, cfg *config.Config) ITransactionService {
	return &transactionService{db: database, cfg: cfg}
}

// Create records a new ledger entry in status initiated. The generated
// transaction id is regenerated and retried on collision.
func (s *transactionService) Create(ctx context.Context, userID primitive.ObjectID, input CreateTransactionInput) (*models.Transaction, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if input.Type == "" {
		return nil, fmt.Errorf("%w: transaction type is required", ErrValidation)
	}
	// Refund rows carry negative amounts; everything else must not.
	if input.Type != models.TransactionTypeRefund && (input.Amount < 0 || input.AmountPaise < 0) {
		return nil, fmt.Errorf("%w: amount cannot be negative", ErrValidation)
	}
	if input.Currency == "" {
		input.Currency = s.cfg.Currency
	}
	if input.Metadata == nil {
		input.Metadata = map[string]interface{}{}
	}

	var txn *models.Transaction
	err := db.Try(func() error {
		now := time.Now().UTC()
		txn = &models.Transaction{
			TransactionID:        utils.NewTransactionID(),
			UserID:               userID,
			Type:                 input.Type,
			Provider:             "razorpay",
			Amount:               input.Amount,
			AmountPaise:          input.AmountPaise,
			Currency:             input.Currency,
			Status:               models.TransactionInitiated,
			Description:          input.Description,
			Items:                input.Items,
			Amounts:              input.Amounts,
			Metadata:             input.Metadata,
			ReconciliationStatus: models.ReconciliationPending,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		res, err := s.db.Collection(transactionsCollection).InsertOne(ctx, txn)
		if err != nil {
			return err
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			txn.ID = oid
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	return txn, nil
}

// GetByID fetches one ledger entry scoped to its owner. A hit owned by
// someone else reports the same ErrNotFound as a miss.
func (s *transactionService) GetByID(ctx context.Context, userID primitive.ObjectID, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	filter := bson.M{"transaction_id": transactionID, "user_id": userID}
	err := s.db.Collection(transactionsCollection).FindOne(ctx, filter).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", transactionID, err)
	}
	return &txn, nil
}

// GetByOrderID resolves the ledger entry linked to a gateway order. Used by
// reconciliation paths that hold only the gateway's identifiers.
func (s *transactionService) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	var txn models.Transaction
	filter := bson.M{"razorpay_data.order_id": orderID}
	err := s.db.Collection(transactionsCollection).FindOne(ctx, filter).Decode(&txn)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction for order %s: %w", orderID, err)
	}
	return &txn, nil
}

// ListByUser returns a page of the user's ledger, newest first.
func (s *transactionService) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Transaction, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	collection := s.db.Collection(transactionsCollection)
	filter := bson.M{"user_id": userID}

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer cursor.Close(ctx)

	txns := []models.Transaction{}
	if err = cursor.All(ctx, &txns); err != nil {
		return nil, 0, fmt.Errorf("failed to decode transactions: %w", err)
	}
	return txns, total, nil
}

// UpdateStatus advances a ledger entry's lifecycle. Regressions (for example
// uploaded back to pending) are rejected; metadata patches merge shallowly
// via dotted $set paths so concurrent patches to different keys never
// clobber each other.
func (s *transactionService) UpdateStatus(ctx context.Context, userID primitive.ObjectID, transactionID string, patch StatusPatch) (*models.Transaction, error) {
	if !patch.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, patch.Status)
	}

	current, err := s.GetByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}
	if current.Status.IsRegression(patch.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, current.Status, patch.Status)
	}

	now := time.Now().UTC()
	set := bson.M{
		"status":     patch.Status,
		"updated_at": now,
	}
	if patch.Status == models.TransactionPaid && current.PaidAt == nil {
		set["paid_at"] = now
		set["reconciliation_status"] = models.ReconciliationMatched
		set["reconciliation_date"] = now
	}
	if patch.FailureReason != "" {
		set["failure_reason"] = patch.FailureReason
	}
	if patch.Razorpay != nil {
		if patch.Razorpay.OrderID != "" {
			set["razorpay_data.order_id"] = patch.Razorpay.OrderID
		}
		if patch.Razorpay.PaymentID != "" {
			set["razorpay_data.payment_id"] = patch.Razorpay.PaymentID
		}
		if patch.Razorpay.Signature != "" {
			set["razorpay_data.signature"] = patch.Razorpay.Signature
		}
		if patch.Razorpay.Method != "" {
			set["razorpay_data.method"] = patch.Razorpay.Method
		}
	}
	for k, v := range patch.Metadata {
		set["metadata."+k] = v
	}
	for k, v := range patch.Notes {
		set["notes."+k] = v
	}

	// Guard on the observed status so a concurrent advance cannot be
	// silently rewound between the read and this write.
	filter := bson.M{"transaction_id": transactionID, "user_id": userID, "status": current.Status}
	result, err := s.db.Collection(transactionsCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update transaction %s: %w", transactionID, err)
	}
	if result.MatchedCount == 0 {
		fresh, err := s.GetByID(ctx, userID, transactionID)
		if err != nil {
			return nil, err
		}
		if fresh.Status.IsRegression(patch.Status) {
			return nil, fmt.Errorf("%w: %s -> %s", ErrStatusRegression, fresh.Status, patch.Status)
		}
		return nil, fmt.Errorf("transaction %s changed concurrently, retry the update", transactionID)
	}

	return s.GetByID(ctx, userID, transactionID)
}

// SweepUnmatched flags paid ledger entries whose documents never arrived
// within the reconciliation window. Flagged entries keep their money state;
// resolution is a manual back-office action, never an automatic refund.
func (s *transactionService) SweepUnmatched(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	filter := bson.M{
		"status":                models.TransactionPaid,
		"reconciliation_status": bson.M{"$ne": models.ReconciliationUnmatched},
		"paid_at":               bson.M{"$lt": cutoff},
	}
	update := bson.M{"$set": bson.M{
		"reconciliation_status":         models.ReconciliationUnmatched,
		"metadata.requiresManualReview": true,
		"updated_at":                    time.Now().UTC(),
	}}
	result, err := s.db.Collection(transactionsCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep unmatched transactions: %w", err)
	}
	if result.ModifiedCount > 0 {
		log.Printf("Flagged %d paid transactions with no delivered documents for manual review", result.ModifiedCount)
	}
	return result.ModifiedCount, nil
}
