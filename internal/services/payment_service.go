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
	"udin/platform/internal/gateway"
	"udin/platform/internal/models"
	"udin/platform/internal/pricing"
	"udin/platform/internal/utils"
)

// IPaymentService defines the interface for gateway charge records.
type IPaymentService interface {
	CreateCartOrder(ctx context.Context, userID primitive.ObjectID, items []pricing.OrderItem, customerInfo map[string]interface{}) (*CartOrder, error)
	VerifyPayment(ctx context.Context, userID primitive.ObjectID, orderID, paymentID, signature string) (*models.Payment, error)
	MarkFailed(ctx context.Context, userID primitive.ObjectID, orderID, reason string) error
	RecordGatewayFailure(ctx context.Context, orderID, reason string) error
	ProcessRefund(ctx context.Context, userID primitive.ObjectID, orderID, reason string) (*models.Payment, error)
	GetPaymentHistory(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Payment, int64, error)
	GetByOrderID(ctx context.Context, userID primitive.ObjectID, orderID string) (*models.Payment, error)
}

const paymentsCollection = "payments"

// CartOrder is everything the checkout overlay needs to open, plus the
// pricing breakdown shown alongside it.
type CartOrder struct {
	OrderID     string                   `json:"orderId"`
	AmountPaise int64                    `json:"amount"`
	Currency    string                   `json:"currency"`
	Receipt     string                   `json:"receipt"`
	KeyID       string                   `json:"keyId"`
	Name        string                   `json:"name"`
	ThemeColor  string                   `json:"themeColor"`
	Calculation pricing.OrderCalculation `json:"calculation"`
}

// paymentService implements IPaymentService.
type paymentService struct {
	db           *mongo.Database
	cfg          *config.Config
	gateway      gateway.IGateway
	pricing      *pricing.Engine
	transactions ITransactionService
}

// NewPaymentService creates a new PaymentService. The transaction service is
// used for refund bookkeeping and may be nil in callers that do not ledger.
func NewPaymentService(database *mongo.Database, cfg *config.Config, gw gateway.IGateway, engine *pricing.Engine, txns ITransactionService) IPaymentService {
	return &paymentService{db: database, cfg: cfg, gateway: gw, pricing: engine, transactions: txns}
}

// CreateCartOrder prices the cart, opens a gateway order for the total and
// records a Payment in status created. Totals under the minimum chargeable
// amount are rejected before any gateway call.
func (s *paymentService) CreateCartOrder(ctx context.Context, userID primitive.ObjectID, items []pricing.OrderItem, customerInfo map[string]interface{}) (*CartOrder, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if errs := s.pricing.ValidateItems(items); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrValidation, errs[0])
	}

	calc := s.pricing.Calculate(items)
	amountPaise := pricing.Paise(calc.TotalAmount)
	if amountPaise < s.cfg.MinChargePaise {
		return nil, fmt.Errorf("%w: %d paise is under the %d paise minimum", ErrAmountBelowMinimum, amountPaise, s.cfg.MinChargePaise)
	}

	receipt := utils.NewReceipt()
	notes := map[string]interface{}{
		"userId":  userID.Hex(),
		"receipt": receipt,
	}
	order, err := s.gateway.CreateOrder(ctx, amountPaise, s.cfg.Currency, receipt, notes)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment := &models.Payment{
		UserID:          userID,
		RazorpayOrderID: order.ID,
		Amount:          calc.TotalAmount,
		Currency:        s.cfg.Currency,
		Status:          models.PaymentCreated,
		Description:     fmt.Sprintf("Document services order (%d items)", len(items)),
		Receipt:         receipt,
		Notes:           customerInfo,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if _, err := s.db.Collection(paymentsCollection).InsertOne(ctx, payment); err != nil {
		// The gateway order exists but was never handed to a customer; it
		// expires on its own. Surface the storage failure.
		return nil, fmt.Errorf("failed to record payment for order %s: %w", order.ID, err)
	}

	return &CartOrder{
		OrderID:     order.ID,
		AmountPaise: amountPaise,
		Currency:    s.cfg.Currency,
		Receipt:     receipt,
		KeyID:       s.gateway.KeyID(),
		Name:        s.cfg.CheckoutName,
		ThemeColor:  s.cfg.CheckoutThemeColor,
		Calculation: calc,
	}, nil
}

// VerifyPayment checks the checkout signature and promotes the Payment to
// paid, enriching it with the gateway's fee and method. Verifying an already
// paid order again with a valid signature is a no-op returning the record.
func (s *paymentService) VerifyPayment(ctx context.Context, userID primitive.ObjectID, orderID, paymentID, signature string) (*models.Payment, error) {
	if orderID == "" || paymentID == "" || signature == "" {
		return nil, fmt.Errorf("%w: orderId, paymentId and signature are required", ErrValidation)
	}
	if !s.gateway.VerifyPaymentSignature(orderID, paymentID, signature) {
		return nil, ErrInvalidSignature
	}

	payment, err := s.GetByOrderID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status == models.PaymentPaid {
		return payment, nil
	}
	if payment.Status == models.PaymentRefunded {
		return nil, fmt.Errorf("%w: order %s was refunded", ErrValidation, orderID)
	}

	now := time.Now().UTC()
	set := bson.M{
		"razorpay_payment_id": paymentID,
		"razorpay_signature":  signature,
		"status":              models.PaymentPaid,
		"payment_date":        now,
		"updated_at":          now,
	}

	// Fee and method details are cosmetic bookkeeping. A fetch failure must
	// not fail verification of a signature that already checked out.
	if details, err := s.gateway.FetchPayment(ctx, paymentID); err != nil {
		log.Printf("Could not fetch payment %s details: %v", paymentID, err)
	} else {
		set["payment_method"] = details.Method
		set["transaction_fee"] = details.FeePaise
		set["net_amount"] = payment.Amount - float64(details.FeePaise)/100
	}

	filter := bson.M{"razorpay_order_id": orderID, "user_id": userID}
	if _, err := s.db.Collection(paymentsCollection).UpdateOne(ctx, filter, bson.M{"$set": set}); err != nil {
		return nil, fmt.Errorf("failed to mark payment paid for order %s: %w", orderID, err)
	}
	return s.GetByOrderID(ctx, userID, orderID)
}

// MarkFailed records a gateway-reported failure. Failing an order that has
// already been paid is rejected as a regression.
func (s *paymentService) MarkFailed(ctx context.Context, userID primitive.ObjectID, orderID, reason string) error {
	payment, err := s.GetByOrderID(ctx, userID, orderID)
	if err != nil {
		return err
	}
	if payment.Status == models.PaymentPaid || payment.Status == models.PaymentRefunded {
		return fmt.Errorf("%w: order %s is %s", ErrStatusRegression, orderID, payment.Status)
	}

	filter := bson.M{"razorpay_order_id": orderID, "user_id": userID}
	update := bson.M{"$set": bson.M{
		"status":         models.PaymentFailed,
		"failure_reason": reason,
		"updated_at":     time.Now().UTC(),
	}}
	if _, err := s.db.Collection(paymentsCollection).UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("failed to mark payment failed for order %s: %w", orderID, err)
	}
	return nil
}

// RecordGatewayFailure marks a payment failed from a gateway webhook. The
// webhook is authenticated by its signature, not a user session, so the
// lookup is by order id alone. A paid or refunded order is left untouched:
// failure events can arrive after a successful retry.
func (s *paymentService) RecordGatewayFailure(ctx context.Context, orderID, reason string) error {
	var payment models.Payment
	err := s.db.Collection(paymentsCollection).FindOne(ctx, bson.M{"razorpay_order_id": orderID}).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to fetch payment for order %s: %w", orderID, err)
	}
	if payment.Status == models.PaymentPaid || payment.Status == models.PaymentRefunded {
		return fmt.Errorf("%w: order %s is %s", ErrStatusRegression, orderID, payment.Status)
	}

	update := bson.M{"$set": bson.M{
		"status":         models.PaymentFailed,
		"failure_reason": reason,
		"updated_at":     time.Now().UTC(),
	}}
	if _, err := s.db.Collection(paymentsCollection).UpdateOne(ctx, bson.M{"razorpay_order_id": orderID}, update); err != nil {
		return fmt.Errorf("failed to record gateway failure for order %s: %w", orderID, err)
	}
	return nil
}

// ProcessRefund refunds a paid order in full. Only paid payments are
// refundable; the transition is one-way.
func (s *paymentService) ProcessRefund(ctx context.Context, userID primitive.ObjectID, orderID, reason string) (*models.Payment, error) {
	payment, err := s.GetByOrderID(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.PaymentPaid {
		return nil, fmt.Errorf("%w: order %s is %s", ErrRefundNotAllowed, orderID, payment.Status)
	}
	if payment.RazorpayPaymentID == "" {
		return nil, fmt.Errorf("%w: order %s has no captured payment", ErrRefundNotAllowed, orderID)
	}

	amountPaise := pricing.Paise(payment.Amount)
	refund, err := s.gateway.CreateRefund(ctx, payment.RazorpayPaymentID, amountPaise, map[string]interface{}{
		"reason":  reason,
		"orderId": orderID,
	})
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	filter := bson.M{"razorpay_order_id": orderID, "user_id": userID}
	update := bson.M{"$set": bson.M{
		"status":        models.PaymentRefunded,
		"refund_id":     refund.ID,
		"refund_amount": payment.Amount,
		"refund_reason": reason,
		"refund_date":   now,
		"updated_at":    now,
	}}
	if _, err := s.db.Collection(paymentsCollection).UpdateOne(ctx, filter, update); err != nil {
		return nil, fmt.Errorf("failed to record refund for order %s: %w", orderID, err)
	}

	// Negative-amount ledger row for the refund. Bookkeeping only, so a
	// failure here is logged and does not undo the refund.
	if s.transactions != nil {
		_, err := s.transactions.Create(ctx, userID, CreateTransactionInput{
			Type:        models.TransactionTypeRefund,
			Amount:      -payment.Amount,
			AmountPaise: -amountPaise,
			Currency:    payment.Currency,
			Description: fmt.Sprintf("Refund for order %s", orderID),
			Metadata: map[string]interface{}{
				"orderId":  orderID,
				"refundId": refund.ID,
				"reason":   reason,
			},
		})
		if err != nil {
			log.Printf("Could not record refund ledger entry for order %s: %v", orderID, err)
		}
	}
	return s.GetByOrderID(ctx, userID, orderID)
}

// GetPaymentHistory returns a page of the user's payments, newest first.
func (s *paymentService) GetPaymentHistory(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Payment, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	collection := s.db.Collection(paymentsCollection)
	filter := bson.M{"user_id": userID}

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err = cursor.All(ctx, &payments); err != nil {
		return nil, 0, fmt.Errorf("failed to decode payments: %w", err)
	}
	return payments, total, nil
}

// GetByOrderID fetches one payment scoped to its owner.
func (s *paymentService) GetByOrderID(ctx context.Context, userID primitive.ObjectID, orderID string) (*models.Payment, error) {
	var payment models.Payment
	filter := bson.M{"razorpay_order_id": orderID, "user_id": userID}
	err := s.db.Collection(paymentsCollection).FindOne(ctx, filter).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment for order %s: %w", orderID, err)
	}
	return &payment, nil
}
