package services_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"udin/platform/internal/config"
	"udin/platform/internal/models"
	"udin/platform/internal/services"
	"udin/platform/internal/utils"
)

func setupTransactionTest(t *testing.T) (*mongo.Database, services.ITransactionService) {
	t.Helper()
	db := utils.SetupTestDB(t, "udin_platform_test", "transactions")
	cfg := &config.Config{Currency: "INR"}
	return db, services.NewTransactionService(db, cfg)
}

func TestTransactionService_Create(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	txn, err := svc.Create(ctx, userID, services.CreateTransactionInput{
		Type:        models.TransactionTypePayment,
		Amount:      590,
		AmountPaise: 59000,
		Description: "Checkout of 1 file(s)",
	})
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^TXN_\d{13}_\d{4}$`), txn.TransactionID)
	assert.Equal(t, models.TransactionInitiated, txn.Status)
	assert.Equal(t, "razorpay", txn.Provider)
	assert.Equal(t, "INR", txn.Currency, "currency should default from config")
	assert.Equal(t, models.ReconciliationPending, txn.ReconciliationStatus)
	assert.False(t, txn.ID.IsZero())
}

func TestTransactionService_Create_Validation(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, primitive.NilObjectID, services.CreateTransactionInput{Type: models.TransactionTypePayment})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.Create(ctx, primitive.NewObjectID(), services.CreateTransactionInput{})
	assert.ErrorIs(t, err, services.ErrValidation)

	_, err = svc.Create(ctx, primitive.NewObjectID(), services.CreateTransactionInput{
		Type:   models.TransactionTypePayment,
		Amount: -1,
	})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestTransactionService_GetByID_OwnershipScoped(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	owner := primitive.NewObjectID()
	stranger := primitive.NewObjectID()

	txn, err := svc.Create(ctx, owner, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, owner, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, txn.TransactionID, got.TransactionID)

	// Someone else's transaction reads as a plain miss.
	_, err = svc.GetByID(ctx, stranger, txn.TransactionID)
	assert.ErrorIs(t, err, services.ErrNotFound)

	_, err = svc.GetByID(ctx, owner, "TXN_0000000000000_0000")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestTransactionService_UpdateStatus_Lifecycle(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	txn, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{
		Status:   models.TransactionPending,
		Razorpay: &models.RazorpayData{OrderID: "order_ABC123"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPending, updated.Status)
	require.NotNil(t, updated.RazorpayData)
	assert.Equal(t, "order_ABC123", updated.RazorpayData.OrderID)

	updated, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{
		Status:   models.TransactionPaid,
		Razorpay: &models.RazorpayData{PaymentID: "pay_XYZ", Signature: "sig"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPaid, updated.Status)
	require.NotNil(t, updated.PaidAt)
	assert.Equal(t, models.ReconciliationMatched, updated.ReconciliationStatus)
	// The order id set by the earlier patch survives the partial update.
	assert.Equal(t, "order_ABC123", updated.RazorpayData.OrderID)
	assert.Equal(t, "pay_XYZ", updated.RazorpayData.PaymentID)
}

func TestTransactionService_UpdateStatus_RejectsRegression(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	txn, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{Status: models.TransactionPaid})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{Status: models.TransactionPending})
	assert.ErrorIs(t, err, services.ErrStatusRegression)

	// A charged transaction can never be rewound to a failure exit.
	_, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{Status: models.TransactionFailed})
	assert.ErrorIs(t, err, services.ErrStatusRegression)
	_, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{Status: models.TransactionCancelled})
	assert.ErrorIs(t, err, services.ErrStatusRegression)

	// The stored status is untouched.
	got, err := svc.GetByID(ctx, userID, txn.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPaid, got.Status)
}

func TestTransactionService_UpdateStatus_RetryAfterFailure(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	txn, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{
		Status:        models.TransactionFailed,
		FailureReason: "card declined",
	})
	require.NoError(t, err)

	// A retried payment moves a failed row forward.
	got, err := svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{Status: models.TransactionPaid})
	require.NoError(t, err)
	assert.Equal(t, models.TransactionPaid, got.Status)
}

func TestTransactionService_UpdateStatus_UnknownStatus(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	txn, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{Status: "exploded"})
	assert.ErrorIs(t, err, services.ErrValidation)
}

func TestTransactionService_UpdateStatus_MetadataMergesShallowly(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	txn, err := svc.Create(ctx, userID, services.CreateTransactionInput{
		Type:     models.TransactionTypePayment,
		Amount:   590,
		Metadata: map[string]interface{}{"source": "web", "cartSize": 2},
	})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{
		Status:   models.TransactionPending,
		Metadata: map[string]interface{}{"cartSize": 3, "promo": "NONE"},
	})
	require.NoError(t, err)

	// Patched keys overwrite, unrelated keys survive.
	assert.Equal(t, "web", updated.Metadata["source"])
	assert.EqualValues(t, 3, updated.Metadata["cartSize"])
	assert.Equal(t, "NONE", updated.Metadata["promo"])
}

func TestTransactionService_GetByOrderID(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	txn, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, userID, txn.TransactionID, services.StatusPatch{
		Status:   models.TransactionPending,
		Razorpay: &models.RazorpayData{OrderID: "order_LOOKUP"},
	})
	require.NoError(t, err)

	got, err := svc.GetByOrderID(ctx, "order_LOOKUP")
	require.NoError(t, err)
	assert.Equal(t, txn.TransactionID, got.TransactionID)

	_, err = svc.GetByOrderID(ctx, "order_MISSING")
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestTransactionService_ListByUser(t *testing.T) {
	_, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	other := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 100})
		require.NoError(t, err)
	}
	_, err := svc.Create(ctx, other, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 100})
	require.NoError(t, err)

	txns, total, err := svc.ListByUser(ctx, userID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, txns, 2)

	txns, _, err = svc.ListByUser(ctx, userID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestTransactionService_SweepUnmatched(t *testing.T) {
	db, svc := setupTransactionTest(t)
	ctx := context.Background()
	userID := primitive.NewObjectID()

	stale, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, userID, stale.TransactionID, services.StatusPatch{Status: models.TransactionPaid})
	require.NoError(t, err)

	fresh, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, userID, fresh.TransactionID, services.StatusPatch{Status: models.TransactionPaid})
	require.NoError(t, err)

	delivered, err := svc.Create(ctx, userID, services.CreateTransactionInput{Type: models.TransactionTypePayment, Amount: 590})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, userID, delivered.TransactionID, services.StatusPatch{Status: models.TransactionPaid})
	require.NoError(t, err)
	_, err = svc.UpdateStatus(ctx, userID, delivered.TransactionID, services.StatusPatch{Status: models.TransactionUploaded})
	require.NoError(t, err)

	// Backdate the stale payment past the reconciliation window.
	_, err = db.Collection("transactions").UpdateOne(ctx,
		bson.M{"transaction_id": stale.TransactionID},
		bson.M{"$set": bson.M{"paid_at": time.Now().UTC().Add(-2 * time.Hour)}})
	require.NoError(t, err)

	flagged, err := svc.SweepUnmatched(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), flagged)

	got, err := svc.GetByID(ctx, userID, stale.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationUnmatched, got.ReconciliationStatus)
	assert.Equal(t, true, got.Metadata["requiresManualReview"])
	// Still paid: flagging never touches the money state.
	assert.Equal(t, models.TransactionPaid, got.Status)

	// Re-running the sweep does not flag the same entry twice.
	flagged, err = svc.SweepUnmatched(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(0), flagged)

	recent, err := svc.GetByID(ctx, userID, fresh.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, models.ReconciliationMatched, recent.ReconciliationStatus)
}
