// Package checkout drives the client side of the pay-then-upload flow: one
// Coordinator instance per signed-in session walks a cart through pricing,
// the hosted gateway overlay and document ingestion, compensating where the
// steps are best-effort.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"udin/platform/internal/draft"
	"udin/platform/internal/gateway"
	"udin/platform/internal/models"
	"udin/platform/internal/pricing"
	"udin/platform/internal/services"
)

// ErrCheckoutInFlight reports a second Run while one is already active for
// this session. Double-clicks must never double-charge.
var ErrCheckoutInFlight = errors.New("a checkout is already in progress")

// State is the coordinator's observable progress through one checkout.
type State int32

const (
	StateIdle State = iota
	StateTransactionCreated
	StateGatewayOpened
	StateGatewayConfirmed
	StateUploading
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTransactionCreated:
		return "transaction_created"
	case StateGatewayOpened:
		return "gateway_opened"
	case StateGatewayConfirmed:
		return "gateway_confirmed"
	case StateUploading:
		return "uploading"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Ports are the coordinator's dependencies. The server-side service
// interfaces double as ports so in-process wiring and tests can hand the
// services straight in.
type Ports struct {
	Payments     services.IPaymentService
	Transactions services.ITransactionService
	Uploads      services.IUploadService
	Overlay      gateway.Checkout
	Drafts       draft.IStore
	Enqueuer     services.TxPatchEnqueuer // optional
}

// Result is what a completed checkout hands back to the caller.
type Result struct {
	Order         *services.CartOrder
	Payment       *models.Payment
	TransactionID string
	Ingest        *services.IngestResult
}

// Coordinator runs the checkout saga for one session. Safe for concurrent
// use; only one Run proceeds at a time.
type Coordinator struct {
	userID     primitive.ObjectID
	customer   gateway.Customer
	ports      Ports
	inProgress atomic.Bool
	state      atomic.Int32
}

// NewCoordinator creates a coordinator for one signed-in session.
func NewCoordinator(userID primitive.ObjectID, customer gateway.Customer, ports Ports) *Coordinator {
	return &Coordinator{userID: userID, customer: customer, ports: ports}
}

// State reports the coordinator's current progress.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Run executes one checkout over the union of sessionFiles and the persisted
// draft set. Session files win on id collisions: the in-memory copy is what
// the user most recently touched.
//
// The ledger writes along the way are best-effort: a dead ledger must never
// block a willing payer, so failures are logged (and queued for replay once
// money has actually moved) instead of aborting. The draft set is cleared
// only after ingestion confirms the documents exist server-side.
func (c *Coordinator) Run(ctx context.Context, sessionFiles []draft.File) (*Result, error) {
	if !c.inProgress.CompareAndSwap(false, true) {
		return nil, ErrCheckoutInFlight
	}
	defer c.inProgress.Store(false)
	c.state.Store(int32(StateIdle))

	files, err := c.mergeFiles(sessionFiles)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files selected", services.ErrValidation)
	}
	items := buildItems(files)

	// Price the cart and open the gateway order. Amount and item validation
	// happen server-side; anything under the minimum charge fails here,
	// before any state exists to unwind.
	order, err := c.ports.Payments.CreateCartOrder(ctx, c.userID, items, customerMap(c.customer))
	if err != nil {
		return nil, err
	}

	txnID := c.createLedgerEntry(ctx, order, items, files)
	if txnID != "" {
		c.state.Store(int32(StateTransactionCreated))
		c.patchLedger(ctx, txnID, services.StatusPatch{
			Status:   models.TransactionPending,
			Razorpay: &models.RazorpayData{OrderID: order.OrderID},
		}, false)
	}

	notes := map[string]string{"receipt": order.Receipt}
	if txnID != "" {
		notes["transactionId"] = txnID
	}

	c.state.Store(int32(StateGatewayOpened))
	confirmed, err := c.ports.Overlay.Open(ctx, gateway.CheckoutRequest{
		Key:         order.KeyID,
		OrderID:     order.OrderID,
		AmountPaise: order.AmountPaise,
		Currency:    order.Currency,
		Name:        order.Name,
		Description: fmt.Sprintf("%d document(s)", len(files)),
		Customer:    c.customer,
		Notes:       notes,
		ThemeColor:  order.ThemeColor,
	})
	if err != nil {
		return nil, c.abortAfterOverlay(ctx, txnID, order.OrderID, err)
	}
	c.state.Store(int32(StateGatewayConfirmed))

	payment, err := c.ports.Payments.VerifyPayment(ctx, c.userID, confirmed.OrderID, confirmed.PaymentID, confirmed.Signature)
	if err != nil {
		if txnID != "" {
			c.patchLedger(ctx, txnID, services.StatusPatch{
				Status:        models.TransactionFailed,
				FailureReason: err.Error(),
			}, false)
		}
		return nil, err
	}

	// Money has moved. From here every ledger patch failure is queued for
	// replay rather than merely logged.
	if txnID != "" {
		c.patchLedger(ctx, txnID, services.StatusPatch{
			Status: models.TransactionPaid,
			Razorpay: &models.RazorpayData{
				OrderID:   confirmed.OrderID,
				PaymentID: confirmed.PaymentID,
				Signature: confirmed.Signature,
			},
		}, true)
	}

	c.state.Store(int32(StateUploading))
	ingest, err := c.ports.Uploads.Ingest(ctx, c.userID, services.IngestInput{
		Files:         toIngestFiles(files),
		TransactionID: txnID,
		CustomerInfo:  customerMap(c.customer),
		PricingSnapshot: map[string]interface{}{
			"subtotal":     order.Calculation.Subtotal,
			"bulkDiscount": order.Calculation.BulkDiscount,
			"gstAmount":    order.Calculation.GSTAmount,
			"totalAmount":  order.Calculation.TotalAmount,
		},
	})
	if err == nil && ingest.Upload.Status == models.UploadFailed {
		// A failed batch returns a nil error: each file's storage error
		// lives on the batch record, not the call.
		reason := "no documents stored"
		if len(ingest.Upload.Errors) > 0 {
			reason = ingest.Upload.Errors[0]
		}
		err = errors.New(reason)
	}
	if err != nil {
		// Paid but nothing delivered. Keep the draft for a retry; the
		// reconcile sweep flags the ledger entry if no retry lands.
		if txnID != "" {
			c.patchLedger(ctx, txnID, services.StatusPatch{
				Status:   models.TransactionPaid,
				Metadata: map[string]interface{}{"requiresManualReview": true},
			}, true)
		}
		return nil, fmt.Errorf("payment succeeded but upload failed: %w", err)
	}

	if err := c.ports.Drafts.Clear(); err != nil {
		log.Printf("Could not clear draft store after checkout: %v", err)
	}

	c.state.Store(int32(StateDone))
	return &Result{
		Order:         order,
		Payment:       payment,
		TransactionID: txnID,
		Ingest:        ingest,
	}, nil
}

// mergeFiles unions the session's in-memory files with the persisted draft
// set, session copies winning on id. A broken draft store degrades to the
// session files alone.
func (c *Coordinator) mergeFiles(sessionFiles []draft.File) ([]draft.File, error) {
	seen := make(map[string]bool, len(sessionFiles))
	merged := make([]draft.File, 0, len(sessionFiles))
	for _, f := range sessionFiles {
		if f.ID == "" || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		merged = append(merged, f)
	}

	drafts, err := c.ports.Drafts.List()
	if err != nil {
		if errors.Is(err, draft.ErrStoreUnavailable) {
			log.Printf("Draft store unavailable, continuing with session files only: %v", err)
			return merged, nil
		}
		return nil, err
	}
	for _, f := range drafts {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		merged = append(merged, f)
	}
	return merged, nil
}

// createLedgerEntry opens the initiated ledger row. Best effort: returns ""
// when the ledger is unreachable and the checkout proceeds without one.
func (c *Coordinator) createLedgerEntry(ctx context.Context, order *services.CartOrder, items []pricing.OrderItem, files []draft.File) string {
	// CreateCartOrder validated every item, so the breakdown lines align
	// one-to-one with the order items.
	txnItems := make([]models.TransactionItem, 0, len(items))
	for i, item := range items {
		var unit float64
		if i < len(order.Calculation.Breakdown) {
			unit = order.Calculation.Breakdown[i].UnitPrice
		}
		txnItems = append(txnItems, models.TransactionItem{
			DocumentTypeID: item.DocumentTypeID,
			Tier:           item.Tier,
			Quantity:       item.Quantity,
			UnitPrice:      unit,
			FileID:         files[i].ID,
			FileName:       files[i].Name,
		})
	}

	txn, err := c.ports.Transactions.Create(ctx, c.userID, services.CreateTransactionInput{
		Type:        models.TransactionTypePayment,
		Amount:      order.Calculation.TotalAmount,
		AmountPaise: order.AmountPaise,
		Currency:    order.Currency,
		Description: fmt.Sprintf("Checkout of %d file(s)", len(files)),
		Amounts: models.TransactionAmounts{
			Subtotal:     order.Calculation.Subtotal,
			BulkDiscount: order.Calculation.BulkDiscount,
			GSTAmount:    order.Calculation.GSTAmount,
			TotalAmount:  order.Calculation.TotalAmount,
		},
		Items: txnItems,
	})
	if err != nil {
		log.Printf("Could not create ledger entry for order %s: %v", order.OrderID, err)
		return ""
	}
	return txn.TransactionID
}

// patchLedger applies a best-effort status patch. When enqueueOnFail is set
// a failed patch goes to the compensation queue for at-least-once replay.
func (c *Coordinator) patchLedger(ctx context.Context, txnID string, patch services.StatusPatch, enqueueOnFail bool) {
	_, err := c.ports.Transactions.UpdateStatus(ctx, c.userID, txnID, patch)
	if err == nil {
		return
	}
	log.Printf("Could not patch transaction %s to %s: %v", txnID, patch.Status, err)
	if !enqueueOnFail || c.ports.Enqueuer == nil {
		return
	}
	meta := patch.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if patch.Razorpay != nil {
		meta["orderId"] = patch.Razorpay.OrderID
		meta["paymentId"] = patch.Razorpay.PaymentID
	}
	if qErr := c.ports.Enqueuer.EnqueueTransactionPatch(ctx, c.userID, txnID, patch.Status, meta); qErr != nil {
		log.Printf("Could not enqueue compensation for transaction %s: %v", txnID, qErr)
	}
}

// abortAfterOverlay settles the payment and ledger records after the overlay
// ends without a confirmed charge. Dismissals cancel, gateway failures fail;
// either way the draft set survives for a retry.
func (c *Coordinator) abortAfterOverlay(ctx context.Context, txnID, orderID string, overlayErr error) error {
	var failed *gateway.CheckoutFailedError
	switch {
	case errors.Is(overlayErr, gateway.ErrCheckoutDismissed):
		if txnID != "" {
			c.patchLedger(ctx, txnID, services.StatusPatch{
				Status:   models.TransactionCancelled,
				Metadata: map[string]interface{}{"cancelReason": "popup dismissed"},
			}, false)
		}
	case errors.As(overlayErr, &failed):
		if txnID != "" {
			c.patchLedger(ctx, txnID, services.StatusPatch{
				Status:        models.TransactionFailed,
				FailureReason: failed.Reason,
			}, false)
		}
		if err := c.ports.Payments.MarkFailed(ctx, c.userID, orderID, failed.Reason); err != nil {
			log.Printf("Could not mark payment failed for order %s: %v", orderID, err)
		}
	}
	return overlayErr
}

// buildItems derives one order line per file.
func buildItems(files []draft.File) []pricing.OrderItem {
	items := make([]pricing.OrderItem, 0, len(files))
	for _, f := range files {
		items = append(items, pricing.OrderItem{
			DocumentTypeID: f.DocumentTypeID,
			Tier:           f.Tier,
			Quantity:       1,
			FileName:       f.Name,
			FileID:         f.ID,
		})
	}
	return items
}

func toIngestFiles(files []draft.File) []services.IngestFile {
	out := make([]services.IngestFile, 0, len(files))
	for _, f := range files {
		out = append(out, services.IngestFile{
			Name:           f.Name,
			ContentType:    f.Type,
			Data:           f.Payload,
			DocumentTypeID: f.DocumentTypeID,
			Tier:           f.Tier,
		})
	}
	return out
}

func customerMap(c gateway.Customer) map[string]interface{} {
	return map[string]interface{}{
		"name":    c.Name,
		"email":   c.Email,
		"contact": c.Contact,
	}
}
