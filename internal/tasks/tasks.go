package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"udin/platform/internal/config"
	"udin/platform/internal/models"
	"udin/platform/internal/services"
)

// Task types for the reconciliation queue.
const (
	TypeTransactionPatch = "reconcile:tx_patch"
	TypeReconcileSweep   = "reconcile:sweep"
)

// TransactionPatchPayload carries one deferred ledger update. These are
// best-effort patches whose inline attempt failed; the queue retries them
// at least once more.
type TransactionPatchPayload struct {
	UserID        string                   `json:"user_id"`
	TransactionID string                   `json:"transaction_id"`
	Status        models.TransactionStatus `json:"status"`
	Metadata      map[string]interface{}   `json:"metadata,omitempty"`
}

// --- Task Client (Enqueuing tasks) ---

// Client wraps the asynq client with typed enqueue helpers. It satisfies
// services.TxPatchEnqueuer.
type Client struct {
	inner *asynq.Client
}

// NewClient creates a task client on the shared Redis connection settings.
func NewClient(rdb *redis.Client) *Client {
	clientOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}
	return &Client{inner: asynq.NewClient(clientOpt)}
}

// EnqueueTransactionPatch queues a deferred ledger status patch.
func (c *Client) EnqueueTransactionPatch(ctx context.Context, userID primitive.ObjectID, transactionID string, status models.TransactionStatus, metadata map[string]interface{}) error {
	payload, err := json.Marshal(TransactionPatchPayload{
		UserID:        userID.Hex(),
		TransactionID: transactionID,
		Status:        status,
		Metadata:      metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transaction patch payload: %w", err)
	}
	task := asynq.NewTask(TypeTransactionPatch, payload)
	info, err := c.inner.EnqueueContext(ctx, task, asynq.Queue("critical"), asynq.MaxRetry(10))
	if err != nil {
		return fmt.Errorf("failed to enqueue transaction patch: %w", err)
	}
	log.Printf("Enqueued ledger patch task %s for transaction %s", info.ID, transactionID)
	return nil
}

// EnqueueReconcileSweep queues one pass of the unmatched-payment sweep.
func (c *Client) EnqueueReconcileSweep(ctx context.Context) error {
	task := asynq.NewTask(TypeReconcileSweep, nil)
	if _, err := c.inner.EnqueueContext(ctx, task, asynq.Queue("low")); err != nil {
		return fmt.Errorf("failed to enqueue reconcile sweep: %w", err)
	}
	return nil
}

// Close releases the underlying asynq client.
func (c *Client) Close() error {
	return c.inner.Close()
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks. It holds dependencies
// needed by task handlers.
type TaskProcessor struct {
	cfg                *config.Config
	transactionService services.ITransactionService
}

func NewTaskProcessor(cfg *config.Config, transactionService services.ITransactionService) *TaskProcessor {
	return &TaskProcessor{
		cfg:                cfg,
		transactionService: transactionService,
	}
}

// SetupServer configures and starts an Asynq server instance. Returns nil
// in API-only mode where no worker runs; callers own Shutdown.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isBgWorker bool) *asynq.Server {
	if !isBgWorker {
		fmt.Println("Running in API mode, no task server started.")
		return nil
	}

	serverOpt := asynq.RedisClientOpt{
		Addr:     rdb.Options().Addr,
		Password: rdb.Options().Password,
		DB:       rdb.Options().DB,
	}

	srv := asynq.NewServer(
		serverOpt,
		asynq.Config{
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				fmt.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v\n", task.Type(), string(task.Payload()), err)
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeTransactionPatch, processor.HandleTransactionPatchTask)
	mux.HandleFunc(TypeReconcileSweep, processor.HandleReconcileSweepTask)
	fmt.Println("Registered reconciliation task handlers.")

	if err := srv.Start(mux); err != nil {
		log.Fatalf("Could not start Asynq server: %v", err)
	}

	return srv
}

// --- Task Handlers ---

// HandleTransactionPatchTask replays a ledger patch that failed inline.
// Regressions and unknown transactions are dropped rather than retried: the
// ledger has already moved past this patch, or the patch was bogus.
func (p *TaskProcessor) HandleTransactionPatchTask(ctx context.Context, t *asynq.Task) error {
	var payload TransactionPatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal transaction patch payload: %v: %w", err, asynq.SkipRetry)
	}

	userID, err := primitive.ObjectIDFromHex(payload.UserID)
	if err != nil {
		log.Printf("Invalid user id in patch task payload: %s", payload.UserID)
		return fmt.Errorf("invalid user id in payload: %w", asynq.SkipRetry)
	}

	_, err = p.transactionService.UpdateStatus(ctx, userID, payload.TransactionID, services.StatusPatch{
		Status:   payload.Status,
		Metadata: payload.Metadata,
	})
	switch {
	case err == nil:
		log.Printf("Replayed ledger patch for transaction %s -> %s", payload.TransactionID, payload.Status)
		return nil
	case errors.Is(err, services.ErrStatusRegression):
		log.Printf("Ledger patch for %s superseded (%v), dropping task", payload.TransactionID, err)
		return nil
	case errors.Is(err, services.ErrNotFound):
		return fmt.Errorf("transaction %s not found: %w", payload.TransactionID, asynq.SkipRetry)
	default:
		return err
	}
}

// HandleReconcileSweepTask flags paid transactions whose documents never
// arrived inside the reconciliation window.
func (p *TaskProcessor) HandleReconcileSweepTask(ctx context.Context, t *asynq.Task) error {
	flagged, err := p.transactionService.SweepUnmatched(ctx, p.cfg.ReconcileWindow)
	if err != nil {
		return err
	}
	log.Printf("Reconcile sweep finished, flagged %d transactions", flagged)
	return nil
}
