package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"udin/platform/internal/config"
	"udin/platform/internal/db"
	"udin/platform/internal/models"
	"udin/platform/internal/storage"
	"udin/platform/internal/utils"
)

// IUploadService defines the interface for batch document ingestion.
type IUploadService interface {
	Ingest(ctx context.Context, userID primitive.ObjectID, input IngestInput) (*IngestResult, error)
	GetUploadStatus(ctx context.Context, userID primitive.ObjectID, uploadID string) (*models.Upload, error)
	GetUserUploads(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Upload, int64, error)
}

// TxPatchEnqueuer hands failed best-effort ledger patches to the background
// queue for at-least-once retry. Satisfied by the tasks client.
type TxPatchEnqueuer interface {
	EnqueueTransactionPatch(ctx context.Context, userID primitive.ObjectID, transactionID string, status models.TransactionStatus, metadata map[string]interface{}) error
}

const (
	uploadsCollection   = "uploads"
	documentsCollection = "documents"
	countersCollection  = "counters"
)

// IngestFile is one file of an ingestion batch, bytes included.
type IngestFile struct {
	Name           string
	ContentType    string
	Data           []byte
	DocumentTypeID string
	Tier           string
}

// IngestInput is one Ingest invocation. TransactionID links the batch to a
// paid ledger entry when the intake flow drives it; direct uploads leave it
// empty.
type IngestInput struct {
	Files           []IngestFile
	TransactionID   string
	CustomerInfo    map[string]interface{}
	PricingSnapshot map[string]interface{}
	Metadata        map[string]interface{}
	UploadIP        string
	UserAgent       string
}

// FileResult is the per-file outcome of an ingestion batch.
type FileResult struct {
	FileName string `json:"fileName"`
	UDIN     string `json:"udin,omitempty"`
	Error    string `json:"error,omitempty"`
}

// IngestResult pairs the batch record with per-file outcomes.
type IngestResult struct {
	Upload  *models.Upload `json:"upload"`
	Results []FileResult   `json:"results"`
}

// uploadService implements IUploadService.
type uploadService struct {
	db                 *mongo.Database
	cfg                *config.Config
	storage            storage.IDocumentStorage
	transactionService ITransactionService
	enqueuer           TxPatchEnqueuer
}

// NewUploadService creates a new UploadService. enqueuer may be nil in
// contexts with no background queue; failed ledger patches are then only
// logged.
func NewUploadService(database *mongo.Database, cfg *config.Config, store storage.IDocumentStorage, txService ITransactionService, enqueuer TxPatchEnqueuer) IUploadService {
	return &uploadService{
		db:                 database,
		cfg:                cfg,
		storage:            store,
		transactionService: txService,
		enqueuer:           enqueuer,
	}
}

// Ingest persists a batch of files as documents. The batch record is written
// first so a crash mid-loop leaves an auditable trail; each file then goes
// through validation, content dedup, UDIN allocation and storage
// independently, so one bad file never sinks its siblings. The batch always
// ends in a terminal status.
func (s *uploadService) Ingest(ctx context.Context, userID primitive.ObjectID, input IngestInput) (*IngestResult, error) {
	if userID.IsZero() {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(input.Files) == 0 {
		return nil, fmt.Errorf("%w: no files to ingest", ErrValidation)
	}
	if len(input.Files) > s.cfg.MaxFilesPerUpload {
		return nil, fmt.Errorf("%w: at most %d files per upload", ErrValidation, s.cfg.MaxFilesPerUpload)
	}

	now := time.Now().UTC()
	upload := &models.Upload{
		UploadID:        utils.NewUploadID(),
		UserID:          userID,
		Status:          models.UploadProcessing,
		FileCount:       len(input.Files),
		CustomerInfo:    input.CustomerInfo,
		PricingSnapshot: input.PricingSnapshot,
		Metadata:        input.Metadata,
		Errors:          []string{},
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err := db.Try(func() error {
		upload.UploadID = utils.NewUploadID()
		res, err := s.db.Collection(uploadsCollection).InsertOne(ctx, upload)
		if err != nil {
			return err
		}
		if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
			upload.ID = oid
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create upload record: %w", err)
	}

	results := make([]FileResult, 0, len(input.Files))
	processed := 0
	storageDown := false
	for _, file := range input.Files {
		udin, err := s.ingestOne(ctx, userID, upload.ID, file, input)
		if err != nil {
			if errors.Is(err, storage.ErrStorageUnavailable) {
				storageDown = true
			}
			msg := fmt.Sprintf("%s: %s", file.Name, errMessage(err))
			upload.Errors = append(upload.Errors, msg)
			results = append(results, FileResult{FileName: file.Name, Error: errMessage(err)})
			continue
		}
		processed++
		results = append(results, FileResult{FileName: file.Name, UDIN: udin})
	}

	// "failed" is reserved for batches the infrastructure sank. A batch
	// where every file was individually rejected still ran to the end.
	switch {
	case processed == len(input.Files):
		upload.Status = models.UploadCompleted
	case processed == 0 && storageDown:
		upload.Status = models.UploadFailed
	default:
		upload.Status = models.UploadCompletedWithErrors
	}
	upload.ProcessedFiles = processed
	upload.UpdatedAt = time.Now().UTC()

	update := bson.M{"$set": bson.M{
		"status":          upload.Status,
		"processed_files": upload.ProcessedFiles,
		"errors":          upload.Errors,
		"updated_at":      upload.UpdatedAt,
	}}
	if _, err := s.db.Collection(uploadsCollection).UpdateOne(ctx, bson.M{"_id": upload.ID}, update); err != nil {
		return nil, fmt.Errorf("failed to finalize upload %s: %w", upload.UploadID, err)
	}

	if input.TransactionID != "" && processed > 0 {
		s.advanceLedger(ctx, userID, input.TransactionID, upload)
	}

	return &IngestResult{Upload: upload, Results: results}, nil
}

// ingestOne handles a single file: validate, hash, dedup, allocate a UDIN,
// store the bytes, record the document.
func (s *uploadService) ingestOne(ctx context.Context, userID, uploadRef primitive.ObjectID, file IngestFile, input IngestInput) (string, error) {
	if err := s.validateFile(file); err != nil {
		return "", err
	}

	sum := sha256.Sum256(file.Data)
	hash := hex.EncodeToString(sum[:])

	// Cheap pre-check; the partial unique index is the real guarantee.
	count, err := s.db.Collection(documentsCollection).CountDocuments(ctx, bson.M{
		"user_id":       userID,
		"document_hash": hash,
		"is_active":     true,
	})
	if err != nil {
		return "", fmt.Errorf("dedup check failed: %w", err)
	}
	if count > 0 {
		return "", ErrDuplicateContent
	}

	seq, err := s.nextSequence(ctx, "udin")
	if err != nil {
		return "", fmt.Errorf("failed to allocate UDIN: %w", err)
	}
	udin := utils.NewUDIN(seq)

	safeName := sanitizeFileName(file.Name)
	key := fmt.Sprintf("documents/%s/%s_%s", userID.Hex(), uuid.NewString(), safeName)
	url, err := s.storage.Save(ctx, key, file.ContentType, file.Data)
	if err != nil {
		return "", err
	}

	now := time.Now().UTC()
	doc := &models.Document{
		UserID:       userID,
		UDIN:         udin,
		FileName:     safeName,
		OriginalName: file.Name,
		FileType:     fileExtension(file.Name),
		FileSize:     int64(len(file.Data)),
		StorageKey:   key,
		FileURL:      url,
		DocumentHash: hash,
		Status:       models.DocumentUploaded,
		UploadDate:   now,
		Metadata: models.DocumentMeta{
			UploadIP:       input.UploadIP,
			UserAgent:      input.UserAgent,
			Checksum:       hash,
			DocumentTypeID: file.DocumentTypeID,
			Tier:           file.Tier,
		},
		UploadRef: &uploadRef,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.Collection(documentsCollection).InsertOne(ctx, doc); err != nil {
		// Undo the stored bytes so retries do not leak orphans.
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			log.Printf("Could not remove orphaned object %s: %v", key, delErr)
		}
		if db.IsMongoDuplicateKeyError(err) {
			return "", ErrDuplicateContent
		}
		return "", fmt.Errorf("failed to record document: %w", err)
	}
	return udin, nil
}

// advanceLedger moves the linked transaction to uploaded. This is best
// effort: a failure must not fail a batch whose documents already exist, so
// it is handed to the compensation queue instead.
func (s *uploadService) advanceLedger(ctx context.Context, userID primitive.ObjectID, transactionID string, upload *models.Upload) {
	meta := map[string]interface{}{
		"uploadId":       upload.UploadID,
		"uploadedAt":     time.Now().UTC().Format(time.RFC3339),
		"processedFiles": upload.ProcessedFiles,
	}
	_, err := s.transactionService.UpdateStatus(ctx, userID, transactionID, StatusPatch{
		Status:   models.TransactionUploaded,
		Metadata: meta,
	})
	if err == nil {
		return
	}
	log.Printf("Could not advance transaction %s to uploaded: %v", transactionID, err)
	if s.enqueuer == nil {
		return
	}
	if qErr := s.enqueuer.EnqueueTransactionPatch(ctx, userID, transactionID, models.TransactionUploaded, meta); qErr != nil {
		log.Printf("Could not enqueue ledger patch for transaction %s: %v", transactionID, qErr)
	}
}

// GetUploadStatus fetches one batch record scoped to its owner.
func (s *uploadService) GetUploadStatus(ctx context.Context, userID primitive.ObjectID, uploadID string) (*models.Upload, error) {
	var upload models.Upload
	filter := bson.M{"upload_id": uploadID, "user_id": userID}
	err := s.db.Collection(uploadsCollection).FindOne(ctx, filter).Decode(&upload)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch upload %s: %w", uploadID, err)
	}
	return &upload, nil
}

// GetUserUploads returns a page of the user's batches, newest first.
func (s *uploadService) GetUserUploads(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Upload, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	collection := s.db.Collection(uploadsCollection)
	filter := bson.M{"user_id": userID}

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count uploads: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer cursor.Close(ctx)

	uploads := []models.Upload{}
	if err = cursor.All(ctx, &uploads); err != nil {
		return nil, 0, fmt.Errorf("failed to decode uploads: %w", err)
	}
	return uploads, total, nil
}

// validateFile enforces the intake limits on size and extension.
func (s *uploadService) validateFile(file IngestFile) error {
	size := int64(len(file.Data))
	if size < s.cfg.MinFileSizeBytes {
		return fmt.Errorf("%w: file smaller than %d bytes", ErrValidation, s.cfg.MinFileSizeBytes)
	}
	if size > s.cfg.MaxFileSizeBytes {
		return fmt.Errorf("%w: file exceeds %d bytes", ErrValidation, s.cfg.MaxFileSizeBytes)
	}
	if !models.AllowedFileTypes[fileExtension(file.Name)] {
		return fmt.Errorf("%w: unsupported file type %q", ErrValidation, fileExtension(file.Name))
	}
	return nil
}

// nextSequence atomically increments and returns a named counter.
func (s *uploadService) nextSequence(ctx context.Context, name string) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := s.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// sanitizeFileName strips path components and awkward characters from a
// client-supplied name before it becomes part of a storage key.
func sanitizeFileName(name string) string {
	base := filepath.Base(filepath.FromSlash(name))
	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// errMessage flattens wrapped sentinel errors into user-facing text.
func errMessage(err error) string {
	switch {
	case errors.Is(err, ErrDuplicateContent):
		return "duplicate of an existing document"
	case errors.Is(err, storage.ErrStorageUnavailable):
		return "storage temporarily unavailable"
	default:
		return err.Error()
	}
}
