package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"udin/platform/internal/config"
	"udin/platform/internal/models"
	"udin/platform/internal/storage"
)

// IDocumentService defines the interface for document registry operations.
type IDocumentService interface {
	GetUserDocuments(ctx context.Context, userID primitive.ObjectID, status models.DocumentStatus, page, limit int64) ([]models.Document, int64, error)
	GetByUDIN(ctx context.Context, userID primitive.ObjectID, udin string) (*models.Document, error)
	GetDownloadURL(ctx context.Context, userID primitive.ObjectID, udin string) (string, error)
	SoftDelete(ctx context.Context, userID primitive.ObjectID, udin string) error
	UpdateStatus(ctx context.Context, udin string, status models.DocumentStatus, rejectionReason string) (*models.Document, error)
}

const downloadURLTTL = 15 * time.Minute

// documentService implements IDocumentService.
type documentService struct {
	db      *mongo.Database
	cfg     *config.Config
	storage storage.IDocumentStorage
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(database *mongo.Database, cfg *config.Config, store storage.IDocumentStorage) IDocumentService {
	return &documentService{db: database, cfg: cfg, storage: store}
}

// GetUserDocuments returns a page of the user's live documents, newest
// first, optionally filtered by review status.
func (s *documentService) GetUserDocuments(ctx context.Context, userID primitive.ObjectID, status models.DocumentStatus, page, limit int64) ([]models.Document, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	filter := bson.M{"user_id": userID, "is_active": true}
	if status != "" {
		filter["status"] = status
	}
	collection := s.db.Collection(documentsCollection)

	total, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count documents: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "upload_date", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []models.Document{}
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode documents: %w", err)
	}
	return docs, total, nil
}

// GetByUDIN fetches one live document scoped to its owner. A document owned
// by someone else reports the same ErrNotFound as a miss.
func (s *documentService) GetByUDIN(ctx context.Context, userID primitive.ObjectID, udin string) (*models.Document, error) {
	var doc models.Document
	filter := bson.M{"udin": udin, "user_id": userID, "is_active": true}
	err := s.db.Collection(documentsCollection).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", udin, err)
	}
	return &doc, nil
}

// GetDownloadURL returns a short-lived read URL for the document's bytes.
func (s *documentService) GetDownloadURL(ctx context.Context, userID primitive.ObjectID, udin string) (string, error) {
	doc, err := s.GetByUDIN(ctx, userID, udin)
	if err != nil {
		return "", err
	}
	return s.storage.GetURL(ctx, doc.StorageKey, downloadURLTTL)
}

// SoftDelete marks a document inactive. Verified documents carry an issued
// UDIN and cannot be removed by their owner.
func (s *documentService) SoftDelete(ctx context.Context, userID primitive.ObjectID, udin string) error {
	doc, err := s.GetByUDIN(ctx, userID, udin)
	if err != nil {
		return err
	}
	if doc.Status == models.DocumentVerified {
		return fmt.Errorf("%w: verified documents cannot be deleted", ErrValidation)
	}

	filter := bson.M{"udin": udin, "user_id": userID, "is_active": true}
	update := bson.M{"$set": bson.M{
		"is_active":  false,
		"updated_at": time.Now().UTC(),
	}}
	result, err := s.db.Collection(documentsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to delete document %s: %w", udin, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus is the back-office review action. Rejections carry a reason;
// verification stamps the time. Not owner-scoped: reviewers see all users.
func (s *documentService) UpdateStatus(ctx context.Context, udin string, status models.DocumentStatus, rejectionReason string) (*models.Document, error) {
	switch status {
	case models.DocumentProcessing, models.DocumentVerified, models.DocumentRejected:
	default:
		return nil, fmt.Errorf("%w: cannot set document status to %q", ErrValidation, status)
	}
	if status == models.DocumentRejected && rejectionReason == "" {
		return nil, fmt.Errorf("%w: rejection requires a reason", ErrValidation)
	}

	now := time.Now().UTC()
	set := bson.M{
		"status":     status,
		"updated_at": now,
	}
	switch status {
	case models.DocumentVerified:
		set["verified_at"] = now
	case models.DocumentRejected:
		set["rejection_reason"] = rejectionReason
	}

	filter := bson.M{"udin": udin, "is_active": true}
	result, err := s.db.Collection(documentsCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return nil, fmt.Errorf("failed to update document %s: %w", udin, err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}

	var doc models.Document
	if err := s.db.Collection(documentsCollection).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to fetch document %s: %w", udin, err)
	}
	return &doc, nil
}
