package handlers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"udin/platform/internal/api/middleware"
	"udin/platform/internal/models"
	"udin/platform/internal/pricing"
	"udin/platform/internal/services"
)

// authAs injects an authenticated user the way AuthMiddleware would.
func authAs(userID primitive.ObjectID, isStaff bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID.Hex())
		c.Set(middleware.ContextKeyIsStaff, isStaff)
		c.Next()
	}
}

// --- Mocks ---

// MockPaymentService
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) CreateCartOrder(ctx context.Context, userID primitive.ObjectID, items []pricing.OrderItem, customerInfo map[string]interface{}) (*services.CartOrder, error) {
	args := m.Called(ctx, userID, items, customerInfo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.CartOrder), args.Error(1)
}

func (m *MockPaymentService) VerifyPayment(ctx context.Context, userID primitive.ObjectID, orderID, paymentID, signature string) (*models.Payment, error) {
	args := m.Called(ctx, userID, orderID, paymentID, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentService) MarkFailed(ctx context.Context, userID primitive.ObjectID, orderID, reason string) error {
	args := m.Called(ctx, userID, orderID, reason)
	return args.Error(0)
}

func (m *MockPaymentService) RecordGatewayFailure(ctx context.Context, orderID, reason string) error {
	args := m.Called(ctx, orderID, reason)
	return args.Error(0)
}

func (m *MockPaymentService) ProcessRefund(ctx context.Context, userID primitive.ObjectID, orderID, reason string) (*models.Payment, error) {
	args := m.Called(ctx, userID, orderID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockPaymentService) GetPaymentHistory(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Payment, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Payment), args.Get(1).(int64), args.Error(2)
}

func (m *MockPaymentService) GetByOrderID(ctx context.Context, userID primitive.ObjectID, orderID string) (*models.Payment, error) {
	args := m.Called(ctx, userID, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

// MockTransactionService
type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) Create(ctx context.Context, userID primitive.ObjectID, input services.CreateTransactionInput) (*models.Transaction, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetByID(ctx context.Context, userID primitive.ObjectID, transactionID string) (*models.Transaction, error) {
	args := m.Called(ctx, userID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetByOrderID(ctx context.Context, orderID string) (*models.Transaction, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListByUser(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Transaction, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Transaction), args.Get(1).(int64), args.Error(2)
}

func (m *MockTransactionService) UpdateStatus(ctx context.Context, userID primitive.ObjectID, transactionID string, patch services.StatusPatch) (*models.Transaction, error) {
	args := m.Called(ctx, userID, transactionID, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Transaction), args.Error(1)
}

func (m *MockTransactionService) SweepUnmatched(ctx context.Context, olderThan time.Duration) (int64, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).(int64), args.Error(1)
}

// MockUploadService
type MockUploadService struct {
	mock.Mock
}

func (m *MockUploadService) Ingest(ctx context.Context, userID primitive.ObjectID, input services.IngestInput) (*services.IngestResult, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.IngestResult), args.Error(1)
}

func (m *MockUploadService) GetUploadStatus(ctx context.Context, userID primitive.ObjectID, uploadID string) (*models.Upload, error) {
	args := m.Called(ctx, userID, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Upload), args.Error(1)
}

func (m *MockUploadService) GetUserUploads(ctx context.Context, userID primitive.ObjectID, page, limit int64) ([]models.Upload, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Upload), args.Get(1).(int64), args.Error(2)
}

// MockDocumentService
type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) GetUserDocuments(ctx context.Context, userID primitive.ObjectID, status models.DocumentStatus, page, limit int64) ([]models.Document, int64, error) {
	args := m.Called(ctx, userID, status, page, limit)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]models.Document), args.Get(1).(int64), args.Error(2)
}

func (m *MockDocumentService) GetByUDIN(ctx context.Context, userID primitive.ObjectID, udin string) (*models.Document, error) {
	args := m.Called(ctx, userID, udin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}

func (m *MockDocumentService) GetDownloadURL(ctx context.Context, userID primitive.ObjectID, udin string) (string, error) {
	args := m.Called(ctx, userID, udin)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) SoftDelete(ctx context.Context, userID primitive.ObjectID, udin string) error {
	args := m.Called(ctx, userID, udin)
	return args.Error(0)
}

func (m *MockDocumentService) UpdateStatus(ctx context.Context, udin string, status models.DocumentStatus, rejectionReason string) (*models.Document, error) {
	args := m.Called(ctx, udin, status, rejectionReason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Document), args.Error(1)
}
