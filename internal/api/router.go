package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"udin/platform/internal/api/handlers"
	"udin/platform/internal/api/middleware"
	"udin/platform/internal/config"
	"udin/platform/internal/gateway"
	"udin/platform/internal/pricing"
	"udin/platform/internal/services"
	"udin/platform/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, db *mongo.Database, gw gateway.IGateway, enqueuer services.TxPatchEnqueuer) *gin.Engine {
	engine := pricing.NewEngine(cfg.GSTRatePercent, cfg.BulkDiscountThreshold, cfg.BulkDiscountPercent)

	var store storage.IDocumentStorage
	var err error
	if cfg.AwsS3Bucket != "" {
		store, err = storage.NewS3Storage(cfg)
	} else {
		store, err = storage.NewLocalStorage(cfg.UploadDir)
	}
	if err != nil {
		log.Fatalf("CRITICAL: Failed to initialize document storage: %v", err)
	}

	transactionService := services.NewTransactionService(db, cfg)
	paymentService := services.NewPaymentService(db, cfg, gw, engine, transactionService)
	uploadService := services.NewUploadService(db, cfg, store, transactionService, enqueuer)
	documentService := services.NewDocumentService(db, cfg, store)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	paymentHandler := handlers.NewPaymentHandler(paymentService, engine)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	uploadHandler := handlers.NewUploadHandler(uploadService)
	documentHandler := handlers.NewDocumentHandler(documentService)
	webhookHandler := handlers.NewWebhookHandler(paymentService, cfg)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Signature-authenticated, no JWT.
		v1.POST("/webhooks/razorpay", webhookHandler.HandleRazorpay)

		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			payments := authRequired.Group("/payments")
			{
				payments.POST("/calculate", paymentHandler.CalculateOrder)
				payments.POST("/create-order", paymentHandler.CreateOrder)
				payments.POST("/verify", paymentHandler.VerifyPayment)
				payments.POST("/failed", paymentHandler.MarkFailed)
				payments.POST("/refund", paymentHandler.ProcessRefund)
				payments.GET("/history", paymentHandler.GetHistory)
			}

			transactions := authRequired.Group("/transactions")
			{
				transactions.POST("", transactionHandler.CreateTransaction)
				transactions.GET("", transactionHandler.ListTransactions)
				transactions.GET("/:transactionId", transactionHandler.GetTransaction)
				transactions.PATCH("/:transactionId/status", transactionHandler.UpdateStatus)
			}

			uploads := authRequired.Group("/uploads")
			{
				uploads.POST("", uploadHandler.Ingest)
				uploads.GET("", uploadHandler.ListUploads)
				uploads.GET("/:uploadId/status", uploadHandler.GetStatus)
			}

			documents := authRequired.Group("/documents")
			{
				documents.GET("", documentHandler.ListDocuments)
				documents.GET("/:udin", documentHandler.GetDocument)
				documents.GET("/:udin/download", documentHandler.GetDownloadURL)
				documents.DELETE("/:udin", documentHandler.DeleteDocument)
			}
		}

		staffRequired := v1.Group("/backoffice")
		staffRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.StaffMiddleware())
		{
			staffRequired.PATCH("/documents/:udin/status", documentHandler.ReviewDocument)
		}
	}

	return r
}
