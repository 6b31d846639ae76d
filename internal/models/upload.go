package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UploadStatus summarizes how a multi-file ingestion ended. A batch is never
// left in "processing": total failure still writes a "failed" record.
type UploadStatus string

const (
	UploadProcessing          UploadStatus = "processing"
	UploadCompleted           UploadStatus = "completed"
	UploadCompletedWithErrors UploadStatus = "completed_with_errors"
	UploadFailed              UploadStatus = "failed"
)

// Upload is the record of one Upload Finalizer invocation.
type Upload struct {
	ID              primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UploadID        string                 `bson:"upload_id" json:"uploadId"` // unique
	UserID          primitive.ObjectID     `bson:"user_id" json:"userId"`
	Status          UploadStatus           `bson:"status" json:"status"`
	FileCount       int                    `bson:"file_count" json:"fileCount"`
	ProcessedFiles  int                    `bson:"processed_files" json:"processedFiles"`
	CustomerInfo    map[string]interface{} `bson:"customer_info,omitempty" json:"customerInfo,omitempty"`
	PricingSnapshot map[string]interface{} `bson:"pricing_snapshot,omitempty" json:"pricingSnapshot,omitempty"`
	Metadata        map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Errors          []string               `bson:"errors" json:"errors"`
	IsActive        bool                   `bson:"is_active" json:"-"`
	CreatedAt       time.Time              `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time              `bson:"updated_at" json:"updatedAt"`
}
