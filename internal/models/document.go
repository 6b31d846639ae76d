package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DocumentStatus tracks review progress. Transitions past "uploaded" are
// driven by the back-office, not by the intake flow.
type DocumentStatus string

const (
	DocumentUploaded   DocumentStatus = "uploaded"
	DocumentProcessing DocumentStatus = "processing"
	DocumentVerified   DocumentStatus = "verified"
	DocumentRejected   DocumentStatus = "rejected"
)

// DocumentMeta carries per-upload forensics and classification.
type DocumentMeta struct {
	UploadIP       string `bson:"upload_ip,omitempty" json:"uploadIP,omitempty"`
	UserAgent      string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	Checksum       string `bson:"checksum,omitempty" json:"checksum,omitempty"`
	DocumentTypeID string `bson:"document_type_id,omitempty" json:"documentTypeId,omitempty"`
	Tier           string `bson:"tier,omitempty" json:"tier,omitempty"`
	OriginalID     string `bson:"original_id,omitempty" json:"originalId,omitempty"`
}

// Document is one accepted upload, addressed by its UDIN. Soft-deleted via
// IsActive; the content hash is unique per (user, active) for dedup.
type Document struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID  `bson:"user_id" json:"userId"`
	UDIN            string              `bson:"udin" json:"udin"` // unique
	FileName        string              `bson:"file_name" json:"fileName"`
	OriginalName    string              `bson:"original_name" json:"originalName"`
	FileType        string              `bson:"file_type" json:"fileType"`
	FileSize        int64               `bson:"file_size" json:"fileSize"`
	StorageKey      string              `bson:"storage_key" json:"-"`
	FileURL         string              `bson:"file_url,omitempty" json:"fileUrl,omitempty"`
	DocumentHash    string              `bson:"document_hash" json:"-"`
	Status          DocumentStatus      `bson:"status" json:"status"`
	UploadDate      time.Time           `bson:"upload_date" json:"uploadDate"`
	VerifiedAt      *time.Time          `bson:"verified_at,omitempty" json:"verifiedAt,omitempty"`
	RejectionReason string              `bson:"rejection_reason,omitempty" json:"rejectionReason,omitempty"`
	Metadata        DocumentMeta        `bson:"metadata,omitempty" json:"metadata,omitempty"`
	PaymentID       *primitive.ObjectID `bson:"payment_id,omitempty" json:"paymentId,omitempty"`
	UploadRef       *primitive.ObjectID `bson:"upload_ref,omitempty" json:"-"`
	IsActive        bool                `bson:"is_active" json:"-"`
	CreatedAt       time.Time           `bson:"created_at" json:"createdAt"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updatedAt"`
}

// AllowedFileTypes is the accepted extension set for intake.
var AllowedFileTypes = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"pdf":  true,
	"doc":  true,
	"docx": true,
	"xls":  true,
	"xlsx": true,
}
