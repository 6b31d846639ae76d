package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"udin/platform/internal/models"
	"udin/platform/internal/services"
)

// UploadHandler handles REST requests for batch document ingestion.
type UploadHandler struct {
	uploadService services.IUploadService
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(uploadService services.IUploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// Ingest handles POST /v1/uploads. Multipart form: files under "files",
// per-file classification under "fileMetadata[i][documentTypeId]" and
// "fileMetadata[i][tier]", plus optional transactionId, customerInfo and
// pricingSnapshot JSON fields.
func (h *UploadHandler) Ingest(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid multipart form: " + err.Error()})
		return
	}
	fileHeaders := form.File["files"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No files provided"})
		return
	}

	files := make([]services.IngestFile, 0, len(fileHeaders))
	for i, fh := range fileHeaders {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not read file %s", fh.Filename)})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Could not read file %s", fh.Filename)})
			return
		}
		files = append(files, services.IngestFile{
			Name:           fh.Filename,
			ContentType:    fh.Header.Get("Content-Type"),
			Data:           data,
			DocumentTypeID: c.PostForm(fmt.Sprintf("fileMetadata[%d][documentTypeId]", i)),
			Tier:           c.PostForm(fmt.Sprintf("fileMetadata[%d][tier]", i)),
		})
	}

	input := services.IngestInput{
		Files:         files,
		TransactionID: c.PostForm("transactionId"),
		UploadIP:      c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	}
	if raw := c.PostForm("customerInfo"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.CustomerInfo); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "customerInfo must be a JSON object"})
			return
		}
	}
	if raw := c.PostForm("pricingSnapshot"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &input.PricingSnapshot); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pricingSnapshot must be a JSON object"})
			return
		}
	}

	result, err := h.uploadService.Ingest(c.Request.Context(), userID, input)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Upload.Status != models.UploadCompleted {
		status = http.StatusMultiStatus
	}
	c.JSON(status, result)
}

// GetStatus handles GET /v1/uploads/:uploadId/status.
func (h *UploadHandler) GetStatus(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	upload, err := h.uploadService.GetUploadStatus(c.Request.Context(), userID, c.Param("uploadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, upload)
}

// ListUploads handles GET /v1/uploads.
func (h *UploadHandler) ListUploads(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	uploads, total, err := h.uploadService.GetUserUploads(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  uploads,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
