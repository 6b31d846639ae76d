package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"udin/platform/internal/models"
	"udin/platform/internal/services"
)

// DocumentHandler handles REST requests for the document registry.
type DocumentHandler struct {
	documentService services.IDocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(documentService services.IDocumentService) *DocumentHandler {
	return &DocumentHandler{documentService: documentService}
}

// ListDocuments handles GET /v1/documents.
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)
	status := models.DocumentStatus(c.Query("status"))

	docs, total, err := h.documentService.GetUserDocuments(c.Request.Context(), userID, status, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  docs,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetDocument handles GET /v1/documents/:udin.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	doc, err := h.documentService.GetByUDIN(c.Request.Context(), userID, c.Param("udin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GetDownloadURL handles GET /v1/documents/:udin/download.
func (h *DocumentHandler) GetDownloadURL(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	url, err := h.documentService.GetDownloadURL(c.Request.Context(), userID, c.Param("udin"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DeleteDocument handles DELETE /v1/documents/:udin.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	if err := h.documentService.SoftDelete(c.Request.Context(), userID, c.Param("udin")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

type reviewRequest struct {
	Status          models.DocumentStatus `json:"status" binding:"required"`
	RejectionReason string                `json:"rejectionReason"`
}

// ReviewDocument handles PATCH /v1/backoffice/documents/:udin/status. Staff
// only; operates across all users.
func (h *DocumentHandler) ReviewDocument(c *gin.Context) {
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	doc, err := h.documentService.UpdateStatus(c.Request.Context(), c.Param("udin"), req.Status, req.RejectionReason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
