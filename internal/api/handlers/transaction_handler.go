package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"udin/platform/internal/models"
	"udin/platform/internal/services"
)

// TransactionHandler handles REST requests for the payment ledger.
type TransactionHandler struct {
	transactionService services.ITransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionService services.ITransactionService) *TransactionHandler {
	return &TransactionHandler{transactionService: transactionService}
}

type createTransactionRequest struct {
	Type        models.TransactionType    `json:"type" binding:"required"`
	Amount      float64                   `json:"amount"`
	AmountPaise int64                     `json:"amountPaise"`
	Currency    string                    `json:"currency"`
	Description string                    `json:"description"`
	Amounts     models.TransactionAmounts `json:"amounts"`
	Items       []models.TransactionItem  `json:"items"`
	Metadata    map[string]interface{}    `json:"metadata"`
}

// CreateTransaction handles POST /v1/transactions.
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	var req createTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	txn, err := h.transactionService.Create(c.Request.Context(), userID, services.CreateTransactionInput{
		Type:        req.Type,
		Amount:      req.Amount,
		AmountPaise: req.AmountPaise,
		Currency:    req.Currency,
		Description: req.Description,
		Amounts:     req.Amounts,
		Items:       req.Items,
		Metadata:    req.Metadata,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, txn)
}

// ListTransactions handles GET /v1/transactions.
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	txns, total, err := h.transactionService.ListByUser(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  txns,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetTransaction handles GET /v1/transactions/:transactionId.
func (h *TransactionHandler) GetTransaction(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	txn, err := h.transactionService.GetByID(c.Request.Context(), userID, c.Param("transactionId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}

type updateStatusRequest struct {
	Status        models.TransactionStatus `json:"status" binding:"required"`
	RazorpayData  *models.RazorpayData     `json:"razorpayData"`
	FailureReason string                   `json:"failureReason"`
	Metadata      map[string]interface{}   `json:"metadata"`
	Notes         map[string]interface{}   `json:"notes"`
}

// UpdateStatus handles PATCH /v1/transactions/:transactionId/status. Only
// the fields named in the request type can change; unknown body fields are
// ignored rather than written through.
func (h *TransactionHandler) UpdateStatus(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
		return
	}

	txn, err := h.transactionService.UpdateStatus(c.Request.Context(), userID, c.Param("transactionId"), services.StatusPatch{
		Status:        req.Status,
		Razorpay:      req.RazorpayData,
		FailureReason: req.FailureReason,
		Metadata:      req.Metadata,
		Notes:         req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, txn)
}
