package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"udin/platform/internal/pricing"
	"udin/platform/internal/services"
)

// PaymentHandler handles REST requests for gateway orders and charges.
type PaymentHandler struct {
	paymentService services.IPaymentService
	pricingEngine  *pricing.Engine
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService services.IPaymentService, engine *pricing.Engine) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, pricingEngine: engine}
}

type createOrderRequest struct {
	Items        []pricing.OrderItem    `json:"items" binding:"required"`
	CustomerInfo map[string]interface{} `json:"customerInfo"`
}

// CreateOrder handles POST /v1/payments/create-order.
func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	order, err := h.paymentService.CreateCartOrder(c.Request.Context(), userID, req.Items, req.CustomerInfo)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

type verifyPaymentRequest struct {
	OrderID   string `json:"orderId" binding:"required"`
	PaymentID string `json:"paymentId" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// VerifyPayment handles POST /v1/payments/verify.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	var req verifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId, paymentId and signature are required"})
		return
	}

	payment, err := h.paymentService.VerifyPayment(c.Request.Context(), userID, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": true, "payment": payment})
}

type paymentFailedRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Reason  string `json:"reason"`
}

// MarkFailed handles POST /v1/payments/failed.
func (h *PaymentHandler) MarkFailed(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	var req paymentFailedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId is required"})
		return
	}

	if err := h.paymentService.MarkFailed(c.Request.Context(), userID, req.OrderID, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": true})
}

type refundRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Reason  string `json:"reason" binding:"required"`
}

// ProcessRefund handles POST /v1/payments/refund.
func (h *PaymentHandler) ProcessRefund(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "orderId and reason are required"})
		return
	}

	payment, err := h.paymentService.ProcessRefund(c.Request.Context(), userID, req.OrderID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

// GetHistory handles GET /v1/payments/history.
func (h *PaymentHandler) GetHistory(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	page, limit := pageParams(c)

	payments, total, err := h.paymentService.GetPaymentHistory(c.Request.Context(), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data":  payments,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

type calculateRequest struct {
	Items []pricing.OrderItem `json:"items" binding:"required"`
}

// CalculateOrder handles POST /v1/payments/calculate. A dry-run pricing
// call used by the cart view; nothing is persisted.
func (h *PaymentHandler) CalculateOrder(c *gin.Context) {
	var req calculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items are required"})
		return
	}
	if errs := h.pricingEngine.ValidateItems(req.Items); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs[0], "details": errs})
		return
	}

	calc := h.pricingEngine.Calculate(req.Items)
	c.JSON(http.StatusOK, gin.H{
		"calculation":   calc,
		"estimatedTime": h.pricingEngine.EstimateProcessingTime(req.Items),
		"amountPaise":   pricing.Paise(calc.TotalAmount),
	})
}
