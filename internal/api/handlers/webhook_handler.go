package handlers

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"udin/platform/internal/config"
	"udin/platform/internal/gateway"
	"udin/platform/internal/services"
)

// WebhookHandler receives server-to-server notifications from the payment
// gateway. Requests are authenticated by their HMAC signature, not a user
// session.
type WebhookHandler struct {
	paymentService services.IPaymentService
	cfg            *config.Config
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(paymentService services.IPaymentService, cfg *config.Config) *WebhookHandler {
	return &WebhookHandler{paymentService: paymentService, cfg: cfg}
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleRazorpay handles POST /v1/webhooks/razorpay. Failure events mark the
// matching payment failed; everything else is acknowledged and ignored, since
// the synchronous verify path is the source of truth for successful charges.
// The gateway retries on non-2xx, so processing errors other than a bad
// signature are logged and acknowledged.
func (h *WebhookHandler) HandleRazorpay(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read webhook body"})
		return
	}
	signature := c.GetHeader("X-Razorpay-Signature")
	if !gateway.VerifyWebhookSignature(body, signature, h.cfg.RazorpayWebhookSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook signature"})
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook payload"})
		return
	}

	if event.Event == "payment.failed" {
		entity := event.Payload.Payment.Entity
		reason := entity.ErrorDescription
		if reason == "" {
			reason = "payment failed at gateway"
		}
		if err := h.paymentService.RecordGatewayFailure(c.Request.Context(), entity.OrderID, reason); err != nil {
			log.Printf("Webhook: could not record failure for order %s: %v", entity.OrderID, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
