package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/metrics"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/middleware"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/service"
)

// SignatureHeader carries the payment processor's HMAC signature
const SignatureHeader = "X-Payment-Signature"

// maxWebhookBodyBytes bounds one delivery; real payment events are a few KB
const maxWebhookBodyBytes = 1 << 20

// WebhookHandler handles payment-processor webhook deliveries
type WebhookHandler struct {
	ingestionService service.IngestionService
	logger           *slog.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(logger *slog.Logger, ingestionService service.IngestionService) *WebhookHandler {
	return &WebhookHandler{
		ingestionService: ingestionService,
		logger:           logger,
	}
}

// HandlePayment ingests one webhook delivery. Accepted, duplicate and ignored
// deliveries are all answered with 200 so the provider stops retrying; only
// transient internal failures return 500 to request a retry.
func (h *WebhookHandler) HandlePayment(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Error("Failed to read webhook body", "error", err)
		metrics.RecordWebhookEvent("unknown", "read_error")
		RespondBadRequest(c, "Failed to read request body")
		return
	}

	result, err := h.ingestionService.Ingest(
		c.Request.Context(),
		payload,
		c.GetHeader(SignatureHeader),
		middleware.GetCorrelationID(c),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			metrics.RecordWebhookEvent("unknown", "invalid_signature")
			RespondWithError(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Webhook signature verification failed")
		case errors.Is(err, service.ErrMalformedPayload):
			metrics.RecordWebhookEvent("unknown", "malformed")
			RespondBadRequest(c, "Webhook payload is malformed")
		default:
			// The provider retries on 5xx; nothing was committed downstream
			metrics.RecordWebhookEvent("unknown", "error")
			RespondInternalError(c)
		}
		return
	}

	metrics.RecordWebhookEvent(result.EventType, string(result.Status))
	RespondOK(c, WebhookAckResponse{
		EventID:   result.EventID.String(),
		SessionID: result.SessionID,
		Status:    string(result.Status),
	})
}
