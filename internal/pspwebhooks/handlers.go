package pspwebhooks

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// Handler serves the inbound provider webhook endpoint.
type Handler struct {
	validator *Validator
	processor *Processor
	log       *slog.Logger
}

// NewHandler builds the webhook HTTP handler.
func NewHandler(validator *Validator, processor *Processor, log *slog.Logger) *Handler {
	return &Handler{validator: validator, processor: processor, log: log}
}

// RegisterRoutes mounts the webhook endpoint on a public group; providers
// authenticate with signatures, not API keys.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.POST("/webhooks/psp", h.receive)
}

func (h *Handler) receive(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(400, gin.H{"error": "unreadable body"})
		return
	}

	in := Inbound{
		Provider:  c.GetHeader(HeaderProvider),
		Signature: c.GetHeader(HeaderSignature),
		Timestamp: c.GetHeader(HeaderTimestamp),
		Nonce:     c.GetHeader(HeaderNonce),
		Payload:   payload,
		RemoteIP:  c.ClientIP(),
	}

	provider, rej := h.validator.Validate(c.Request.Context(), in)
	if rej != nil {
		c.JSON(rej.Status, gin.H{"error": rej.Code})
		return
	}

	rec, err := h.processor.Process(c.Request.Context(), provider.Name(), payload)
	if err != nil {
		h.log.Error("webhook processing failed", "provider", provider.Name(), "error", err)
		// The provider will retry; nothing durable happened yet.
		c.JSON(500, gin.H{"error": "PROCESSING_FAILED"})
		return
	}

	c.JSON(200, gin.H{"id": rec.ID, "received": true})
}
