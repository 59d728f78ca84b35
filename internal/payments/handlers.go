package payments

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tucanopay/tucano/internal/antifraud"
	"github.com/tucanopay/tucano/internal/idgen"
)

// FraudChecker gates payment creation. Implemented by antifraud.Engine.
type FraudChecker interface {
	CheckPayment(ctx context.Context, ip, cpf, bin string, amountCents int64) antifraud.Decision
}

// Handlers exposes the payment intake surface. PSP routing itself lives in
// the orchestration layer; this handler runs antifraud and registers the
// pending payment.
type Handlers struct {
	store Store
	fraud FraudChecker
	now   func() time.Time
}

// NewHandlers creates payment HTTP handlers.
func NewHandlers(store Store, fraud FraudChecker) *Handlers {
	return &Handlers{store: store, fraud: fraud, now: time.Now}
}

// RegisterRoutes mounts payment routes under the authenticated group.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup, merchantID func(*gin.Context) string) {
	rg.POST("/payments", h.createPayment(merchantID))
	rg.GET("/payments/:id", h.getPayment(merchantID))
}

type createPaymentRequest struct {
	Provider    string `json:"provider" binding:"required"`
	Method      Method `json:"method" binding:"required,oneof=card pix boleto"`
	AmountCents int64  `json:"amountCents" binding:"required,gt=0"`
	CPF         string `json:"cpf"`
	CardBIN     string `json:"cardBin"`
}

func (h *Handlers) createPayment(merchantID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
			return
		}

		decision := h.fraud.CheckPayment(c.Request.Context(), c.ClientIP(), req.CPF, req.CardBIN, req.AmountCents)
		if !decision.Allowed {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "antifraud_rejected",
				"rule":    decision.Rule,
				"message": "payment attempt rejected",
			})
			return
		}

		now := h.now()
		p := &Payment{
			ID:          idgen.WithPrefix("pay_"),
			MerchantID:  merchantID(c),
			Provider:    req.Provider,
			Method:      req.Method,
			Status:      StatusPending,
			AmountCents: req.AmountCents,
			CPF:         req.CPF,
			CardBIN:     req.CardBIN,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := h.store.Create(c.Request.Context(), p); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"payment": p})
	}
}

func (h *Handlers) getPayment(merchantID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := h.store.Get(c.Request.Context(), c.Param("id"))
		if err == ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		if p.MerchantID != merchantID(c) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"payment": p})
	}
}
