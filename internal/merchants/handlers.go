package merchants

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tucanopay/tucano/internal/idgen"
	"github.com/tucanopay/tucano/internal/secrets"
)

var timeNow = time.Now

// Handlers exposes webhook endpoint management for authenticated merchants.
type Handlers struct {
	store  Store
	cipher *secrets.Cipher
}

// NewHandlers creates merchant HTTP handlers.
func NewHandlers(store Store, cipher *secrets.Cipher) *Handlers {
	return &Handlers{store: store, cipher: cipher}
}

// RegisterRoutes mounts endpoint CRUD under the given (authenticated)
// router group. merchantID is resolved from the auth context by the
// supplied func.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup, merchantID func(*gin.Context) string) {
	rg.POST("/webhook-endpoints", h.createEndpoint(merchantID))
	rg.GET("/webhook-endpoints", h.listEndpoints(merchantID))
	rg.DELETE("/webhook-endpoints/:id", h.deleteEndpoint(merchantID))
}

type createEndpointRequest struct {
	URL string `json:"url" binding:"required,url"`
}

func (h *Handlers) createEndpoint(merchantID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createEndpointRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": err.Error()})
			return
		}

		// The signing secret is generated server-side and shown once.
		rawSecret := "whsec_" + idgen.Hex(24)
		enc, err := h.cipher.Encrypt(rawSecret)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}

		ep := &Endpoint{
			ID:         idgen.WithPrefix("wep_"),
			MerchantID: merchantID(c),
			URL:        req.URL,
			SecretEnc:  enc,
			Active:     true,
			CreatedAt:  timeNow(),
		}
		if err := h.store.CreateEndpoint(c.Request.Context(), ep); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"endpoint": ep,
			"secret":   rawSecret, // returned once, never again
		})
	}
}

func (h *Handlers) listEndpoints(merchantID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		eps, err := h.store.ListEndpoints(c.Request.Context(), merchantID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"endpoints": eps})
	}
}

func (h *Handlers) deleteEndpoint(merchantID func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		eps, err := h.store.ListEndpoints(c.Request.Context(), merchantID(c))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		for _, ep := range eps {
			if ep.ID == id {
				if err := h.store.DeleteEndpoint(c.Request.Context(), id); err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
					return
				}
				c.Status(http.StatusNoContent)
				return
			}
		}
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "endpoint not found"})
	}
}
