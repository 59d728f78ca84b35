package webhooks

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler serves merchant-facing delivery inspection and retry.
type Handler struct {
	service    *Service
	store      Store
	merchantID func(*gin.Context) string
}

// NewHandler builds the deliveries HTTP handler. merchantID extracts the
// authenticated merchant from the request.
func NewHandler(service *Service, store Store, merchantID func(*gin.Context) string) *Handler {
	return &Handler{service: service, store: store, merchantID: merchantID}
}

// RegisterRoutes mounts delivery routes on an authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/deliveries", h.list)
	r.GET("/deliveries/:id", h.get)
	r.POST("/deliveries/:id/retry", h.retry)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	deliveries, err := h.store.ListByMerchant(c.Request.Context(), h.merchantID(c), limit)
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to list deliveries"})
		return
	}
	if deliveries == nil {
		deliveries = []*Delivery{}
	}
	c.JSON(200, gin.H{"deliveries": deliveries})
}

func (h *Handler) get(c *gin.Context) {
	d, err := h.lookup(c)
	if err != nil {
		return
	}
	c.JSON(200, d)
}

func (h *Handler) retry(c *gin.Context) {
	d, err := h.lookup(c)
	if err != nil {
		return
	}
	updated, err := h.service.Retry(c.Request.Context(), d.ID)
	if err != nil {
		c.JSON(409, gin.H{"error": err.Error()})
		return
	}
	c.JSON(200, updated)
}

// lookup fetches the delivery and enforces merchant ownership. On error a
// response has already been written.
func (h *Handler) lookup(c *gin.Context) (*Delivery, error) {
	d, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(404, gin.H{"error": "delivery not found"})
		return nil, err
	}
	if d.MerchantID != h.merchantID(c) {
		c.JSON(404, gin.H{"error": "delivery not found"})
		return nil, ErrNotFound
	}
	return d, nil
}
