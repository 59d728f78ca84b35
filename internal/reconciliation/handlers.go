package reconciliation

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Handler exposes reconciliation reports and manual runs.
type Handler struct {
	service *Service
	store   Store
}

// NewHandler builds the reconciliation HTTP handler.
func NewHandler(service *Service, store Store) *Handler {
	return &Handler{service: service, store: store}
}

// RegisterRoutes mounts reconciliation routes on an authenticated group.
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/reconciliation/reports", h.list)
	r.GET("/reconciliation/reports/:id", h.get)
	r.POST("/reconciliation/run", h.run)
}

func (h *Handler) list(c *gin.Context) {
	if h.store == nil {
		c.JSON(200, gin.H{"reports": []*Report{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "30"))
	reports, err := h.store.ListRecent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(500, gin.H{"error": "failed to list reports"})
		return
	}
	if reports == nil {
		reports = []*Report{}
	}
	c.JSON(200, gin.H{"reports": reports})
}

func (h *Handler) get(c *gin.Context) {
	if h.store == nil {
		c.JSON(404, gin.H{"error": "report not found"})
		return
	}
	r, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(404, gin.H{"error": "report not found"})
		return
	}
	c.JSON(200, r)
}

// run triggers reconciliation for a given date (default: yesterday).
func (h *Handler) run(c *gin.Context) {
	date := time.Now().UTC().AddDate(0, 0, -1)
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(400, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = parsed
	}

	report, err := h.service.Run(c.Request.Context(), date)
	if err != nil {
		c.JSON(500, gin.H{"error": "reconciliation run failed"})
		return
	}
	c.JSON(200, report)
}
