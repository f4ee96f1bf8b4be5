package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"bookshop-bot/internal/order"
	"bookshop-bot/internal/session"
	"bookshop-bot/internal/store"
	"bookshop-bot/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler serves the operational HTTP surface next to the bot: health,
// metrics and a read-only dashboard.
type Handler struct {
	workflow *order.Workflow
	sessions *session.Manager
	records  *store.Records
}

// NewHandler creates a new HTTP handler
func NewHandler(workflow *order.Workflow, sessions *session.Manager, records *store.Records) *Handler {
	return &Handler{
		workflow: workflow,
		sessions: sessions,
		records:  records,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/dashboard", h.dashboard)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:number", h.getOrder)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"sessions": h.sessions.Len(),
		"time":     time.Now().Unix(),
	})
}

// readinessCheck reports ready once the record store answers.
func (h *Handler) readinessCheck(c *gin.Context) {
	if _, err := h.records.Books(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "not ready",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// dashboard returns the same aggregate the admin sees in chat.
func (h *Handler) dashboard(c *gin.Context) {
	stats, err := h.workflow.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to compute stats",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// listOrders returns orders, optionally filtered by ?status=.
func (h *Handler) listOrders(c *gin.Context) {
	filter := c.DefaultQuery("status", "all")

	orders, err := h.workflow.List(c.Request.Context(), filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to list orders",
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// getOrder handles get order by number
func (h *Handler) getOrder(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order number",
		})
		return
	}

	o, err := h.workflow.Get(c.Request.Context(), number)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Order not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load order",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, o)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
