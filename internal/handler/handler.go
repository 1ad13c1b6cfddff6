package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains dependencies shared across handlers.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// MetricsHandler serves the prometheus metrics endpoint.
func (h *Handler) MetricsHandler(c *gin.Context) {
	promhttp.Handler().ServeHTTP(c.Writer, c.Request)
}
