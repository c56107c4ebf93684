package search

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/health"
	"github.com/sabuhakaya/Carties/pkg/middleware"
)

// NewRouter creates and configures the Gin router. A nil hc serves a plain ok.
func NewRouter(h *SearchHandler, hc *health.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), middleware.CorrelationID(), middleware.RequestLogger(log))

	r.GET("/health", hc.Serve)

	r.GET("/search", h.SearchItems)

	return r
}
