package auction

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/health"
	"github.com/sabuhakaya/Carties/pkg/middleware"
)

// NewRouter creates and configures the Gin router. A nil hc serves a plain ok.
func NewRouter(h *AuctionHandler, hc *health.Handler, log *zap.Logger) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery(), middleware.CorrelationID(), middleware.RequestLogger(log))

	// Health check
	r.GET("/health", hc.Serve)

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Auction routes
	r.GET("/auctions", h.ListAuctions)
	r.GET("/auctions/:id", h.GetAuction)
	r.POST("/auctions", h.CreateAuction)
	r.PUT("/auctions/:id", h.UpdateAuction)
	r.DELETE("/auctions/:id", h.DeleteAuction)

	return r
}
