package search

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/logger"
)

// Searcher runs queries against the projection.
type Searcher interface {
	Search(ctx context.Context, q Query) (Page, error)
}

// SearchHandler serves search requests.
type SearchHandler struct {
	Searcher Searcher
	Log      *zap.Logger
	Now      func() time.Time
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(s Searcher, log *zap.Logger) *SearchHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SearchHandler{Searcher: s, Log: log, Now: time.Now}
}

// SearchItems serves GET /search. Unknown orderBy and filterBy values fall back to
// ordering by auction end and showing live auctions.
func (h *SearchHandler) SearchItems(c *gin.Context) {
	var q Query
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q.Now = h.Now()

	page, err := h.Searcher.Search(c.Request.Context(), q)
	if err != nil {
		logger.WithCorrelationID(c.Request.Context(), h.Log).Error("search failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}
	c.JSON(http.StatusOK, page)
}
