package auction

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/logger"
	"github.com/sabuhakaya/Carties/pkg/middleware"
	"github.com/sabuhakaya/Carties/pkg/models"
)

// SellerHeader names the caller creating an auction until authentication exists.
const SellerHeader = "X-Seller"

const defaultSeller = "anonymous"

// dateLayouts are accepted by the date filter, most specific first.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// AuctionHandler handles auction HTTP requests.
type AuctionHandler struct {
	Store    *Store
	Outbound *Outbound
	Log      *zap.Logger
	Now      func() time.Time
}

// NewAuctionHandler creates a new AuctionHandler.
func NewAuctionHandler(db *sql.DB, pub EventPublisher, log *zap.Logger) *AuctionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuctionHandler{
		Store:    NewStore(db),
		Outbound: &Outbound{Publisher: pub, Log: log},
		Log:      log,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// ListAuctions godoc
// @Summary      List auctions
// @Description  Lists auctions ordered by make. With date, only auctions updated after it are returned.
// @Tags         auctions
// @Produce      json
// @Param        date  query     string  false  "RFC3339 timestamp or YYYY-MM-DD"
// @Success      200   {array}   models.Auction
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auctions [get]
func (h *AuctionHandler) ListAuctions(c *gin.Context) {
	since, err := parseDate(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
		return
	}

	auctions, err := h.Store.List(c.Request.Context(), since)
	if err != nil {
		h.logger(c).Error("list auctions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list auctions"})
		return
	}
	c.JSON(http.StatusOK, auctions)
}

// GetAuction godoc
// @Summary      Get an auction by ID
// @Tags         auctions
// @Produce      json
// @Param        id   path      string  true  "Auction ID"
// @Success      200  {object}  models.Auction
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /auctions/{id} [get]
func (h *AuctionHandler) GetAuction(c *gin.Context) {
	a, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
		return
	}
	if err != nil {
		h.logger(c).Error("get auction", zap.String("auction_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch auction"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// CreateAuction godoc
// @Summary      Create a new auction
// @Description  Creates an auction and publishes an auction.created event
// @Tags         auctions
// @Accept       json
// @Produce      json
// @Param        X-Seller  header    string                       false  "Seller name"
// @Param        request   body      models.CreateAuctionRequest  true   "Create auction request"
// @Success      201       {object}  models.Auction
// @Failure      400       {object}  map[string]string
// @Failure      500       {object}  map[string]string
// @Router       /auctions [post]
func (h *AuctionHandler) CreateAuction(c *gin.Context) {
	var req models.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	seller := strings.TrimSpace(c.GetHeader(SellerHeader))
	if seller == "" {
		seller = defaultSeller
	}

	now := h.Now()
	a := models.Auction{
		ID:           uuid.NewString(),
		ReservePrice: req.ReservePrice,
		Seller:       seller,
		CreatedAt:    now,
		UpdatedAt:    now,
		AuctionEnd:   req.AuctionEnd.UTC(),
		Status:       models.StatusLive,
		Version:      1,
		Item: models.Item{
			Make:     req.Make,
			Model:    req.Model,
			Year:     req.Year,
			Color:    req.Color,
			Mileage:  req.Mileage,
			ImageURL: req.ImageURL,
		},
	}

	ctx := c.Request.Context()
	uow, err := h.Store.Begin(ctx)
	if err != nil {
		h.fail(c, "begin create", err)
		return
	}
	defer uow.Rollback()

	if err := uow.Add(ctx, a); err != nil {
		h.fail(c, "stage create", err)
		return
	}

	env, err := models.NewEnvelope(models.EventAuctionCreated, middleware.GetCorrelationID(c), a.Version, models.CreatedFromAuction(a))
	if err != nil {
		h.fail(c, "build created event", err)
		return
	}
	if !h.Outbound.PublishAndCommit(ctx, uow, env) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save changes"})
		return
	}

	h.logger(c).Info("auction created", zap.String("auction_id", a.ID), zap.String("seller", a.Seller))
	c.Header("Location", "/auctions/"+a.ID)
	c.JSON(http.StatusCreated, a)
}

// UpdateAuction godoc
// @Summary      Update an auction
// @Description  Applies a partial update and publishes an auction.updated event
// @Tags         auctions
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Auction ID"
// @Param        request  body      models.UpdateAuctionRequest  true  "Update auction request"
// @Success      200      {object}  models.Auction
// @Failure      400      {object}  map[string]string
// @Failure      404      {object}  map[string]string
// @Failure      500      {object}  map[string]string
// @Router       /auctions/{id} [put]
func (h *AuctionHandler) UpdateAuction(c *gin.Context) {
	var req models.UpdateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	uow, err := h.Store.Begin(ctx)
	if err != nil {
		h.fail(c, "begin update", err)
		return
	}
	defer uow.Rollback()

	a, err := uow.Find(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
		return
	}
	if err != nil {
		h.fail(c, "load auction", err)
		return
	}

	req.Apply(&a.Item)
	a.UpdatedAt = h.Now()
	a.Version++

	if err := uow.Modify(ctx, a); err != nil {
		h.fail(c, "stage update", err)
		return
	}

	env, err := models.NewEnvelope(models.EventAuctionUpdated, middleware.GetCorrelationID(c), a.Version, models.UpdatedFromAuction(a))
	if err != nil {
		h.fail(c, "build updated event", err)
		return
	}
	if !h.Outbound.PublishAndCommit(ctx, uow, env) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save changes"})
		return
	}

	h.logger(c).Info("auction updated", zap.String("auction_id", a.ID), zap.Int64("version", a.Version))
	c.JSON(http.StatusOK, a)
}

// DeleteAuction godoc
// @Summary      Delete an auction
// @Description  Deletes an auction and publishes an auction.deleted event
// @Tags         auctions
// @Param        id   path  string  true  "Auction ID"
// @Success      200
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /auctions/{id} [delete]
func (h *AuctionHandler) DeleteAuction(c *gin.Context) {
	ctx := c.Request.Context()
	uow, err := h.Store.Begin(ctx)
	if err != nil {
		h.fail(c, "begin delete", err)
		return
	}
	defer uow.Rollback()

	a, err := uow.Find(ctx, c.Param("id"))
	if errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "auction not found"})
		return
	}
	if err != nil {
		h.fail(c, "load auction", err)
		return
	}

	if err := uow.Remove(ctx, a.ID); err != nil {
		h.fail(c, "stage delete", err)
		return
	}

	// The deletion is a mutation of its own, one past the last stored version.
	env, err := models.NewEnvelope(models.EventAuctionDeleted, middleware.GetCorrelationID(c), a.Version+1, models.AuctionDeleted{ID: a.ID})
	if err != nil {
		h.fail(c, "build deleted event", err)
		return
	}
	if !h.Outbound.PublishAndCommit(ctx, uow, env) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save changes"})
		return
	}

	h.logger(c).Info("auction deleted", zap.String("auction_id", a.ID))
	c.Status(http.StatusOK)
}

func (h *AuctionHandler) logger(c *gin.Context) *zap.Logger {
	return logger.WithCorrelationID(c.Request.Context(), h.Log)
}

func (h *AuctionHandler) fail(c *gin.Context, op string, err error) {
	h.logger(c).Error(op, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save changes"})
}

// parseDate accepts an empty string (no filter), an RFC3339 timestamp, or a date.
// Values without a zone are read as UTC.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
