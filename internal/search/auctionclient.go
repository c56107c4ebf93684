package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sabuhakaya/Carties/pkg/logger"
	"github.com/sabuhakaya/Carties/pkg/middleware"
	"github.com/sabuhakaya/Carties/pkg/models"
	"github.com/sabuhakaya/Carties/pkg/resilience"
)

// AuctionClient reads auctions from the auction service. Every call goes through Policy,
// so with the default policy a call only returns once the service answers or ctx ends.
type AuctionClient struct {
	BaseURL string
	HTTP    *http.Client
	Policy  resilience.Policy
	Log     *zap.Logger
}

// NewAuctionClient creates a client that retries transient failures every interval forever.
func NewAuctionClient(baseURL string, interval, attemptTimeout time.Duration, log *zap.Logger) *AuctionClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuctionClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{},
		Policy: resilience.Policy{
			Interval:       interval,
			AttemptTimeout: attemptTimeout,
			Logger:         log.Named("retry"),
		},
		Log: log,
	}
}

// GetAuctions lists auctions. A non-zero since requests only auctions updated after it.
func (c *AuctionClient) GetAuctions(ctx context.Context, since time.Time) ([]models.Auction, error) {
	u := c.BaseURL + "/auctions"
	if !since.IsZero() {
		u += "?" + url.Values{"date": {since.UTC().Format(time.RFC3339Nano)}}.Encode()
	}

	auctions, res := resilience.Do(ctx, c.Policy, func(ctx context.Context) ([]models.Auction, error) {
		var out []models.Auction
		err := c.getJSON(ctx, u, &out)
		return out, err
	})
	if !res.OK() {
		return nil, fmt.Errorf("get auctions (%s after %d attempts): %w", res.Outcome, res.Attempts, res.Err)
	}
	if auctions == nil {
		auctions = []models.Auction{}
	}
	return auctions, nil
}

// GetAuction fetches a single auction. A 404 is retried like any transient failure.
func (c *AuctionClient) GetAuction(ctx context.Context, id string) (models.Auction, error) {
	u := c.BaseURL + "/auctions/" + url.PathEscape(id)

	auction, res := resilience.Do(ctx, c.Policy, func(ctx context.Context) (models.Auction, error) {
		var out models.Auction
		err := c.getJSON(ctx, u, &out)
		return out, err
	})
	if !res.OK() {
		return models.Auction{}, fmt.Errorf("get auction %s (%s after %d attempts): %w", id, res.Outcome, res.Attempts, res.Err)
	}
	return auction, nil
}

// getJSON performs one attempt. The body is read fully before returning so the
// attempt context can be canceled right after.
func (c *AuctionClient) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if id := logger.CorrelationID(ctx); id != "" {
		req.Header.Set(middleware.CorrelationIDHeader, id)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &resilience.StatusError{Method: req.Method, URL: u, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
