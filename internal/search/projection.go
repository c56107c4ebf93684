package search

import (
	"time"

	"github.com/sabuhakaya/Carties/pkg/models"
)

// Projection is the search-side copy of an auction.
type Projection struct {
	ID             string        `json:"id"`
	ReservePrice   int           `json:"reservePrice"`
	Seller         string        `json:"seller"`
	Winner         *string       `json:"winner"`
	SoldAmount     *int          `json:"soldAmount"`
	CurrentHighBid *int          `json:"currentHighBid"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	AuctionEnd     time.Time     `json:"auctionEnd"`
	Status         models.Status `json:"status"`
	Make           string        `json:"make"`
	Model          string        `json:"model"`
	Year           int           `json:"year"`
	Color          string        `json:"color"`
	Mileage        int           `json:"mileage"`
	ImageURL       string        `json:"imageUrl"`
	Version        int64         `json:"version"`
}

// Patch is a partial update. Nil fields keep the stored value.
type Patch struct {
	ID        string
	Make      *string
	Model     *string
	Year      *int
	Color     *string
	Mileage   *int
	UpdatedAt *time.Time
	Version   int64
}

// ProjectionFromCreated maps a Created event onto a projection.
func ProjectionFromCreated(e models.AuctionCreated, version int64) Projection {
	return Projection{
		ID:             e.ID,
		ReservePrice:   e.ReservePrice,
		Seller:         e.Seller,
		Winner:         e.Winner,
		SoldAmount:     e.SoldAmount,
		CurrentHighBid: e.CurrentHighBid,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
		AuctionEnd:     e.AuctionEnd,
		Status:         e.Status,
		Make:           e.Make,
		Model:          e.Model,
		Year:           e.Year,
		Color:          e.Color,
		Mileage:        e.Mileage,
		ImageURL:       e.ImageURL,
		Version:        version,
	}
}

// ProjectionFromAuction maps a record fetched from the auction service.
func ProjectionFromAuction(a models.Auction) Projection {
	return ProjectionFromCreated(models.CreatedFromAuction(a), a.Version)
}

// PatchFromUpdated maps an Updated event onto a patch.
func PatchFromUpdated(e models.AuctionUpdated, version int64) Patch {
	return Patch{
		ID:        e.ID,
		Make:      e.Make,
		Model:     e.Model,
		Year:      e.Year,
		Color:     e.Color,
		Mileage:   e.Mileage,
		UpdatedAt: e.UpdatedAt,
		Version:   version,
	}
}
