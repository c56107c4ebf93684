package models

import "time"

// Status is the lifecycle state of an auction.
type Status string

const (
	StatusLive          Status = "Live"
	StatusFinished      Status = "Finished"
	StatusReserveNotMet Status = "ReserveNotMet"
)

// Item is the vehicle being auctioned. It is embedded in Auction.
type Item struct {
	Make     string `json:"make"`
	Model    string `json:"model"`
	Year     int    `json:"year"`
	Color    string `json:"color"`
	Mileage  int    `json:"mileage"`
	ImageURL string `json:"imageUrl"`
}

// Auction is the producer's source of truth. Version is bumped on every mutation
// and travels with each published envelope.
type Auction struct {
	ID             string    `json:"id" db:"id"`
	ReservePrice   int       `json:"reservePrice" db:"reserve_price"`
	Seller         string    `json:"seller" db:"seller"`
	Winner         *string   `json:"winner" db:"winner"`
	SoldAmount     *int      `json:"soldAmount" db:"sold_amount"`
	CurrentHighBid *int      `json:"currentHighBid" db:"current_high_bid"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
	AuctionEnd     time.Time `json:"auctionEnd" db:"auction_end"`
	Status         Status    `json:"status" db:"status"`
	Version        int64     `json:"version" db:"version"`
	Item
}

// CreateAuctionRequest is the request body for creating an auction.
type CreateAuctionRequest struct {
	Make         string    `json:"make" binding:"required" example:"Ford"`
	Model        string    `json:"model" binding:"required" example:"GT"`
	Year         int       `json:"year" binding:"required,gte=1900" example:"2020"`
	Color        string    `json:"color" binding:"required" example:"White"`
	Mileage      int       `json:"mileage" binding:"gte=0" example:"50000"`
	ImageURL     string    `json:"imageUrl" binding:"required,url" example:"https://cdn.example.com/ford-gt.jpg"`
	ReservePrice int       `json:"reservePrice" binding:"gte=0" example:"20000"`
	AuctionEnd   time.Time `json:"auctionEnd" binding:"required" example:"2026-12-31T00:00:00Z"`
}

// UpdateAuctionRequest is the request body for a partial update.
// A nil field leaves the stored value unchanged.
type UpdateAuctionRequest struct {
	Make    *string `json:"make,omitempty" example:"Ford"`
	Model   *string `json:"model,omitempty" example:"Mustang"`
	Year    *int    `json:"year,omitempty" binding:"omitempty,gte=1900" example:"2021"`
	Color   *string `json:"color,omitempty" example:"Red"`
	Mileage *int    `json:"mileage,omitempty" binding:"omitempty,gte=0" example:"12000"`
}

// Apply overrides the item fields present in the request. It reports whether anything was set.
func (r UpdateAuctionRequest) Apply(item *Item) bool {
	changed := false
	if r.Make != nil {
		item.Make, changed = *r.Make, true
	}
	if r.Model != nil {
		item.Model, changed = *r.Model, true
	}
	if r.Year != nil {
		item.Year, changed = *r.Year, true
	}
	if r.Color != nil {
		item.Color, changed = *r.Color, true
	}
	if r.Mileage != nil {
		item.Mileage, changed = *r.Mileage, true
	}
	return changed
}
