package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of auction event. It doubles as the routing key.
type EventType string

const (
	EventAuctionCreated EventType = "auction.created"
	EventAuctionUpdated EventType = "auction.updated"
	EventAuctionDeleted EventType = "auction.deleted"
)

// AllAuctionEvents lists the routing keys a consumer binds to.
var AllAuctionEvents = []EventType{EventAuctionCreated, EventAuctionUpdated, EventAuctionDeleted}

// Envelope is the message published to the broker. Data holds one of
// AuctionCreated, AuctionUpdated or AuctionDeleted.
type Envelope struct {
	EventID       string          `json:"event_id"`
	CorrelationID string          `json:"correlation_id"`
	EventType     EventType       `json:"event_type"`
	Version       int64           `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Data          json.RawMessage `json:"data"`
}

// AuctionCreated carries the full snapshot of a new auction.
type AuctionCreated struct {
	ID             string    `json:"id"`
	ReservePrice   int       `json:"reservePrice"`
	Seller         string    `json:"seller"`
	Winner         *string   `json:"winner,omitempty"`
	SoldAmount     *int      `json:"soldAmount,omitempty"`
	CurrentHighBid *int      `json:"currentHighBid,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	AuctionEnd     time.Time `json:"auctionEnd"`
	Status         Status    `json:"status"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	Color          string    `json:"color"`
	Mileage        int       `json:"mileage"`
	ImageURL       string    `json:"imageUrl"`
}

// AuctionUpdated carries the fields of an auction after an update.
// Absent (nil) fields mean "unchanged", never "clear".
type AuctionUpdated struct {
	ID        string     `json:"id"`
	Make      *string    `json:"make,omitempty"`
	Model     *string    `json:"model,omitempty"`
	Year      *int       `json:"year,omitempty"`
	Color     *string    `json:"color,omitempty"`
	Mileage   *int       `json:"mileage,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// AuctionDeleted identifies a removed auction.
type AuctionDeleted struct {
	ID string `json:"id"`
}

// NewEnvelope wraps payload into an envelope with a fresh event id.
func NewEnvelope(eventType EventType, correlationID string, version int64, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		CorrelationID: correlationID,
		EventType:     eventType,
		Version:       version,
		Timestamp:     time.Now().UTC(),
		Data:          data,
	}, nil
}

// ParseEnvelope decodes a message body. Missing event types are not an error here;
// callers may fall back to the routing key.
func ParseEnvelope(body []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

// DecodeCreated decodes Data as AuctionCreated.
func (e Envelope) DecodeCreated() (AuctionCreated, error) {
	var out AuctionCreated
	if err := e.decode(&out, func() string { return out.ID }); err != nil {
		return AuctionCreated{}, err
	}
	return out, nil
}

// DecodeUpdated decodes Data as AuctionUpdated.
func (e Envelope) DecodeUpdated() (AuctionUpdated, error) {
	var out AuctionUpdated
	if err := e.decode(&out, func() string { return out.ID }); err != nil {
		return AuctionUpdated{}, err
	}
	return out, nil
}

// DecodeDeleted decodes Data as AuctionDeleted.
func (e Envelope) DecodeDeleted() (AuctionDeleted, error) {
	var out AuctionDeleted
	if err := e.decode(&out, func() string { return out.ID }); err != nil {
		return AuctionDeleted{}, err
	}
	return out, nil
}

func (e Envelope) decode(dst any, id func() string) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%s envelope %s has no data", e.EventType, e.EventID)
	}
	if err := json.Unmarshal(e.Data, dst); err != nil {
		return fmt.Errorf("decode %s data: %w", e.EventType, err)
	}
	if id() == "" {
		return fmt.Errorf("%s envelope %s has no auction id", e.EventType, e.EventID)
	}
	return nil
}

// CreatedFromAuction builds the Created contract from the post-mutation auction.
func CreatedFromAuction(a Auction) AuctionCreated {
	return AuctionCreated{
		ID:             a.ID,
		ReservePrice:   a.ReservePrice,
		Seller:         a.Seller,
		Winner:         a.Winner,
		SoldAmount:     a.SoldAmount,
		CurrentHighBid: a.CurrentHighBid,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
		AuctionEnd:     a.AuctionEnd,
		Status:         a.Status,
		Make:           a.Make,
		Model:          a.Model,
		Year:           a.Year,
		Color:          a.Color,
		Mileage:        a.Mileage,
		ImageURL:       a.ImageURL,
	}
}

// UpdatedFromAuction builds the Updated contract with every item field present.
func UpdatedFromAuction(a Auction) AuctionUpdated {
	mk, model, color := a.Make, a.Model, a.Color
	year, mileage := a.Year, a.Mileage
	updatedAt := a.UpdatedAt
	return AuctionUpdated{
		ID:        a.ID,
		Make:      &mk,
		Model:     &model,
		Year:      &year,
		Color:     &color,
		Mileage:   &mileage,
		UpdatedAt: &updatedAt,
	}
}
