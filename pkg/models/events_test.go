package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestEventTypeConstants(t *testing.T) {
	tests := []struct {
		name     string
		et       EventType
		expected string
	}{
		{"auction created", EventAuctionCreated, "auction.created"},
		{"auction updated", EventAuctionUpdated, "auction.updated"},
		{"auction deleted", EventAuctionDeleted, "auction.deleted"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.et) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, string(tt.et))
			}
		})
	}
	if len(AllAuctionEvents) != 3 {
		t.Errorf("expected 3 routing keys, got %d", len(AllAuctionEvents))
	}
}

func TestNewEnvelopeCreated(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	auction := Auction{
		ID:           "a-1",
		ReservePrice: 20000,
		Seller:       "bob",
		CreatedAt:    now,
		UpdatedAt:    now,
		AuctionEnd:   now.Add(24 * time.Hour),
		Status:       StatusLive,
		Version:      1,
		Item:         Item{Make: "Ford", Model: "GT", Year: 2020, Color: "White", Mileage: 50000, ImageURL: "https://x/y.jpg"},
	}

	env, err := NewEnvelope(EventAuctionCreated, "corr-1", auction.Version, CreatedFromAuction(auction))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.EventID == "" {
		t.Error("expected an event id")
	}
	if env.Version != 1 || env.CorrelationID != "corr-1" || env.EventType != EventAuctionCreated {
		t.Errorf("unexpected envelope header: %+v", env)
	}

	body, _ := json.Marshal(env)
	parsed, err := ParseEnvelope(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	created, err := parsed.DecodeCreated()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != "a-1" || created.Make != "Ford" || created.Year != 2020 || created.Seller != "bob" {
		t.Errorf("unexpected snapshot: %+v", created)
	}
	if !created.AuctionEnd.Equal(auction.AuctionEnd) {
		t.Errorf("auction end: expected %s, got %s", auction.AuctionEnd, created.AuctionEnd)
	}
}

func TestAuctionUpdatedOmitsAbsentFields(t *testing.T) {
	year := 2021
	body, err := json.Marshal(AuctionUpdated{ID: "a-1", Year: &year})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(body), "make") {
		t.Errorf("absent make must not be serialised: %s", body)
	}

	env := Envelope{EventType: EventAuctionUpdated, Data: body}
	updated, err := env.DecodeUpdated()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Make != nil {
		t.Errorf("expected nil make, got %q", *updated.Make)
	}
	if updated.Year == nil || *updated.Year != 2021 {
		t.Errorf("expected year 2021, got %v", updated.Year)
	}
}

func TestUpdatedFromAuctionFillsEveryField(t *testing.T) {
	a := Auction{ID: "a-2", UpdatedAt: time.Now(), Item: Item{Make: "Audi", Model: "R8", Year: 2019, Color: "Black", Mileage: 10}}
	u := UpdatedFromAuction(a)
	if u.Make == nil || u.Model == nil || u.Year == nil || u.Color == nil || u.Mileage == nil || u.UpdatedAt == nil {
		t.Fatalf("expected every field set: %+v", u)
	}

	// The contract must not alias the auction.
	a.Make = "BMW"
	if *u.Make != "Audi" {
		t.Errorf("expected Audi, got %s", *u.Make)
	}
}

func TestDecodeRejectsBadData(t *testing.T) {
	tests := []struct {
		name string
		env  Envelope
	}{
		{"no data", Envelope{EventType: EventAuctionDeleted, EventID: "e-1"}},
		{"invalid json", Envelope{EventType: EventAuctionDeleted, Data: json.RawMessage(`{"id":`)}},
		{"missing id", Envelope{EventType: EventAuctionDeleted, Data: json.RawMessage(`{}`)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.env.DecodeDeleted(); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestParseEnvelopeInvalidJSON(t *testing.T) {
	if _, err := ParseEnvelope([]byte("{invalid")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
