package main

import (
	"testing"
	"time"

	"github.com/sabuhakaya/Carties/pkg/health"
)

func TestParseCreateArgs(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 30, 15, 500, time.UTC)

	req, err := parseCreateArgs([]string{"Ford", "GT", "2020", "White", "50000", "20000"}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Make != "Ford" || req.Model != "GT" || req.Year != 2020 || req.Color != "White" {
		t.Errorf("unexpected item: %+v", req)
	}
	if req.Mileage != 50000 || req.ReservePrice != 20000 {
		t.Errorf("expected mileage 50000 and reserve 20000, got %d and %d", req.Mileage, req.ReservePrice)
	}
	if want := time.Date(2026, 5, 8, 10, 30, 15, 0, time.UTC); !req.AuctionEnd.Equal(want) {
		t.Errorf("expected auction end %v, got %v", want, req.AuctionEnd)
	}
	if req.ImageURL == "" {
		t.Error("expected placeholder image url")
	}
}

func TestParseCreateArgsErrors(t *testing.T) {
	cases := map[string][]string{
		"too few":     {"Ford", "GT", "2020"},
		"too many":    {"Ford", "GT", "2020", "White", "1", "2", "3"},
		"bad year":    {"Ford", "GT", "twenty", "White"},
		"bad mileage": {"Ford", "GT", "2020", "White", "lots"},
		"bad reserve": {"Ford", "GT", "2020", "White", "10", "cheap"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := parseCreateArgs(args, time.Now()); err == nil {
				t.Errorf("expected error for %v", args)
			}
		})
	}
}

func TestSearchURL(t *testing.T) {
	if got := searchURL("http://search:8080", "ford gt"); got != "http://search:8080/search?pageSize=20&searchTerm=ford+gt" {
		t.Errorf("unexpected url: %s", got)
	}
	if got := searchURL("http://search:8080", ""); got != "http://search:8080/search?pageSize=20" {
		t.Errorf("unexpected url: %s", got)
	}
}

func TestFormatRow(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	got := formatRow([]any{nil, []byte("Ford"), at, int64(3)})
	if want := "NULL\tFord\t2026-01-02T03:04:05Z\t3"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestFormatReport(t *testing.T) {
	rep := health.Report{
		Status: health.StatusDegraded,
		Checks: map[string]string{"broker": "down"},
		Counts: map[string]int{"outboxPending": 4, "outboxDead": 0},
	}
	if got, want := formatReport(rep), "broker=down outboxDead=0 outboxPending=4"; got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
