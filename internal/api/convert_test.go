package api_test

import (
	"errors"
	"testing"
	"time"

	"cardgraph/internal/api"
	"cardgraph/internal/sessions"
)

func TestParseScheduledStartLayouts(t *testing.T) {
	rfc, err := api.ParseScheduledStart("2026-09-05T19:30:00Z")
	if err != nil {
		t.Fatalf("RFC3339 parse failed: %v", err)
	}
	if !rfc.Equal(time.Date(2026, 9, 5, 19, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected RFC3339 result: %v", rfc)
	}

	short, err := api.ParseScheduledStart("2026-09-05 19:30")
	if err != nil {
		t.Fatalf("short layout parse failed: %v", err)
	}
	if short.Hour() != 19 || short.Minute() != 30 {
		t.Fatalf("unexpected short layout result: %v", short)
	}

	if _, err := api.ParseScheduledStart("next saturday"); !errors.Is(err, sessions.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if _, err := api.ParseScheduledStart("  "); !errors.Is(err, sessions.ErrValidation) {
		t.Fatalf("expected ErrValidation for blank input, got %v", err)
	}
}

func TestToCreateRequest(t *testing.T) {
	segLen := 30
	payload := api.SessionRequest{
		AuctionName:           "Evening Break",
		AuctionURL:            "https://auctions.example.com/evening",
		ScheduledStart:        "2026-09-05T19:30:00Z",
		OverrideSegmentLength: &segLen,
		OverrideAcquisition:   "browser_automation",
		CreatedBy:             "operator",
	}

	req, err := payload.ToCreateRequest()
	if err != nil {
		t.Fatalf("ToCreateRequest failed: %v", err)
	}
	if req.AuctionName != "Evening Break" || req.OverrideSegmentLength == nil || *req.OverrideSegmentLength != 30 {
		t.Fatalf("unexpected request: %#v", req)
	}
	if req.OverrideAcquisition != "browser_automation" {
		t.Fatalf("acquisition mode lost: %q", req.OverrideAcquisition)
	}

	payload.ScheduledStart = "not a time"
	if _, err := payload.ToCreateRequest(); !errors.Is(err, sessions.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
