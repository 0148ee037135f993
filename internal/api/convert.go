package api

import (
	"fmt"
	"strings"
	"time"

	"cardgraph/internal/lifecycle"
	"cardgraph/internal/sessions"
)

// scheduleLayouts are the accepted scheduled_start formats, tried in order.
// The dashboard sends RFC 3339; operators typing by hand get the short
// forms, interpreted in local time.
var scheduleLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseScheduledStart parses a scheduled start in any accepted layout.
func ParseScheduledStart(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, sessions.Wrap(sessions.ErrValidation, "parse schedule", "scheduled_start is required", nil)
	}
	for _, layout := range scheduleLayouts {
		if layout == time.RFC3339 {
			if t, err := time.Parse(layout, trimmed); err == nil {
				return t, nil
			}
			continue
		}
		if t, err := time.ParseInLocation(layout, trimmed, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, sessions.Wrap(sessions.ErrValidation, "parse schedule",
		fmt.Sprintf("scheduled_start %q is not a recognized timestamp", trimmed), nil)
}

// ToCreateRequest converts the wire payload into a lifecycle request.
func (r SessionRequest) ToCreateRequest() (lifecycle.CreateRequest, error) {
	start, err := ParseScheduledStart(r.ScheduledStart)
	if err != nil {
		return lifecycle.CreateRequest{}, err
	}
	return lifecycle.CreateRequest{
		AuctionName:            r.AuctionName,
		AuctionURL:             r.AuctionURL,
		ScheduledStart:         start,
		OverrideSegmentLength:  r.OverrideSegmentLength,
		OverrideSilenceTimeout: r.OverrideSilenceTimeout,
		OverrideMaxDuration:    r.OverrideMaxDuration,
		OverrideCPULimit:       r.OverrideCPULimit,
		OverrideAcquisition:    r.OverrideAcquisition,
		CreatedBy:              r.CreatedBy,
	}, nil
}
