/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package graph

import (
	"math"
	"time"
)

// ExpiryState classifies how close a verification expiry is.
type ExpiryState string

const (
	ExpiryNone    ExpiryState = "no-expiry"
	ExpiryExpired ExpiryState = "expired"
	ExpirySoon    ExpiryState = "expiring-soon"
	ExpiryHealthy ExpiryState = "healthy"
)

// The monitoring view warns at 30 days; the numbers table shows its own
// badge at 7 days. The two cutoffs are independent and must stay so.
const (
	expiringSoonDays  = 30
	expiringBadgeDays = 7
)

// Timestamp layouts the Graph API has been observed to return.
var expiryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
}

// ParseExpiryTime parses a verification expiry timestamp. The platform
// represents "unset" as a pre-1970 epoch value; that sentinel, an empty
// string, and an unparsable value all report absent.
func ParseExpiryTime(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}

	var expiry time.Time
	parsed := false
	for _, layout := range expiryTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			expiry = t
			parsed = true
			break
		}
	}
	if !parsed {
		return time.Time{}, false
	}

	if expiry.Year() <= 1970 {
		return time.Time{}, false
	}

	return expiry, true
}

// DaysUntilExpiry returns the number of calendar days until the expiry
// timestamp, rounding up, negative when already past. The second return is
// false when the expiry is absent (unset sentinel, empty, or unparsable).
func DaysUntilExpiry(raw string, now time.Time) (int, bool) {
	expiry, ok := ParseExpiryTime(raw)
	if !ok {
		return 0, false
	}

	days := int(math.Ceil(expiry.Sub(now).Hours() / 24))

	return days, true
}

// ClassifyExpiry maps a days-left value onto the monitoring classification.
func ClassifyExpiry(daysLeft int, ok bool) ExpiryState {
	switch {
	case !ok:
		return ExpiryNone
	case daysLeft <= 0:
		return ExpiryExpired
	case daysLeft <= expiringSoonDays:
		return ExpirySoon
	default:
		return ExpiryHealthy
	}
}

// ExpiringWithinWeek reports whether the expiry falls inside the 7-day
// window used by the numbers table badge. Expired numbers report false;
// the table shows the expired badge instead.
func ExpiringWithinWeek(raw string, now time.Time) bool {
	daysLeft, ok := DaysUntilExpiry(raw, now)
	if !ok {
		return false
	}

	return daysLeft > 0 && daysLeft <= expiringBadgeDays
}
