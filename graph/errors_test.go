// SPDX-FileCopyrightText: 2026 The Preflight Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAPIErrorRateLimitMessage(t *testing.T) {
	t.Parallel()

	// No usable usage header: the one-hour default reports 60 minutes.
	err := &APIError{Code: codeRateLimited}
	want := "Rate limit exceeded. Please wait 60 minutes before trying again."
	if got := err.UserFacing("fallback"); got != want {
		t.Fatalf("UserFacing = %q, want %q", got, want)
	}

	// Header-provided wait times round minutes up.
	err = &APIError{Code: codeRateLimited, RetryAfter: 90 * time.Second}
	want = "Rate limit exceeded. Please wait 2 minutes before trying again."
	if got := err.UserFacing("fallback"); got != want {
		t.Fatalf("UserFacing = %q, want %q", got, want)
	}
}

func TestAPIErrorRateLimitWinsOverMessage(t *testing.T) {
	t.Parallel()

	err := &APIError{Code: codeRateLimited, Message: "Application request limit reached"}
	if got := err.UserFacing("fallback"); got != "Rate limit exceeded. Please wait 60 minutes before trying again." {
		t.Fatalf("rate limit classification did not short-circuit message lookup: %q", got)
	}
}

func TestAPIErrorVerificationCodes(t *testing.T) {
	t.Parallel()

	cooldown := &APIError{Code: codeVerificationCooldown, Message: "ignored"}
	if got := cooldown.UserFacing("fallback"); got != "Rate limit reached. Please wait 10-15 minutes before requesting another code. This is a WhatsApp security measure." {
		t.Fatalf("cooldown message = %q", got)
	}

	badNumber := &APIError{Code: codeBadPhoneNumber}
	if got := badNumber.UserFacing("fallback"); got != "Invalid phone number format. Please check the number and try again." {
		t.Fatalf("bad number message = %q", got)
	}
}

func TestAPIErrorFallbackOrder(t *testing.T) {
	t.Parallel()

	err := &APIError{Code: 100, Message: "platform message", UserMessage: "user message"}
	if got := err.UserFacing("fallback"); got != "user message" {
		t.Fatalf("expected error_user_msg preference, got %q", got)
	}

	err = &APIError{Code: 100, Message: "platform message"}
	if got := err.UserFacing("fallback"); got != "platform message" {
		t.Fatalf("expected platform message, got %q", got)
	}

	err = &APIError{Code: 100}
	if got := err.UserFacing("fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestParseRegainAccess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{name: "missing header", value: "", want: time.Hour},
		{name: "bad json", value: "{not json", want: time.Hour},
		{name: "field absent", value: `{"call_count":99}`, want: time.Hour},
		{name: "field present", value: `{"estimated_time_to_regain_access":120}`, want: 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := parseRegainAccess(tt.value); got != tt.want {
				t.Fatalf("parseRegainAccess(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestUserFacingError(t *testing.T) {
	t.Parallel()

	if got := UserFacingError(nil, "fallback"); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}

	wrapped := fmt.Errorf("request failed: %w", errors.New("dial tcp: connection refused"))
	if got := UserFacingError(wrapped, "fallback"); got != "Network error: request failed: dial tcp: connection refused" {
		t.Fatalf("network error message = %q", got)
	}

	if got := UserFacingError(errNoSuccessFlag, "Failed to delete phone number"); got != "Failed to delete phone number" {
		t.Fatalf("missing success marker message = %q", got)
	}

	apiErr := &APIError{Code: 100, Message: "no permission"}
	if got := UserFacingError(fmt.Errorf("wrap: %w", apiErr), "fallback"); got != "no permission" {
		t.Fatalf("classified error message = %q", got)
	}
}
