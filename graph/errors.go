/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Error codes the console treats specially.
const (
	// codeRateLimited marks a business-use-case quota error. It is checked
	// before any other error handling.
	codeRateLimited = 80008
	// codeVerificationCooldown is returned when a verification code was
	// requested again too soon.
	codeVerificationCooldown = 136024
	// codeBadPhoneNumber is returned when the platform rejects the number
	// format on a code request.
	codeBadPhoneNumber = 136021
)

// usageHeader carries quota usage details on rate-limited responses.
const usageHeader = "X-Business-Use-Case-Usage"

// defaultRegainAccess is assumed when the usage header is missing or
// unparsable.
const defaultRegainAccess = 3600 * time.Second

// APIError is a classified error object returned by the remote platform.
type APIError struct {
	Code        int
	Message     string
	UserMessage string
	Type        string
	FBTraceID   string
	// RetryAfter is set on rate-limited responses, from the usage header
	// or the one-hour default.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("graph api error code %d", e.Code)
	}

	return fmt.Sprintf("graph api error code %d: %s", e.Code, e.Message)
}

// IsRateLimit reports whether this error is the quota/usage classification.
func (e *APIError) IsRateLimit() bool {
	return e.Code == codeRateLimited
}

// UserFacing renders the message shown to the operator. Rate limiting wins
// over everything else, then the two code-request special cases, then the
// platform's own text, then the caller's fallback.
func (e *APIError) UserFacing(fallback string) string {
	switch e.Code {
	case codeRateLimited:
		minutes := int(math.Ceil(e.retryAfter().Minutes()))
		return fmt.Sprintf("Rate limit exceeded. Please wait %d minutes before trying again.", minutes)
	case codeVerificationCooldown:
		return "Rate limit reached. Please wait 10-15 minutes before requesting another code. This is a WhatsApp security measure."
	case codeBadPhoneNumber:
		return "Invalid phone number format. Please check the number and try again."
	}

	if e.UserMessage != "" {
		return e.UserMessage
	}
	if e.Message != "" {
		return e.Message
	}

	return fallback
}

func (e *APIError) retryAfter() time.Duration {
	if e.RetryAfter > 0 {
		return e.RetryAfter
	}

	return defaultRegainAccess
}

type businessUseCaseUsage struct {
	EstimatedTimeToRegainAccess int64 `json:"estimated_time_to_regain_access"`
}

// parseRegainAccess extracts the wait duration from the usage header value.
// A missing header, bad JSON, or an absent field fall back to one hour.
func parseRegainAccess(headerValue string) time.Duration {
	if headerValue == "" {
		return defaultRegainAccess
	}

	var usage businessUseCaseUsage
	if err := json.Unmarshal([]byte(headerValue), &usage); err != nil {
		logger.Debug("Could not parse rate limit usage header", "value", headerValue, "error", err)
		return defaultRegainAccess
	}

	if usage.EstimatedTimeToRegainAccess <= 0 {
		return defaultRegainAccess
	}

	return time.Duration(usage.EstimatedTimeToRegainAccess) * time.Second
}

// UserFacingError renders any facade failure for the operator: classified
// platform errors through their own rules, everything else (the request
// itself failing) prefixed as a network error.
func UserFacingError(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserFacing(fallback)
	}

	// A 200-shaped response without the expected success marker carries no
	// platform message; report the per-action fallback.
	if errors.Is(err, errNoSuccessFlag) || errors.Is(err, errMissingAddID) {
		return fallback
	}

	return "Network error: " + err.Error()
}
