/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package graph

import (
	"regexp"
	"strings"
)

const (
	// E.164 bounds on the canonical string, leading "+" included.
	minPhoneLength = 8
	maxPhoneLength = 16

	errPhoneFormat   = "Invalid phone number format. Must be in international format (e.g., +1234567890)"
	errPhoneTooShort = "Phone number too short. Must include country code and number."
	errPhoneTooLong  = "Phone number too long. Maximum 15 digits after country code."
)

var (
	nonPhoneCharRegex = regexp.MustCompile(`[^\d+]`)
	phoneRegex        = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
)

// PhoneValidation is the outcome of normalizing a free-text phone number.
// Formatted always carries the canonical candidate, valid or not, so forms
// can echo back what the input collapsed to.
type PhoneValidation struct {
	Valid     bool
	Formatted string
	Error     string
}

// NormalizePhoneNumber converts free-text input into a canonical
// international-format number ("+" followed by digits) or a validation
// failure. It is pure and idempotent on its own output; the same function
// backs both inline form feedback and the add-number action. A number is
// never sent to the remote API unless it passed here.
func NormalizePhoneNumber(input string) PhoneValidation {
	cleaned := nonPhoneCharRegex.ReplaceAllString(input, "")

	if !strings.HasPrefix(cleaned, "+") {
		cleaned = "+" + cleaned
	}

	// Collapse any interior or duplicate plus signs into a single leading one.
	cleaned = "+" + strings.ReplaceAll(cleaned, "+", "")

	if !phoneRegex.MatchString(cleaned) {
		return PhoneValidation{Formatted: cleaned, Error: errPhoneFormat}
	}

	if len(cleaned) < minPhoneLength {
		return PhoneValidation{Formatted: cleaned, Error: errPhoneTooShort}
	}

	if len(cleaned) > maxPhoneLength {
		return PhoneValidation{Formatted: cleaned, Error: errPhoneTooLong}
	}

	return PhoneValidation{Valid: true, Formatted: cleaned}
}
