/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"preflight/graph"
)

// numberRow is a PhoneNumberRecord decorated with the expiry classification
// the numbers table renders.
type numberRow struct {
	graph.PhoneNumberRecord

	ExpiryState graph.ExpiryState
	DaysLeft    int
	HasExpiry   bool
	Expired     bool
	BadgeSoon   bool
}

func buildNumberRows(records []graph.PhoneNumberRecord, now time.Time) []numberRow {
	rows := make([]numberRow, 0, len(records))
	for _, rec := range records {
		row := numberRow{PhoneNumberRecord: rec}
		row.DaysLeft, row.HasExpiry = graph.DaysUntilExpiry(rec.VerificationExpiryTime, now)
		row.ExpiryState = graph.ClassifyExpiry(row.DaysLeft, row.HasExpiry)
		row.Expired = row.ExpiryState == graph.ExpiryExpired
		row.BadgeSoon = graph.ExpiringWithinWeek(rec.VerificationExpiryTime, now)
		rows = append(rows, row)
	}

	return rows
}

// NumbersPage renders the pre-verified numbers table along with the add
// form and, when a code was requested, the verify form.
func (con *Console) NumbersPage(t template.Template, data template.Data) {
	creds := con.credentials()

	data["Configured"] = creds.Configured()
	data["Numbers"] = buildNumberRows(con.snapshotNumbers(), time.Now())
	data["PendingVerification"] = con.pendingVerificationID()
	data["IsNumbers"] = true
	t.HTML(http.StatusOK, "numbers")
}

// ReloadNumbers replaces the in-memory list with a fresh fetch from the
// remote API. Records are never patched in place.
func (con *Console) ReloadNumbers(c flamego.Context, s session.Session) {
	if !con.credentials().Configured() {
		SetErrorFlash(s, "Configure your Business Portfolio ID and access token first")
		c.Redirect("/config", http.StatusSeeOther)
		return
	}

	numbers, err := con.client().ListPreverifiedNumbers(c.Request().Context())
	if err != nil {
		logger.Error("Failed to load phone numbers", "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Failed to load phone numbers"))
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	con.replaceNumbers(numbers)
	c.Redirect("/numbers", http.StatusSeeOther)
}

// AddNumber validates the submitted number locally and, if it passes,
// registers it as a pre-verified number. The new record starts out
// unverified until the list is reloaded.
func (con *Console) AddNumber(c flamego.Context, s session.Session) {
	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Failed to parse add number form", "error", err)
		SetErrorFlash(s, "Failed to parse form data")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	form := c.Request().Form
	countryCode := strings.TrimSpace(form.Get("country_code"))
	phoneNumber := strings.TrimSpace(form.Get("phone_number"))
	if countryCode == "" || phoneNumber == "" {
		SetErrorFlash(s, "Please fill in all required fields")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	validation := graph.NormalizePhoneNumber(countryCode + phoneNumber)
	if !validation.Valid {
		SetErrorFlash(s, validation.Error)
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	id, err := con.client().AddPhoneNumber(c.Request().Context(), validation.Formatted)
	if err != nil {
		logger.Error("Failed to add phone number", "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Failed to add phone number: Unknown error"))
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	con.appendNumber(graph.PhoneNumberRecord{
		ID:          id,
		PhoneNumber: validation.Formatted,
		Status:      "unverified",
		CreatedAt:   time.Now(),
	})
	SetSuccessFlash(s, "Phone number added successfully! ID: "+id)
	c.Redirect("/numbers", http.StatusSeeOther)
}

// RequestCode asks the remote API to send a verification code and marks
// the number as awaiting verification. The list is reloaded once so the
// refreshed status is visible immediately.
func (con *Console) RequestCode(c flamego.Context, s session.Session) {
	numberID := c.Param("id")
	if numberID == "" {
		SetErrorFlash(s, "Phone number ID is required")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	method := strings.TrimSpace(c.Request().FormValue("code_method"))
	if method == "" {
		method = "SMS"
	}

	ctx := c.Request().Context()
	if err := con.client().RequestVerificationCode(ctx, numberID, method); err != nil {
		logger.Error("Failed to request verification code", "number_id", numberID, "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Failed to send verification code"))
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	con.setPendingVerification(numberID)
	con.refreshNumbers(ctx)

	if method == "VOICE" {
		SetSuccessFlash(s, "Verification call requested! Answer the phone to hear your code.")
	} else {
		SetSuccessFlash(s, `Verification code sent via SMS! Check your phone for: "WhatsApp code 123-456"`)
	}
	c.Redirect("/numbers", http.StatusSeeOther)
}

// VerifyNumber submits the received code. On success the pending selection
// is cleared and the list is reloaded exactly once to pick up the new
// status and expiry.
func (con *Console) VerifyNumber(c flamego.Context, s session.Session) {
	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Failed to parse verify form", "error", err)
		SetErrorFlash(s, "Failed to parse form data")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	form := c.Request().Form
	numberID := strings.TrimSpace(form.Get("number_id"))
	if numberID == "" {
		numberID = con.pendingVerificationID()
	}
	code := strings.TrimSpace(form.Get("code"))
	if numberID == "" || code == "" {
		SetErrorFlash(s, "Please enter verification code")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	if err := con.client().VerifyCode(ctx, numberID, code); err != nil {
		logger.Error("Failed to verify code", "number_id", numberID, "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Invalid verification code"))
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	con.setPendingVerification("")
	con.refreshNumbers(ctx)

	SetSuccessFlash(s, "Phone number verified successfully! Number is now ready for use.")
	c.Redirect("/numbers", http.StatusSeeOther)
}

// DeleteNumber removes the number remotely first; the local list only
// drops the record once the remote delete succeeded.
func (con *Console) DeleteNumber(c flamego.Context, s session.Session) {
	numberID := c.Param("id")
	if numberID == "" {
		SetErrorFlash(s, "Phone number ID is required")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	if err := con.client().DeleteNumber(c.Request().Context(), numberID); err != nil {
		logger.Error("Failed to delete phone number", "number_id", numberID, "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Failed to delete phone number"))
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	con.removeNumber(numberID)
	SetSuccessFlash(s, "Phone number deleted successfully")
	c.Redirect("/numbers", http.StatusSeeOther)
}

// RegisterNumber registers a verified pre-verified number for Cloud API
// messaging directly from the numbers table.
func (con *Console) RegisterNumber(c flamego.Context, s session.Session) {
	numberID := c.Param("id")
	if numberID == "" {
		SetErrorFlash(s, "Phone number ID is required")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	pin := strings.TrimSpace(c.Request().FormValue("pin"))
	if !validPIN(pin) {
		SetErrorFlash(s, "Please enter a 6-digit PIN")
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	if err := con.client().RegisterNumber(c.Request().Context(), numberID, pin); err != nil {
		logger.Error("Failed to register phone number", "number_id", numberID, "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Registration failed"))
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}

	SetSuccessFlash(s, "Phone number registered successfully!")
	c.Redirect("/numbers", http.StatusSeeOther)
}

// refreshNumbers reloads the list after a mutating action. Failures are
// logged and otherwise ignored; the action itself already succeeded.
func (con *Console) refreshNumbers(ctx context.Context) {
	numbers, err := con.client().ListPreverifiedNumbers(ctx)
	if err != nil {
		logger.Warn("Failed to refresh phone numbers after action", "error", err)
		return
	}
	con.replaceNumbers(numbers)
}
