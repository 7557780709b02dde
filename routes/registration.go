/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"

	"preflight/graph"
)

// RegistrationPage renders the multi-WABA registration tab: the WABA
// picker, the phone numbers of the selected WABA, and the PIN form.
func (con *Console) RegistrationPage(t template.Template, data template.Data) {
	con.mu.Lock()
	wabas := make([]graph.WABA, len(con.wabas))
	copy(wabas, con.wabas)
	numbers := make([]graph.WABAPhoneNumber, len(con.wabaNumbers))
	copy(numbers, con.wabaNumbers)
	selected := con.selectedWABA
	con.mu.Unlock()

	data["WABAs"] = wabas
	data["SelectedWABA"] = selected
	data["WABANumbers"] = numbers
	data["Configured"] = con.credentials().Configured()
	data["IsRegistration"] = true
	t.HTML(http.StatusOK, "registration")
}

// LoadWABAs fetches owned and client-shared WABAs and combines them into
// one picker list. The two fetches are classified independently, so a rate
// limit on either one surfaces its own wait time.
func (con *Console) LoadWABAs(c flamego.Context, s session.Session) {
	if !con.credentials().Configured() {
		SetErrorFlash(s, "Configure your Business Portfolio ID and access token first")
		c.Redirect("/config", http.StatusSeeOther)
		return
	}

	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	ctx := c.Request().Context()
	client := con.client()

	owned, err := client.ListOwnedWABAs(ctx)
	if err != nil {
		logger.Error("Failed to load owned WABAs", "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Failed to load WABAs"))
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	shared, err := client.ListClientWABAs(ctx)
	if err != nil {
		logger.Error("Failed to load client WABAs", "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Failed to load WABAs"))
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	combined := make([]graph.WABA, 0, len(owned)+len(shared))
	combined = append(combined, owned...)
	combined = append(combined, shared...)

	con.mu.Lock()
	con.wabas = combined
	con.mu.Unlock()

	c.Redirect("/registration", http.StatusSeeOther)
}

// SelectWABA picks a WABA from the loaded list or accepts a manually
// entered ID that was never listed. Selecting clears any previously loaded
// phone numbers.
func (con *Console) SelectWABA(c flamego.Context, s session.Session) {
	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Failed to parse WABA selection form", "error", err)
		SetErrorFlash(s, "Failed to parse form data")
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	form := c.Request().Form
	wabaID := strings.TrimSpace(form.Get("waba_id"))
	manualID := strings.TrimSpace(form.Get("manual_waba_id"))

	con.mu.Lock()
	defer con.mu.Unlock()

	switch {
	case manualID != "":
		con.selectedWABA = &graph.WABA{
			ID:     manualID,
			Name:   "WABA " + manualID,
			Source: graph.WABAManual,
		}
	case wabaID != "":
		con.selectedWABA = nil
		for i := range con.wabas {
			if con.wabas[i].ID == wabaID {
				waba := con.wabas[i]
				con.selectedWABA = &waba
				break
			}
		}
		if con.selectedWABA == nil {
			SetErrorFlash(s, "Unknown WABA selected")
			c.Redirect("/registration", http.StatusSeeOther)
			return
		}
	default:
		con.selectedWABA = nil
	}

	con.wabaNumbers = nil
	c.Redirect("/registration", http.StatusSeeOther)
}

// LoadWABANumbers fetches the phone numbers attached to the selected WABA.
func (con *Console) LoadWABANumbers(c flamego.Context, s session.Session) {
	con.mu.Lock()
	selected := con.selectedWABA
	con.mu.Unlock()

	if selected == nil {
		SetErrorFlash(s, "Select a WABA first")
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	numbers, err := con.client().ListWABAPhoneNumbers(c.Request().Context(), selected.ID)
	if err != nil {
		logger.Error("Failed to load WABA phone numbers", "waba_id", selected.ID, "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Failed to load WABA phone numbers"))
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	con.mu.Lock()
	con.wabaNumbers = numbers
	con.mu.Unlock()

	c.Redirect("/registration", http.StatusSeeOther)
}

// RegisterWABANumber registers a WABA phone number for Cloud API messaging
// with a two-factor PIN.
func (con *Console) RegisterWABANumber(c flamego.Context, s session.Session) {
	numberID := c.Param("id")
	if numberID == "" {
		SetErrorFlash(s, "Phone number ID is required")
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	pin := strings.TrimSpace(c.Request().FormValue("pin"))
	if !validPIN(pin) {
		SetErrorFlash(s, "Please enter a 6-digit PIN")
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	if err := con.client().RegisterNumber(c.Request().Context(), numberID, pin); err != nil {
		logger.Error("Failed to register phone number", "number_id", numberID, "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Registration failed"))
		c.Redirect("/registration", http.StatusSeeOther)
		return
	}

	SetSuccessFlash(s, "Phone number registered successfully!")
	c.Redirect("/registration", http.StatusSeeOther)
}

func validPIN(pin string) bool {
	if len(pin) != 6 {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}
