/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	qrcode "github.com/skip2/go-qrcode"
	"golang.org/x/net/publicsuffix"
)

// signupEventType is the sentinel the signup widget puts in its
// postMessage payload.
const signupEventType = "WA_EMBEDDED_SIGNUP"

// signupTrustedDomain is the registrable domain a signup event must
// originate from.
const signupTrustedDomain = "facebook.com"

var (
	errUntrustedOrigin = errors.New("event origin is not a trusted signup domain")
	errNotSignupEvent  = errors.New("payload is not an embedded signup event")
)

// SignupResult is the completed-signup data extracted from the widget's
// postMessage payload.
type SignupResult struct {
	WABAID        string
	PhoneNumberID string
}

// ParseSignupEvent validates a forwarded postMessage event and extracts the
// signup result. The origin must resolve to the trusted registrable domain;
// a suffix string match is not enough, since "evilfacebook.com" would pass.
func ParseSignupEvent(origin, payload string) (SignupResult, error) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Hostname() == "" {
		return SignupResult{}, errUntrustedOrigin
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(parsed.Hostname())
	if err != nil || domain != signupTrustedDomain {
		return SignupResult{}, errUntrustedOrigin
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			WABAID        string `json:"waba_id"`
			PhoneNumberID string `json:"phone_number_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return SignupResult{}, errNotSignupEvent
	}
	if event.Type != signupEventType {
		return SignupResult{}, errNotSignupEvent
	}

	return SignupResult{
		WABAID:        event.Data.WABAID,
		PhoneNumberID: event.Data.PhoneNumberID,
	}, nil
}

// SignupPage renders the embedded signup tab: the verified numbers that can
// be attached to the flow, the selection, and a QR code that opens this
// page on another device.
func (con *Console) SignupPage(c flamego.Context, t template.Template, data template.Data) {
	creds := con.credentials()
	rows := buildNumberRows(con.snapshotNumbers(), time.Now())

	verified := make([]numberRow, 0, len(rows))
	for _, row := range rows {
		if row.Status == "VERIFIED" {
			verified = append(verified, row)
		}
	}

	con.mu.Lock()
	selection := make([]string, len(con.signupSelection))
	copy(selection, con.signupSelection)
	con.mu.Unlock()

	selectedSet := make(map[string]bool, len(selection))
	for _, id := range selection {
		selectedSet[id] = true
	}

	data["VerifiedNumbers"] = verified
	data["Selection"] = selection
	data["SelectedSet"] = selectedSet
	data["FacebookAppID"] = creds.FacebookAppID
	data["FacebookConfigID"] = creds.FacebookConfigID
	data["SDKReady"] = creds.FacebookAppID != "" && creds.FacebookConfigID != ""
	data["Configured"] = creds.Configured()
	data["IsSignup"] = true

	pageURL := "https://" + c.Request().Host + "/signup"
	if png, err := qrcode.Encode(pageURL, qrcode.Medium, 220); err != nil {
		logger.Error("Failed to generate signup QR code", "error", err)
	} else {
		// Typed as template.URL so the data URI survives HTML escaping.
		data["QRCode"] = htmltemplate.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}

	t.HTML(http.StatusOK, "signup")
}

// SelectSignupNumber adds a verified number to the pre-verified IDs passed
// to the signup flow.
func (con *Console) SelectSignupNumber(c flamego.Context, s session.Session) {
	numberID := strings.TrimSpace(c.Request().FormValue("number_id"))
	if numberID == "" {
		SetErrorFlash(s, "Phone number ID is required")
		c.Redirect("/signup", http.StatusSeeOther)
		return
	}

	verified := false
	for _, num := range con.snapshotNumbers() {
		if num.ID == numberID && num.Status == "VERIFIED" {
			verified = true
			break
		}
	}
	if !verified {
		SetErrorFlash(s, "Only verified numbers can be used in Embedded Signup")
		c.Redirect("/signup", http.StatusSeeOther)
		return
	}

	con.mu.Lock()
	present := false
	for _, id := range con.signupSelection {
		if id == numberID {
			present = true
			break
		}
	}
	if !present {
		con.signupSelection = append(con.signupSelection, numberID)
	}
	con.mu.Unlock()

	c.Redirect("/signup", http.StatusSeeOther)
}

// RemoveSignupNumber drops a number from the signup selection.
func (con *Console) RemoveSignupNumber(c flamego.Context, s session.Session) {
	numberID := strings.TrimSpace(c.Request().FormValue("number_id"))
	if numberID == "" {
		SetErrorFlash(s, "Phone number ID is required")
		c.Redirect("/signup", http.StatusSeeOther)
		return
	}

	con.mu.Lock()
	kept := con.signupSelection[:0]
	for _, id := range con.signupSelection {
		if id != numberID {
			kept = append(kept, id)
		}
	}
	con.signupSelection = kept
	con.mu.Unlock()

	c.Redirect("/signup", http.StatusSeeOther)
}

// SignupEvent receives the postMessage event the browser forwards when the
// signup widget completes. The response is JSON because the page script
// consumes it without a reload; a flash is set as well so the next page
// view shows the result.
func (con *Console) SignupEvent(c flamego.Context, s session.Session) {
	var request struct {
		Origin  string `json:"origin"`
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(c.Request().Body().ReadCloser()).Decode(&request); err != nil {
		c.ResponseWriter().WriteHeader(http.StatusBadRequest)
		json.NewEncoder(c.ResponseWriter()).Encode(map[string]string{"error": "invalid request body"})
		return
	}

	result, err := ParseSignupEvent(request.Origin, request.Payload)
	if err != nil {
		if errors.Is(err, errUntrustedOrigin) {
			logger.Warn("Rejected signup event from untrusted origin", "origin", request.Origin)
		}
		c.ResponseWriter().WriteHeader(http.StatusBadRequest)
		json.NewEncoder(c.ResponseWriter()).Encode(map[string]string{"error": err.Error()})
		return
	}

	message := fmt.Sprintf("Embedded Signup completed! WABA ID: %s, Phone ID: %s", result.WABAID, result.PhoneNumberID)
	logger.Info("Embedded signup completed", "waba_id", result.WABAID, "phone_number_id", result.PhoneNumberID)
	SetSuccessFlash(s, message)

	c.ResponseWriter().Header().Set("Content-Type", "application/json")
	json.NewEncoder(c.ResponseWriter()).Encode(map[string]string{"message": message})
}
