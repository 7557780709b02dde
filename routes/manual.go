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

// ManualPage renders the manual verification tab. It takes a raw phone
// number ID, so it works even when the numbers list failed to load.
func (con *Console) ManualPage(t template.Template, data template.Data) {
	data["Configured"] = con.credentials().Configured()
	data["IsManual"] = true
	t.HTML(http.StatusOK, "manual")
}

// ManualVerify submits a verification code for an explicitly entered
// number ID, bypassing the numbers table entirely.
func (con *Console) ManualVerify(c flamego.Context, s session.Session) {
	if !con.guard.TryAcquire() {
		SetErrorFlash(s, busyMessage)
		c.Redirect("/manual", http.StatusSeeOther)
		return
	}
	defer con.guard.Release()

	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Failed to parse manual verification form", "error", err)
		SetErrorFlash(s, "Failed to parse form data")
		c.Redirect("/manual", http.StatusSeeOther)
		return
	}

	form := c.Request().Form
	numberID := strings.TrimSpace(form.Get("number_id"))
	code := strings.TrimSpace(form.Get("code"))
	if numberID == "" || code == "" {
		SetErrorFlash(s, "Please enter verification code")
		c.Redirect("/manual", http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	if err := con.client().VerifyCode(ctx, numberID, code); err != nil {
		logger.Error("Failed to verify code", "number_id", numberID, "error", err)
		SetErrorFlash(s, graph.UserFacingError(err, "Invalid verification code"))
		c.Redirect("/manual", http.StatusSeeOther)
		return
	}

	con.refreshNumbers(ctx)

	SetSuccessFlash(s, "Phone number verified successfully! Number is now ready for use.")
	c.Redirect("/manual", http.StatusSeeOther)
}
