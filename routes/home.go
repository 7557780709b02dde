/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"

	"github.com/flamego/flamego"
)

// Home sends the operator to the numbers table, or to the configuration
// page when no credentials are set yet.
func (con *Console) Home(c flamego.Context) {
	if con.credentials().Configured() {
		c.Redirect("/numbers", http.StatusSeeOther)
		return
	}
	c.Redirect("/config", http.StatusSeeOther)
}
