/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
)

// Environment variables consulted by the load action, in order of
// precedence over the persisted values.
const (
	envBusinessPortfolioID = "BUSINESS_PORTFOLIO_ID"
	envAccessToken         = "ACCESS_TOKEN"
	envFacebookAppID       = "FACEBOOK_APP_ID"
	envFacebookConfigID    = "FACEBOOK_CONFIG_ID"
)

// ConfigPage renders the configuration tab with the current credential
// state. The access token is shown masked; the form posts the raw value.
func (con *Console) ConfigPage(t template.Template, data template.Data) {
	creds := con.credentials()

	data["BusinessPortfolioID"] = creds.BusinessPortfolioID
	data["HasAccessToken"] = creds.AccessToken != ""
	data["FacebookAppID"] = creds.FacebookAppID
	data["FacebookConfigID"] = creds.FacebookConfigID
	data["Configured"] = creds.Configured()
	data["IsConfig"] = true
	t.HTML(http.StatusOK, "config")
}

// LoadConfig resolves credentials from the environment first, then from the
// persisted store, then leaves them empty. Environment values are never
// written back to the store.
func (con *Console) LoadConfig(c flamego.Context, s session.Session) {
	ctx := c.Request().Context()

	creds := Credentials{
		BusinessPortfolioID: strings.TrimSpace(os.Getenv(envBusinessPortfolioID)),
		AccessToken:         strings.TrimSpace(os.Getenv(envAccessToken)),
		FacebookAppID:       strings.TrimSpace(os.Getenv(envFacebookAppID)),
		FacebookConfigID:    strings.TrimSpace(os.Getenv(envFacebookConfigID)),
	}
	fromEnv := creds.Configured()

	fromStore := false
	if !fromEnv {
		portfolio, err := con.store.Get(ctx, settingBusinessPortfolioID)
		if err != nil {
			logger.Error("Failed to read saved portfolio ID", "error", err)
			SetErrorFlash(s, "Failed to load configuration")
			c.Redirect("/config", http.StatusSeeOther)
			return
		}
		token, err := con.store.Get(ctx, settingAccessToken)
		if err != nil {
			logger.Error("Failed to read saved access token", "error", err)
			SetErrorFlash(s, "Failed to load configuration")
			c.Redirect("/config", http.StatusSeeOther)
			return
		}
		if creds.BusinessPortfolioID == "" {
			creds.BusinessPortfolioID = portfolio
		}
		if creds.AccessToken == "" {
			creds.AccessToken = token
		}
		fromStore = creds.Configured()
	}

	con.setCredentials(creds)

	switch {
	case fromEnv:
		SetSuccessFlash(s, "Configuration loaded successfully")
	case fromStore:
		SetInfoFlash(s, "Using saved configuration")
	default:
		SetWarningFlash(s, "No configuration found. Enter your Business Portfolio ID and access token below.")
	}
	c.Redirect("/config", http.StatusSeeOther)
}

// SaveConfig persists the submitted credentials and makes them current.
// Only non-empty fields overwrite what is already set.
func (con *Console) SaveConfig(c flamego.Context, s session.Session) {
	if err := c.Request().ParseForm(); err != nil {
		logger.Error("Failed to parse configuration form", "error", err)
		SetErrorFlash(s, "Failed to parse form data")
		c.Redirect("/config", http.StatusSeeOther)
		return
	}

	form := c.Request().Form
	creds := con.credentials()

	if v := strings.TrimSpace(form.Get("business_portfolio_id")); v != "" {
		creds.BusinessPortfolioID = v
	}
	if v := strings.TrimSpace(form.Get("access_token")); v != "" {
		creds.AccessToken = v
	}
	if v := strings.TrimSpace(form.Get("facebook_app_id")); v != "" {
		creds.FacebookAppID = v
	}
	if v := strings.TrimSpace(form.Get("facebook_config_id")); v != "" {
		creds.FacebookConfigID = v
	}

	if !creds.Configured() {
		SetErrorFlash(s, "Business Portfolio ID and access token are both required")
		c.Redirect("/config", http.StatusSeeOther)
		return
	}

	ctx := c.Request().Context()
	if err := con.store.Set(ctx, settingBusinessPortfolioID, creds.BusinessPortfolioID); err != nil {
		logger.Error("Failed to save portfolio ID", "error", err)
		SetErrorFlash(s, "Failed to save configuration")
		c.Redirect("/config", http.StatusSeeOther)
		return
	}
	if err := con.store.Set(ctx, settingAccessToken, creds.AccessToken); err != nil {
		logger.Error("Failed to save access token", "error", err)
		SetErrorFlash(s, "Failed to save configuration")
		c.Redirect("/config", http.StatusSeeOther)
		return
	}

	con.setCredentials(creds)
	SetSuccessFlash(s, "Configuration saved successfully")
	c.Redirect("/config", http.StatusSeeOther)
}

// APIConfig serves the environment-derived defaults the configuration page
// picks up on first load. Field names match the browser-side storage keys.
func (con *Console) APIConfig(c flamego.Context) {
	c.ResponseWriter().Header().Set("Content-Type", "application/json")
	json.NewEncoder(c.ResponseWriter()).Encode(map[string]string{
		"businessPortfolioId": os.Getenv(envBusinessPortfolioID),
		"accessToken":         os.Getenv(envAccessToken),
		"facebookAppId":       os.Getenv(envFacebookAppID),
		"facebookConfigId":    os.Getenv(envFacebookConfigID),
	})
}
