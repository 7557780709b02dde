/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"net/http"
	"os"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"github.com/flamego/template"
	"golang.org/x/crypto/bcrypt"
)

const sessionAuthenticatedKey = "authenticated"

// passwordHashEnvVar holds a bcrypt hash of the operator password. When it
// is unset the console runs open, matching the original local-only tool.
const passwordHashEnvVar = "CONSOLE_PASSWORD_HASH"

func authEnabled() bool {
	return os.Getenv(passwordHashEnvVar) != ""
}

// LoginForm renders the login page
func LoginForm(c flamego.Context, t template.Template, data template.Data) {
	if !authEnabled() {
		c.Redirect("/config", http.StatusSeeOther)
		return
	}

	data["PageTitle"] = "Login"
	t.HTML(http.StatusOK, "login")
}

// Login checks the operator password against the configured bcrypt hash
func Login(c flamego.Context, s session.Session) {
	if !authEnabled() {
		c.Redirect("/config", http.StatusSeeOther)
		return
	}

	password := c.Request().FormValue("password")
	hash := os.Getenv(passwordHashEnvVar)

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		logger.Warn("Failed login attempt", "ip", clientIP(c))
		SetErrorFlash(s, "Incorrect password")
		c.Redirect("/login", http.StatusSeeOther)

		return
	}

	s.Set(sessionAuthenticatedKey, true)
	c.Redirect("/config", http.StatusSeeOther)
}

// Logout handles logout request
func Logout(s session.Session, c flamego.Context) {
	s.Delete(sessionAuthenticatedKey)
	c.Redirect("/login", http.StatusSeeOther)
}

// RequireAuth is a middleware that checks if user is authenticated
func RequireAuth(s session.Session, c flamego.Context) {
	if !authEnabled() {
		c.Next()
		return
	}

	authenticated, ok := s.Get(sessionAuthenticatedKey).(bool)
	if !ok || !authenticated {
		c.Redirect("/login", http.StatusSeeOther)
		return
	}

	c.Next()
}
