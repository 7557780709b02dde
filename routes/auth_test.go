// SPDX-FileCopyrightText: 2026 The Preflight Authors
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flamego/flamego"
	"github.com/flamego/session"
	"golang.org/x/crypto/bcrypt"
)

func newAuthTestApp(s session.Session) *flamego.Flame {
	f := flamego.New()
	f.Use(func(c flamego.Context) {
		c.MapTo(s, (*session.Session)(nil))
		c.Next()
	})

	f.Post("/login", Login)
	f.Get("/logout", Logout)
	f.Group("", func() {
		f.Get("/protected", func(c flamego.Context) {
			c.ResponseWriter().WriteHeader(http.StatusOK)
		})
	}, RequireAuth)

	return f
}

func performGET(t *testing.T, f *flamego.Flame, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	return rec
}

func TestRequireAuthOpenWhenDisabled(t *testing.T) {
	t.Setenv(passwordHashEnvVar, "")

	s := newTestSession()
	f := newAuthTestApp(s)

	rec := performGET(t, f, "/protected")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected open access, got status %d", rec.Code)
	}
}

func TestRequireAuthRedirectsWhenEnabled(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv(passwordHashEnvVar, string(hash))

	s := newTestSession()
	f := newAuthTestApp(s)

	rec := performGET(t, f, "/protected")
	assertRedirect(t, rec, "/login")
}

func TestLoginAndLogout(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv(passwordHashEnvVar, string(hash))

	s := newTestSession()
	f := newAuthTestApp(s)

	rec := performFormPOST(t, f, "/login", formValues("password", "wrong"))
	assertRedirect(t, rec, "/login")
	assertFlash(t, s, FlashError, "Incorrect password")

	rec = performFormPOST(t, f, "/login", formValues("password", "hunter2"))
	assertRedirect(t, rec, "/config")

	rec = performGET(t, f, "/protected")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected access after login, got status %d", rec.Code)
	}

	rec = performGET(t, f, "/logout")
	assertRedirect(t, rec, "/login")

	rec = performGET(t, f, "/protected")
	assertRedirect(t, rec, "/login")
}
