// SPDX-FileCopyrightText: 2026 The Preflight Authors
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/flamego/flamego"
	"github.com/flamego/session"

	"preflight/graph"
)

type testSession struct {
	id    string
	data  map[interface{}]interface{}
	flash interface{}
}

func newTestSession() *testSession {
	return &testSession{
		id:   "test-session",
		data: make(map[interface{}]interface{}),
	}
}

func (s *testSession) ID() string {
	return s.id
}

func (s *testSession) RegenerateID(http.ResponseWriter, *http.Request) error {
	return nil
}

func (s *testSession) Get(key interface{}) interface{} {
	return s.data[key]
}

func (s *testSession) Set(key, val interface{}) {
	s.data[key] = val
}

func (s *testSession) SetFlash(val interface{}) {
	s.flash = val
}

func (s *testSession) Delete(key interface{}) {
	delete(s.data, key)
}

func (s *testSession) Flush() {
	s.data = make(map[interface{}]interface{})
}

func (s *testSession) Encode() ([]byte, error) {
	return nil, nil
}

func (s *testSession) HasChanged() bool {
	return true
}

// newConsoleTestApp registers every console route against a mocked session
// so handlers can be driven through real HTTP requests.
func newConsoleTestApp(con *Console, s session.Session) *flamego.Flame {
	f := flamego.New()
	f.Use(func(c flamego.Context) {
		c.MapTo(s, (*session.Session)(nil))
		c.Next()
	})

	f.Post("/config/load", con.LoadConfig)
	f.Post("/config/save", con.SaveConfig)
	f.Get("/api/config", con.APIConfig)

	f.Post("/numbers/add", con.AddNumber)
	f.Post("/numbers/reload", con.ReloadNumbers)
	f.Post("/numbers/verify", con.VerifyNumber)
	f.Post("/numbers/{id}/request_code", con.RequestCode)
	f.Post("/numbers/{id}/register", con.RegisterNumber)
	f.Post("/numbers/{id}/delete", con.DeleteNumber)

	f.Post("/manual/verify", con.ManualVerify)

	f.Post("/registration/load", con.LoadWABAs)
	f.Post("/registration/select", con.SelectWABA)
	f.Post("/registration/numbers", con.LoadWABANumbers)
	f.Post("/registration/{id}/register", con.RegisterWABANumber)

	f.Post("/signup/select", con.SelectSignupNumber)
	f.Post("/signup/remove", con.RemoveSignupNumber)
	f.Post("/signup/event", con.SignupEvent)

	return f
}

func formValues(pairs ...string) url.Values {
	form := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		form.Set(pairs[i], pairs[i+1])
	}

	return form
}

// testNumberSet is a small fixture list: one verified number, one not.
func testNumberSet() []graph.PhoneNumberRecord {
	return []graph.PhoneNumberRecord{
		{ID: "n1", PhoneNumber: "+15551234567", Status: "VERIFIED"},
		{ID: "n2", PhoneNumber: "+15557654321", Status: "NOT_VERIFIED"},
	}
}

func performFormPOST(
	t *testing.T,
	f *flamego.Flame,
	path string,
	form url.Values,
) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.ServeHTTP(rec, req)

	return rec
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, wantLocation string) {
	t.Helper()

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected status %d, got %d", http.StatusSeeOther, rec.Code)
	}

	if got := rec.Header().Get("Location"); got != wantLocation {
		t.Fatalf("expected redirect %q, got %q", wantLocation, got)
	}
}

func assertFlash(t *testing.T, s *testSession, wantType FlashType, wantMessage string) {
	t.Helper()

	msg, ok := s.flash.(FlashMessage)
	if !ok {
		t.Fatalf("expected flash message, got %T", s.flash)
	}

	if msg.Type != wantType || msg.Message != wantMessage {
		t.Fatalf("unexpected flash message: %#v", msg)
	}
}

func assertFlashPrefix(t *testing.T, s *testSession, wantType FlashType, wantPrefix string) {
	t.Helper()

	msg, ok := s.flash.(FlashMessage)
	if !ok {
		t.Fatalf("expected flash message, got %T", s.flash)
	}

	if msg.Type != wantType || !strings.HasPrefix(msg.Message, wantPrefix) {
		t.Fatalf("unexpected flash message: %#v", msg)
	}
}
