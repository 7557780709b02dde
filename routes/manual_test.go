// SPDX-FileCopyrightText: 2026 The Preflight Authors
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"testing"
)

func TestManualVerify(t *testing.T) {
	stub, con, s := newGraphStub(t)
	stub.handle("POST /n7/verify_code", `{"success":true}`)
	stub.handleList(listBody)

	f := newConsoleTestApp(con, s)
	rec := performFormPOST(t, f, "/manual/verify", formValues(
		"number_id", "n7",
		"code", "123456",
	))

	assertRedirect(t, rec, "/manual")
	assertFlash(t, s, FlashSuccess, "Phone number verified successfully! Number is now ready for use.")
}

func TestManualVerifyRequiresBothFields(t *testing.T) {
	_, con, s := newGraphStub(t)
	f := newConsoleTestApp(con, s)

	rec := performFormPOST(t, f, "/manual/verify", formValues("number_id", "n7"))

	assertRedirect(t, rec, "/manual")
	assertFlash(t, s, FlashError, "Please enter verification code")
}

func TestManualVerifyNetworkFailure(t *testing.T) {
	con := NewConsole(NewMemoryStore(), "http://127.0.0.1:1")
	con.setCredentials(Credentials{BusinessPortfolioID: "pf1", AccessToken: "tok"})

	s := newTestSession()
	f := newConsoleTestApp(con, s)

	rec := performFormPOST(t, f, "/manual/verify", formValues(
		"number_id", "n7",
		"code", "123456",
	))

	assertRedirect(t, rec, "/manual")
	assertFlashPrefix(t, s, FlashError, "Network error: ")
}
