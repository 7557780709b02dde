// SPDX-FileCopyrightText: 2026 The Preflight Authors
// SPDX-License-Identifier: Apache-2.0

package routes

import (
	"context"
	"testing"

	"preflight/graph"
)

func TestActionGuardSingleFlight(t *testing.T) {
	t.Parallel()

	var guard ActionGuard

	if !guard.TryAcquire() {
		t.Fatal("first acquire should succeed")
	}
	if guard.TryAcquire() {
		t.Fatal("second acquire should fail while the first is held")
	}

	guard.Release()

	if !guard.TryAcquire() {
		t.Fatal("acquire should succeed after release")
	}
	guard.Release()
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()

	val, err := store.Get(ctx, settingAccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "" {
		t.Fatalf("expected empty value for unset key, got %q", val)
	}

	if err := store.Set(ctx, settingAccessToken, "token-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Set(ctx, settingAccessToken, "token-2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	val, err = store.Get(ctx, settingAccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "token-2" {
		t.Fatalf("expected latest value, got %q", val)
	}
}

func TestCredentialsConfigured(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"empty", Credentials{}, false},
		{"portfolio only", Credentials{BusinessPortfolioID: "123"}, false},
		{"token only", Credentials{AccessToken: "tok"}, false},
		{"both", Credentials{BusinessPortfolioID: "123", AccessToken: "tok"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := tt.creds.Configured(); got != tt.want {
				t.Errorf("Configured() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestReplaceNumbersPrunesSignupSelection(t *testing.T) {
	t.Parallel()

	con := NewConsole(NewMemoryStore(), "")
	con.replaceNumbers(testNumberSet())
	con.signupSelection = []string{"n1", "n2"}

	// n2 is not verified, and a fresh load drops n1's verification.
	con.replaceNumbers([]graph.PhoneNumberRecord{
		{ID: "n1", PhoneNumber: "+15551234567", Status: "NOT_VERIFIED"},
		{ID: "n2", PhoneNumber: "+15557654321", Status: "VERIFIED"},
	})

	con.mu.Lock()
	selection := append([]string(nil), con.signupSelection...)
	con.mu.Unlock()

	if len(selection) != 1 || selection[0] != "n2" {
		t.Fatalf("unexpected selection after reload: %v", selection)
	}
}

func TestRemoveNumberClearsPendingVerification(t *testing.T) {
	t.Parallel()

	con := NewConsole(NewMemoryStore(), "")
	con.replaceNumbers(testNumberSet())
	con.setPendingVerification("n2")

	con.removeNumber("n2")

	if got := con.pendingVerificationID(); got != "" {
		t.Fatalf("expected cleared pending verification, got %q", got)
	}

	numbers := con.snapshotNumbers()
	if len(numbers) != 1 || numbers[0].ID != "n1" {
		t.Fatalf("unexpected numbers after removal: %#v", numbers)
	}
}
