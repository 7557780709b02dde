/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"sync"

	"preflight/graph"
)

// Credentials is the process-wide credential state. Mutation happens only
// through the explicit load and save actions; the token is never validated
// locally.
type Credentials struct {
	BusinessPortfolioID string
	AccessToken         string
	FacebookAppID       string
	FacebookConfigID    string
}

// Configured reports whether the two fields every remote call needs are set.
func (c Credentials) Configured() bool {
	return c.BusinessPortfolioID != "" && c.AccessToken != ""
}

// ActionGuard admits one mutating action at a time. It replaces the
// advisory busy flag of earlier builds: a second action arriving while one
// is outstanding is rejected instead of racing.
type ActionGuard struct {
	mu sync.Mutex
}

// TryAcquire attempts to claim the guard without blocking.
func (g *ActionGuard) TryAcquire() bool {
	return g.mu.TryLock()
}

// Release frees the guard. Call only after a successful TryAcquire.
func (g *ActionGuard) Release() {
	g.mu.Unlock()
}

const busyMessage = "Another action is still in progress. Please wait for it to finish."

// Console holds the transient state behind the web pages: credentials, the
// phone number list rebuilt from the remote API, the WABA registration
// selections, and the pending-verification selection. Nothing here is
// persisted; a restart starts empty except for the saved credential keys.
type Console struct {
	mu    sync.Mutex
	guard ActionGuard

	store     CredentialStore
	graphBase string

	creds   Credentials
	numbers []graph.PhoneNumberRecord

	// pendingVerification is the number ID a code was last requested for;
	// the verify form on the numbers page targets it.
	pendingVerification string

	wabas           []graph.WABA
	selectedWABA    *graph.WABA
	wabaNumbers     []graph.WABAPhoneNumber
	signupSelection []string
}

// NewConsole wires the web layer. graphBase may be empty for the production
// Graph API endpoint.
func NewConsole(store CredentialStore, graphBase string) *Console {
	return &Console{
		store:     store,
		graphBase: graphBase,
	}
}

// client builds a facade for the current credentials.
func (con *Console) client() *graph.Client {
	creds := con.credentials()

	return graph.NewClient(con.graphBase, creds.BusinessPortfolioID, creds.AccessToken)
}

func (con *Console) credentials() Credentials {
	con.mu.Lock()
	defer con.mu.Unlock()

	return con.creds
}

func (con *Console) setCredentials(creds Credentials) {
	con.mu.Lock()
	defer con.mu.Unlock()

	con.creds = creds
}

func (con *Console) snapshotNumbers() []graph.PhoneNumberRecord {
	con.mu.Lock()
	defer con.mu.Unlock()

	out := make([]graph.PhoneNumberRecord, len(con.numbers))
	copy(out, con.numbers)

	return out
}

// replaceNumbers swaps in a freshly loaded list. Records are never mutated
// in place; status changes always arrive through a full reload.
func (con *Console) replaceNumbers(numbers []graph.PhoneNumberRecord) {
	con.mu.Lock()
	defer con.mu.Unlock()

	con.numbers = numbers

	// Drop signup selections that no longer exist or lost verification.
	kept := con.signupSelection[:0]
	for _, id := range con.signupSelection {
		for _, num := range numbers {
			if num.ID == id && num.Status == "VERIFIED" {
				kept = append(kept, id)
				break
			}
		}
	}
	con.signupSelection = kept
}

func (con *Console) appendNumber(record graph.PhoneNumberRecord) {
	con.mu.Lock()
	defer con.mu.Unlock()

	con.numbers = append(con.numbers, record)
}

func (con *Console) removeNumber(id string) {
	con.mu.Lock()
	defer con.mu.Unlock()

	kept := con.numbers[:0]
	for _, num := range con.numbers {
		if num.ID != id {
			kept = append(kept, num)
		}
	}
	con.numbers = kept

	if con.pendingVerification == id {
		con.pendingVerification = ""
	}
}

func (con *Console) setPendingVerification(id string) {
	con.mu.Lock()
	defer con.mu.Unlock()

	con.pendingVerification = id
}

func (con *Console) pendingVerificationID() string {
	con.mu.Lock()
	defer con.mu.Unlock()

	return con.pendingVerification
}
