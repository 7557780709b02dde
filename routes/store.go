/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package routes

import (
	"context"
	"sync"
)

// Persisted credential keys. The names match what earlier builds of this
// console stored in browser localStorage, so values migrated from there
// keep working.
const (
	settingBusinessPortfolioID = "businessPortfolioId"
	settingAccessToken         = "accessToken"
)

// CredentialStore persists the two saved credential keys. Reads are a
// fallback source during configuration load; writes happen only on an
// explicit save action.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryStore is the store used when no database is configured: saved
// values survive for the process lifetime only.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.values[key], nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value

	return nil
}
