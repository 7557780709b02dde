/*
 * Copyright 2026 The Preflight Authors
 * SPDX-License-Identifier: Apache-2.0
 */
package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// GetSetting returns the value for a console setting key, or empty string
// when the key has never been saved.
func GetSetting(ctx context.Context, key string) (string, error) {
	if pool == nil {
		return "", ErrDatabaseConnectionNotInitialized
	}

	var value string

	err := pool.QueryRow(ctx, `SELECT value FROM console_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %q: %w", key, err)
	}

	return value, nil
}

// SetSetting stores a console setting value, replacing any previous one.
func SetSetting(ctx context.Context, key, value string) error {
	if pool == nil {
		return ErrDatabaseConnectionNotInitialized
	}

	query := `
		INSERT INTO console_settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`

	if _, err := pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to save setting %q: %w", key, err)
	}

	return nil
}

// SettingsStore adapts the settings table to the credential-store interface
// used by the web layer.
type SettingsStore struct{}

func (SettingsStore) Get(ctx context.Context, key string) (string, error) {
	return GetSetting(ctx, key)
}

func (SettingsStore) Set(ctx context.Context, key, value string) error {
	return SetSetting(ctx, key, value)
}
