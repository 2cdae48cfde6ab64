package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// GetKV decodes the JSON value stored under key into v.
func (t *Tables) GetKV(ctx context.Context, key string, v any) error {
	var raw string
	err := t.q.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetKV stores v as JSON under key, replacing any previous value.
func (t *Tables) SetKV(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	_, err = t.q.ExecContext(ctx, `
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(b))
	return err
}

// DeleteKV removes key.
func (t *Tables) DeleteKV(ctx context.Context, key string) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}
