// Package kv abstracts the flat, prefix-scannable key-value store that backs
// every entity in the service. Implementations exist for Redis, Postgres,
// SQLite and an in-process map.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("kv: key not found")

// Entry is a single stored key-value pair returned by prefix scans.
type Entry struct {
	Key   string
	Value []byte
}

// Store is the persistence contract consumed by all services. Prefix scans
// return entries in no particular order; callers must not rely on it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	GetByPrefix(ctx context.Context, prefix string) ([]Entry, error)
	Ping(ctx context.Context) error
	Close() error
}

// SetJSON marshals value and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv: marshal %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}

// GetJSON loads key and unmarshals it into dest. ErrNotFound passes through.
func GetJSON(ctx context.Context, s Store, key string, dest any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("kv: unmarshal %s: %w", key, err)
	}
	return nil
}
