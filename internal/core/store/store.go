// Package store provides the durable key/value storage the client uses for
// state that must survive restarts: the refresh token, the local account
// directory, and the locally issued session token.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned when a key has no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a small durable key/value surface. Implementations must be safe
// for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// SaveJSON stores any JSON-serializable value at the provided key.
func SaveJSON(ctx context.Context, s Store, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(b))
}

// GetJSON retrieves a JSON value from the provided key and unmarshals it into the target.
func GetJSON(ctx context.Context, s Store, key string, target any) error {
	v, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(v), target)
}
