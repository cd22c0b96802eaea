// Package idempotency generates and carries the key that lets a server
// recognise retried attempts of one logical call.
package idempotency

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Header is the request header that carries the key.
const Header = "Idempotency-Key"

type contextKey string

const keyContextKey contextKey = "idempotency_key"

// Key identifies one logical call. Every attempt of that call sends the
// same Key.
type Key string

// New returns a random (version 4) key.
func New() Key {
	return Key(uuid.New().String())
}

// Parse accepts a UUID in any of the forms understood by uuid.Parse and
// returns it in canonical lowercase form.
func Parse(s string) (Key, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid idempotency key %q: %w", s, err)
	}
	return Key(id.String()), nil
}

func (k Key) String() string {
	return string(k)
}

// IsZero reports whether the key is empty.
func (k Key) IsZero() bool {
	return k == ""
}

// WithKey stores key in ctx. An empty key leaves ctx unchanged.
func WithKey(ctx context.Context, key Key) context.Context {
	if key.IsZero() {
		return ctx
	}
	return context.WithValue(ctx, keyContextKey, key)
}

// FromContext returns the key stored by WithKey.
func FromContext(ctx context.Context) (Key, bool) {
	if key, ok := ctx.Value(keyContextKey).(Key); ok && !key.IsZero() {
		return key, true
	}
	return "", false
}

// Ensure returns the key in ctx or a fresh one.
func Ensure(ctx context.Context) Key {
	if key, ok := FromContext(ctx); ok {
		return key
	}
	return New()
}
