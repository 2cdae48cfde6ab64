package events

import (
	"context"
	"fmt"
)

// Typed adapts fn to a Handler taking payloads of type T. A payload of any
// other type fails the handler without calling fn.
func Typed[T any](fn func(ctx context.Context, payload T) error) Handler {
	return func(ctx context.Context, payload any) error {
		v, ok := payload.(T)
		if !ok {
			var want T
			return fmt.Errorf("unexpected payload %T, want %T", payload, want)
		}
		return fn(ctx, v)
	}
}

// On subscribes fn to name through Typed.
func On[T any](s Subscriber, name string, fn func(ctx context.Context, payload T) error) Unsubscribe {
	return s.Subscribe(name, Typed(fn))
}
