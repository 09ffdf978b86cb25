// Package pipeline: standard stages for common pipeline patterns.

package pipeline

import (
	"context"
	"fmt"
)

// Identity returns a stage that passes the input through unchanged.
// Useful as a no-op or as a placeholder in a pipeline definition.
func Identity() Stage {
	return func(ctx context.Context, input interface{}) (interface{}, error) {
		return input, nil
	}
}

// Tap returns a stage that calls fn(ctx, input) then passes input through unchanged.
// Use for logging, metrics, or side effects without changing the value.
func Tap(fn func(context.Context, interface{})) Stage {
	return func(ctx context.Context, input interface{}) (interface{}, error) {
		fn(ctx, input)
		return input, nil
	}
}

// Validate returns a stage that passes input through only if check(v) returns nil.
// Otherwise the check's error is returned unchanged so typed errors survive.
// Input must be of type T; type assertion failure returns an error.
func Validate[T any](check func(T) error) Stage {
	return func(ctx context.Context, input interface{}) (interface{}, error) {
		v, ok := input.(T)
		if !ok {
			var zero T
			return nil, fmt.Errorf("validate: expected %T, got %T", zero, input)
		}
		if err := check(v); err != nil {
			return nil, err
		}
		return input, nil
	}
}
