package application

import "context"

// IdempotencyStore remembers write keys for a limited time.
type IdempotencyStore interface {
	// TryReserve returns true if key was absent and is now reserved,
	// false when the key was already used.
	TryReserve(ctx context.Context, key string) (bool, error)
	// Release forgets a reserved key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// NoopIdempotency accepts every key; used when IDEMPOTENCY_BACKEND=none.
type NoopIdempotency struct{}

func (NoopIdempotency) TryReserve(context.Context, string) (bool, error) { return true, nil }
func (NoopIdempotency) Release(context.Context, string) error            { return nil }
