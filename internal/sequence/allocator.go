package sequence

import (
	"context"
	"strings"
)

// CounterPort hands out the next value of the global counter. Each call must
// be atomically isolated: two concurrent calls never observe the same value,
// and an aborted call leaves a gap, never a reissue.
type CounterPort interface {
	Next(ctx context.Context) (int64, error)
}

// Allocator is the global UID allocator consumed by every entity type.
type Allocator struct {
	counters CounterPort
}

// NewAllocator builds Allocator instance.
func NewAllocator(counters CounterPort) *Allocator {
	return &Allocator{counters: counters}
}

// Allocate returns "<PREFIX>-<n>" with n drawn from the global counter.
func (a *Allocator) Allocate(ctx context.Context, prefix string) (string, error) {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if !validPrefix(prefix) {
		return "", ErrEmptyPrefix
	}
	n, err := a.counters.Next(ctx)
	if err != nil {
		return "", err
	}
	return FormatUID(prefix, n), nil
}
