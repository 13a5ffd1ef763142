// Package inflight makes sure a given key is worked on by at most one
// caller at a time, within the process and optionally across instances.
package inflight

import (
	"context"
	"errors"

	"golang.org/x/sync/singleflight"
)

// ErrLocked is returned when another instance holds the lock for a key.
var ErrLocked = errors.New("key is locked by another worker")

// Locker guards a key across processes.
type Locker interface {
	// Acquire returns a release func, or ErrLocked if the key is already held.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Group collapses concurrent calls for the same key into one execution.
type Group[T any] struct {
	sf     singleflight.Group
	locker Locker
}

// NewGroup creates a group. locker may be nil for in-process de-duplication only.
func NewGroup[T any](locker Locker) *Group[T] {
	return &Group[T]{locker: locker}
}

// Do runs fn once for all concurrent callers with the same key. shared is
// true for callers that received the result of another caller's run.
// fn runs detached from the caller's cancellation so that waiters are not
// aborted when the first caller goes away; ctx only bounds the wait.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(context.Context) (T, error)) (v T, shared bool, err error) {
	runCtx := context.WithoutCancel(ctx)
	leader := false

	ch := g.sf.DoChan(key, func() (any, error) {
		leader = true
		if g.locker != nil {
			release, err := g.locker.Acquire(runCtx, key)
			if err != nil {
				var zero T
				return zero, err
			}
			defer release()
		}
		return fn(runCtx)
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero T
			return zero, res.Shared && !leader, res.Err
		}
		return res.Val.(T), res.Shared && !leader, nil
	}
}
