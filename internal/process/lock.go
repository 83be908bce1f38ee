package process

import "context"

// Lock is a single-slot benchmark lock. Holding it means no other benchmark
// child may be running: the workload sizing assumes one child owns every
// processing unit on the host.
type Lock struct {
	slot chan struct{}
}

// NewLock creates an unheld lock.
func NewLock() *Lock {
	return &Lock{slot: make(chan struct{}, 1)}
}

// Acquire blocks until the lock is free or ctx is done.
// The returned release func must be called exactly once.
func (l *Lock) Acquire(ctx context.Context) (release func(), err error) {
	select {
	case l.slot <- struct{}{}:
		return func() { <-l.slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Held reports whether a benchmark currently owns the lock.
func (l *Lock) Held() bool {
	return len(l.slot) == 1
}
