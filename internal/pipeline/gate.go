package pipeline

import "context"

// Gate bounds concurrent use of external providers. A nil gate admits
// everything, so callers never need to branch.
type Gate struct {
	slots chan struct{}
}

// NewGate returns a gate admitting at most limit holders. Non-positive
// limits return a nil gate.
func NewGate(limit int) *Gate {
	if limit <= 0 {
		return nil
	}
	return &Gate{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is free or the context is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if g == nil {
		return nil
	}
	select {
	case g.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot taken by Acquire.
func (g *Gate) Release() {
	if g == nil {
		return
	}
	select {
	case <-g.slots:
	default:
	}
}
