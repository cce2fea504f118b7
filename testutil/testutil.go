package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/usersvc/component"
)

// TestComponent is a component a test can also wipe, snapshot and roll back.
// Snapshot returns an opaque value that only the same component's Restore
// understands.
type TestComponent interface {
	component.Component
	Reset(ctx context.Context) error
	Snapshot(ctx context.Context) (interface{}, error)
	Restore(ctx context.Context, snapshot interface{}) error
}

// THelper runs TestComponent operations on behalf of one test and fails it
// on error.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T returns a helper bound to t.
func T(t testing.TB) *THelper {
	return &THelper{t: t, ctx: context.Background()}
}

// WithContext replaces the context passed to the component.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Setup starts c now and stops it in t.Cleanup.
func (h *THelper) Setup(c TestComponent) {
	h.t.Helper()
	h.must("start", c, c.Start(h.ctx))
	h.t.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.t.Errorf("stop %s: %v", c.Name(), err)
		}
	})
}

// Reset wipes c back to its initial state.
func (h *THelper) Reset(c TestComponent) {
	h.t.Helper()
	h.must("reset", c, c.Reset(h.ctx))
}

// Snapshot captures c's state for a later Restore.
func (h *THelper) Snapshot(c TestComponent) interface{} {
	h.t.Helper()
	snap, err := c.Snapshot(h.ctx)
	h.must("snapshot", c, err)
	return snap
}

// Restore rolls c back to snap.
func (h *THelper) Restore(c TestComponent, snap interface{}) {
	h.t.Helper()
	h.must("restore", c, c.Restore(h.ctx, snap))
}

func (h *THelper) must(op string, c TestComponent, err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("%s %s: %v", op, c.Name(), err)
	}
}
