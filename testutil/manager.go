package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Manager owns the components shared by a whole test binary. Components
// start in the order added and stop in reverse; only those that actually
// started are stopped.
type Manager struct {
	ctx    context.Context
	stderr io.Writer

	mu         sync.Mutex
	components []TestComponent
	started    []TestComponent
}

// NewManager returns an empty Manager whose operations use ctx.
func NewManager(ctx context.Context) *Manager {
	return &Manager{ctx: ctx, stderr: os.Stderr}
}

// Add appends c to the start order.
func (m *Manager) Add(c TestComponent) {
	m.mu.Lock()
	m.components = append(m.components, c)
	m.mu.Unlock()
}

// StartAll stops at the first failure. StopAll still stops whatever
// started before it.
func (m *Manager) StartAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.components[len(m.started):] {
		if err := c.Start(m.ctx); err != nil {
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		m.started = append(m.started, c)
	}
	return nil
}

// StopAll keeps going past failures and joins them.
func (m *Manager) StopAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for i := len(m.started) - 1; i >= 0; i-- {
		if err := m.started[i].Stop(m.ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop %s: %w", m.started[i].Name(), err))
		}
	}
	m.started = nil
	return errors.Join(errs...)
}

// ResetAll resets every component and joins the failures.
func (m *Manager) ResetAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var errs []error
	for _, c := range m.components {
		if err := c.Reset(m.ctx); err != nil {
			errs = append(errs, fmt.Errorf("reset %s: %w", c.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Run brackets a test binary from TestMain and returns its exit code.
// When setup fails the tests are skipped and the code is 1; a teardown
// failure turns a passing run into 1.
//
//	func TestMain(m *testing.M) {
//	    mgr := testutil.NewManager(context.Background())
//	    mgr.Add(db)
//	    os.Exit(mgr.Run(m.Run))
//	}
func (m *Manager) Run(tests func() int) (code int) {
	defer func() {
		if err := m.StopAll(); err != nil {
			fmt.Fprintf(m.stderr, "testutil: teardown: %v\n", err)
			if code == 0 {
				code = 1
			}
		}
	}()
	if err := m.StartAll(); err != nil {
		fmt.Fprintf(m.stderr, "testutil: setup: %v\n", err)
		return 1
	}
	return tests()
}
