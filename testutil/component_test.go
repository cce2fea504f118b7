package testutil_test

import (
	"context"

	"github.com/kbukum/usersvc/component"
	"github.com/kbukum/usersvc/testutil"
)

// mockComponent is a test implementation of TestComponent.
type mockComponent struct {
	name        string
	log         *[]string
	started     bool
	stopped     bool
	resetCalled bool
	state       string
	startErr    error
	stopErr     error
	resetErr    error
}

var _ testutil.TestComponent = (*mockComponent)(nil)

func newMockComponent(name string, log *[]string) *mockComponent {
	return &mockComponent{name: name, log: log}
}

func (m *mockComponent) record(event string) {
	if m.log != nil {
		*m.log = append(*m.log, event+":"+m.name)
	}
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(context.Context) error {
	m.record("start")
	if m.startErr != nil {
		return m.startErr
	}
	m.started, m.stopped = true, false
	return nil
}

func (m *mockComponent) Stop(context.Context) error {
	m.record("stop")
	if m.stopErr != nil {
		return m.stopErr
	}
	m.stopped, m.started = true, false
	return nil
}

func (m *mockComponent) Health(context.Context) component.Health {
	if !m.started {
		return component.Health{Name: m.name, Status: component.StatusUnhealthy}
	}
	return component.Health{Name: m.name, Status: component.StatusHealthy}
}

func (m *mockComponent) Reset(context.Context) error {
	m.resetCalled = true
	if m.resetErr != nil {
		return m.resetErr
	}
	m.state = ""
	return nil
}

func (m *mockComponent) Snapshot(context.Context) (interface{}, error) {
	return m.state, nil
}

func (m *mockComponent) Restore(_ context.Context, snapshot interface{}) error {
	m.state = snapshot.(string)
	return nil
}
