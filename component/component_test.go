package component

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/kbukum/usersvc/logger"
)

// mockComponent implements Component for testing.
type mockComponent struct {
	name       string
	startErr   error
	stopErr    error
	health     Health
	startOrder *[]string
	stopOrder  *[]string
	stopCtx    context.Context
}

func (m *mockComponent) Name() string { return m.name }
func (m *mockComponent) Start(ctx context.Context) error {
	if m.startOrder != nil {
		*m.startOrder = append(*m.startOrder, m.name)
	}
	return m.startErr
}
func (m *mockComponent) Stop(ctx context.Context) error {
	m.stopCtx = ctx
	if m.stopOrder != nil {
		*m.stopOrder = append(*m.stopOrder, m.name)
	}
	return m.stopErr
}
func (m *mockComponent) Health(ctx context.Context) Health {
	return m.health
}

type describedComponent struct {
	mockComponent
}

func (d *describedComponent) Describe() Description {
	return Description{Name: "Database", Type: "database", Details: "sqlite"}
}

func newTestRegistry() *Registry {
	return NewRegistry(logger.NewNop())
}

func TestRegisterDuplicate(t *testing.T) {
	r := newTestRegistry()
	if err := r.Register(&mockComponent{name: "database"}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := r.Register(&mockComponent{name: "database"}); err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestGet(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&mockComponent{name: "database"})

	if got := r.Get("database"); got == nil || got.Name() != "database" {
		t.Fatalf("Get(database) = %v", got)
	}
	if got := r.Get("missing"); got != nil {
		t.Error("expected nil for unregistered component")
	}
	if n := len(r.All()); n != 1 {
		t.Errorf("All() returned %d components, want 1", n)
	}
}

func TestStartAllOrder(t *testing.T) {
	r := newTestRegistry()
	order := []string{}

	_ = r.Register(&describedComponent{mockComponent{name: "database", startOrder: &order}})
	_ = r.Register(&mockComponent{name: "http-server", startOrder: &order})

	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll failed: %v", err)
	}
	if len(order) != 2 || order[0] != "database" || order[1] != "http-server" {
		t.Errorf("expected start order [database http-server], got %v", order)
	}

	// already started components are not started twice
	if err := r.StartAll(context.Background()); err != nil {
		t.Fatalf("second StartAll failed: %v", err)
	}
	if len(order) != 2 {
		t.Errorf("expected no restarts, got %v", order)
	}
}

func TestStartAllError(t *testing.T) {
	r := newTestRegistry()
	startErr := fmt.Errorf("connection refused")
	_ = r.Register(&mockComponent{name: "database", startErr: startErr})

	err := r.StartAll(context.Background())
	if !errors.Is(err, startErr) {
		t.Errorf("expected wrapped start error, got %v", err)
	}
}

func TestStopAllReverseOrder(t *testing.T) {
	r := newTestRegistry()
	order := []string{}

	_ = r.Register(&mockComponent{name: "database", stopOrder: &order})
	_ = r.Register(&mockComponent{name: "tracer", stopOrder: &order})
	_ = r.Register(&mockComponent{name: "http-server", stopOrder: &order})

	_ = r.StartAll(context.Background())
	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}

	want := []string{"http-server", "tracer", "database"}
	if fmt.Sprint(order) != fmt.Sprint(want) {
		t.Errorf("expected stop order %v, got %v", want, order)
	}
}

func TestStopAllSkipsUnstarted(t *testing.T) {
	r := newTestRegistry()
	order := []string{}
	_ = r.Register(&mockComponent{name: "database", stopOrder: &order})

	if err := r.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll failed: %v", err)
	}
	if len(order) != 0 {
		t.Errorf("expected 0 stops for unstarted components, got %d", len(order))
	}
}

func TestStopAllJoinsErrors(t *testing.T) {
	r := newTestRegistry()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	_ = r.Register(&mockComponent{name: "a", stopErr: errA})
	_ = r.Register(&mockComponent{name: "b", stopErr: errB})
	_ = r.StartAll(context.Background())

	err := r.StopAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both stop errors, got %v", err)
	}
}

func TestStopAllAppliesTimeout(t *testing.T) {
	r := newTestRegistry()
	r.SetStopTimeout(time.Second)
	c := &mockComponent{name: "database"}
	_ = r.Register(c)
	_ = r.StartAll(context.Background())
	_ = r.StopAll(context.Background())

	deadline, ok := c.stopCtx.Deadline()
	if !ok {
		t.Fatal("expected stop context with deadline")
	}
	if time.Until(deadline) > time.Second {
		t.Errorf("deadline too far in the future: %v", deadline)
	}
}

func TestHealthAll(t *testing.T) {
	r := newTestRegistry()
	_ = r.Register(&mockComponent{
		name:   "database",
		health: Health{Name: "database", Status: StatusHealthy},
	})
	_ = r.Register(&mockComponent{
		name:   "http-server",
		health: Health{Name: "http-server", Status: StatusUnhealthy, Message: "not initialized"},
	})

	results := r.HealthAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Status != StatusHealthy {
		t.Errorf("expected database healthy, got %s", results[0].Status)
	}
	if results[1].Status != StatusUnhealthy {
		t.Errorf("expected http-server unhealthy, got %s", results[1].Status)
	}
}
