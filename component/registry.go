package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/usersvc/logger"
)

// DefaultStopTimeout bounds how long a single component may take to stop.
const DefaultStopTimeout = 10 * time.Second

type entry struct {
	Component
	started bool
}

// Registry starts components in registration order and stops them in
// reverse. StartAll may be called again after more registrations; it only
// starts what is not running yet.
type Registry struct {
	mu          sync.RWMutex
	entries     []*entry
	log         *logger.Logger
	stopTimeout time.Duration
}

// NewRegistry returns an empty registry. A nil log means the global logger.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Registry{log: log.WithComponent("registry"), stopTimeout: DefaultStopTimeout}
}

// SetStopTimeout sets the per-component stop deadline. Non-positive values
// are ignored.
func (r *Registry) SetStopTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.stopTimeout = d
	r.mu.Unlock()
}

func (r *Registry) find(name string) *entry {
	for _, e := range r.entries {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

// Register appends c. Dependencies must be registered before their users.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.find(c.Name()) != nil {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	r.entries = append(r.entries, &entry{Component: c})
	r.log.Debug("Component registered", map[string]interface{}{logger.FieldComponent: c.Name()})
	return nil
}

// StartAll stops at the first failure and leaves earlier components
// running. StopAll releases them.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.started {
			continue
		}
		fields := map[string]interface{}{logger.FieldComponent: e.Name()}
		if err := e.Start(ctx); err != nil {
			fields[logger.FieldError] = err.Error()
			r.log.Error("Component start failed", fields)
			return fmt.Errorf("failed to start %s: %w", e.Name(), err)
		}
		e.started = true

		if d, ok := e.Component.(Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			if desc.Details != "" {
				fields["details"] = desc.Details
			}
		}
		r.log.Info("Component started", fields)
	}
	return nil
}

// StopAll stops every started component, newest first, each under its own
// deadline. It keeps going past failures and joins them.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		e := r.entries[i]
		if !e.started {
			continue
		}
		e.started = false
		if err := r.stop(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", e.Name(), err))
			r.log.Error("Component stop failed", map[string]interface{}{
				logger.FieldComponent: e.Name(),
				logger.FieldError:     err.Error(),
			})
			continue
		}
		r.log.Info("Component stopped", map[string]interface{}{logger.FieldComponent: e.Name()})
	}
	return errors.Join(errs...)
}

func (r *Registry) stop(ctx context.Context, e *entry) error {
	ctx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()
	return e.Stop(ctx)
}

// HealthAll asks every component, started or not, in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Health, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Health(ctx)
	}
	return out
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e := r.find(name); e != nil {
		return e.Component
	}
	return nil
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Component, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.Component
	}
	return out
}
