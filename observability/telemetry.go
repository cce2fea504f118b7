package observability

import (
	"context"
	"errors"
	"fmt"

	"github.com/kbukum/usersvc/component"
	"github.com/kbukum/usersvc/logger"
)

// Component installs the configured providers on Start and flushes them on
// Stop. With nothing enabled it does nothing and the no-op globals remain.
type Component struct {
	cfg       Config
	log       *logger.Logger
	shutdowns []func(context.Context) error
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates the telemetry component.
func NewComponent(cfg Config, log *logger.Logger) *Component {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Component{cfg: cfg, log: log.WithComponent("observability")}
}

// Name implements component.Component.
func (c *Component) Name() string { return "observability" }

// Start implements component.Component.
func (c *Component) Start(ctx context.Context) error {
	if c.cfg.TracingEnabled {
		tp, err := InitTracer(ctx, c.cfg)
		if err != nil {
			return fmt.Errorf("observability: %w", err)
		}
		c.shutdowns = append(c.shutdowns, tp.Shutdown)
		c.log.Info("Tracer initialized", logger.Fields(
			"endpoint", c.cfg.Endpoint,
			"sample_rate", c.cfg.SampleRate,
		))
	}
	if c.cfg.MetricsEnabled {
		mp, err := InitMeter(ctx, c.cfg)
		if err != nil {
			return errors.Join(fmt.Errorf("observability: %w", err), c.Stop(ctx))
		}
		c.shutdowns = append(c.shutdowns, mp.Shutdown)
		c.log.Info("Meter initialized", logger.Fields(
			"endpoint", c.cfg.Endpoint,
			"interval", c.cfg.MetricsInterval.String(),
		))
	}
	return nil
}

// Stop implements component.Component.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	for i := len(c.shutdowns) - 1; i >= 0; i-- {
		errs = append(errs, c.shutdowns[i](ctx))
	}
	c.shutdowns = nil
	return errors.Join(errs...)
}

// Health implements component.Component.
func (c *Component) Health(context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.cfg.Enabled() {
		h.Message = "disabled"
	}
	return h
}

// Describe implements component.Describable.
func (c *Component) Describe() component.Description {
	details := "disabled"
	if c.cfg.Enabled() {
		details = fmt.Sprintf("otlp=%s tracing=%t metrics=%t", c.cfg.Endpoint, c.cfg.TracingEnabled, c.cfg.MetricsEnabled)
	}
	return component.Description{Name: "Telemetry", Type: "observability", Details: details}
}
