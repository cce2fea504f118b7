package config

import (
	"fmt"
	"slices"

	"github.com/kbukum/usersvc/logger"
)

// Environment names accepted in ServiceConfig.Environment.
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Environments lists the accepted values of ServiceConfig.Environment.
var Environments = []string{EnvDevelopment, EnvTest, EnvStaging, EnvProduction}

// ServiceConfig is the block every settings struct embeds (squashed, so its
// keys sit at the top level of the YAML and env namespace):
//
//	type Settings struct {
//	    config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
//	    Database database.Config `yaml:"database" mapstructure:"database"`
//	}
//
// Its methods are promoted, so the embedding struct satisfies
// bootstrap.Config without extra code.
type ServiceConfig struct {
	Name        string        `yaml:"name" mapstructure:"name"`
	Environment string        `yaml:"environment" mapstructure:"environment"`
	Version     string        `yaml:"version" mapstructure:"version"`
	Debug       bool          `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config `yaml:"logging" mapstructure:"logging"`
}

func (c *ServiceConfig) GetServiceConfig() *ServiceConfig { return c }

// IsTest reports whether the service runs under the test environment.
func (c *ServiceConfig) IsTest() bool { return c.Environment == EnvTest }

// ApplyDefaults defaults to development, where Debug is on. Debug lowers an
// unset log level to debug and adds caller info.
func (c *ServiceConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = EnvDevelopment
	}
	if c.Environment == EnvDevelopment {
		c.Debug = true
	}
	if c.Logging.ServiceName == "" {
		c.Logging.ServiceName = c.Name
	}
	if c.Debug {
		if c.Logging.Level == "" {
			c.Logging.Level = "debug"
		}
		c.Logging.Caller = true
	}
	c.Logging.ApplyDefaults()
}

func (c *ServiceConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	if !slices.Contains(Environments, c.Environment) {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", Environments, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	return nil
}
