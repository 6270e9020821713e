// Copyright 2026 The Shopfloor Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/shopfloor-works/shopfloor/machine"
)

// Config is the aggregator's configuration.
type Config struct {
	// Listen is the fan-in subscribe endpoint the server binds.
	// Port 0 requests an OS-assigned port.
	Listen string `yaml:"listen"`

	// Sinks are the downstream push endpoints, in forward order.
	Sinks []string `yaml:"sinks"`

	// Machines maps machine name to its poller configuration. The key
	// doubles as the pub/sub topic.
	Machines map[string]MachineConfig `yaml:"machines"`

	// MetricsListen is the optional prometheus listen address
	// (":9090"). Empty disables the metrics endpoint.
	MetricsListen string `yaml:"metrics_listen"`
}

// MachineConfig is one machine's poller settings.
type MachineConfig struct {
	// Driver selects the device driver ("lathe", "haas", "opcuamill").
	Driver string `yaml:"driver"`

	// FailHard selects the poll-failure policy: true terminates the
	// poller on the first error, false drops the sample and continues.
	FailHard bool `yaml:"fail_hard"`

	// Params carries driver-specific settings verbatim (transport
	// addresses, macro tables, node tables).
	Params map[string]any `yaml:"params"`
}

// Default returns the default configuration. The config file is still
// required; defaults only give optional fields sensible values.
func Default() *Config {
	return &Config{
		Listen: "tcp://127.0.0.1:0",
	}
}

// Load loads configuration from the SHOPFLOOR_CONFIG environment
// variable. There are no fallbacks: if the variable is not set, Load
// fails.
func Load() (*Config, error) {
	path := os.Getenv("SHOPFLOOR_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("SHOPFLOOR_CONFIG environment variable not set; " +
			"set it to the path of your shopfloor.yaml config file, or use --config flag")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path and
// validates it.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for completeness. All problems
// are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen endpoint is required"))
	}
	if len(c.Sinks) == 0 {
		errs = append(errs, errors.New("at least one sink endpoint is required"))
	}
	for i, sink := range c.Sinks {
		if sink == "" {
			errs = append(errs, fmt.Errorf("sink %d: endpoint is empty", i))
		}
	}
	if len(c.Machines) == 0 {
		errs = append(errs, errors.New("at least one machine is required"))
	}
	for name, m := range c.Machines {
		if name == "" {
			errs = append(errs, errors.New("machine name must not be empty"))
		}
		if m.Driver == "" {
			errs = append(errs, fmt.Errorf("machine %q: driver is required", name))
		}
	}

	return errors.Join(errs...)
}

// MachineConfigs flattens the machine map into the server's slice
// form, sorted by name so poller construction order is deterministic.
func (c *Config) MachineConfigs() []machine.Config {
	names := make([]string, 0, len(c.Machines))
	for name := range c.Machines {
		names = append(names, name)
	}
	sort.Strings(names)

	configs := make([]machine.Config, 0, len(names))
	for _, name := range names {
		m := c.Machines[name]
		configs = append(configs, machine.Config{
			Name:     name,
			Driver:   m.Driver,
			FailHard: m.FailHard,
			Params:   m.Params,
		})
	}
	return configs
}
