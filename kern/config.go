// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTickPeriod      = time.Millisecond
	defaultTimerQueueDepth = 10
	defaultTimerPriority   = Priority(31)
)

// Config fixes the build-time constants of the kernel: the duration of one
// tick, the resource limits per entity kind (zero means unlimited) and the
// timer service parameters. A zero Config is usable; withDefaults fills in
// the defaults.
type Config struct {
	TickPeriod time.Duration

	MaxTasks      int
	MaxSemaphores int
	MaxQueues     int
	MaxTimers     int

	TimerQueueDepth      int
	TimerServicePriority Priority

	// TraceCapacity bounds the kernel event journal; zero disables tracing.
	TraceCapacity int
}

// fileConfig is the on-disk schema. The tick period is a Go duration string
// ("1ms", "100us"); everything else maps directly.
type fileConfig struct {
	TickPeriod           string   `yaml:"tick_period"`
	MaxTasks             int      `yaml:"max_tasks"`
	MaxSemaphores        int      `yaml:"max_semaphores"`
	MaxQueues            int      `yaml:"max_queues"`
	MaxTimers            int      `yaml:"max_timers"`
	TimerQueueDepth      int      `yaml:"timer_queue_depth"`
	TimerServicePriority Priority `yaml:"timer_service_priority"`
	TraceCapacity        int      `yaml:"trace_capacity"`
}

// DefaultConfig returns the configuration the kernel runs with when the
// caller does not override anything.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.TickPeriod <= 0 {
		c.TickPeriod = defaultTickPeriod
	}
	if c.TimerQueueDepth <= 0 {
		c.TimerQueueDepth = defaultTimerQueueDepth
	}
	if c.TimerServicePriority == 0 {
		c.TimerServicePriority = defaultTimerPriority
	}
	return c
}

// LoadConfig reads a YAML kernel configuration. Fields absent from the file
// keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed reading kernel config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("failed parsing kernel config %s: %w", path, err)
	}

	cfg := Config{
		MaxTasks:             fc.MaxTasks,
		MaxSemaphores:        fc.MaxSemaphores,
		MaxQueues:            fc.MaxQueues,
		MaxTimers:            fc.MaxTimers,
		TimerQueueDepth:      fc.TimerQueueDepth,
		TimerServicePriority: fc.TimerServicePriority,
		TraceCapacity:        fc.TraceCapacity,
	}
	if fc.TickPeriod != "" {
		d, err := time.ParseDuration(fc.TickPeriod)
		if err != nil {
			return Config{}, fmt.Errorf("invalid tick_period in %s: %w", path, err)
		}
		cfg.TickPeriod = d
	}

	return cfg.withDefaults(), nil
}
