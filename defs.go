// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import "github.com/rtkit/rtos/kern"

// Kernel-level types, re-exported so call sites stay in one vocabulary.
type (
	Tick           = kern.Tick
	Priority       = kern.Priority
	TaskHandle     = kern.TaskHandle
	TaskState      = kern.TaskState
	TaskStatus     = kern.TaskStatus
	SchedulerState = kern.SchedulerState
	Config         = kern.Config
)

const (
	NoWait  = kern.NoWait
	Forever = kern.Forever
)

const (
	StateInvalid   = kern.StateInvalid
	StateReady     = kern.StateReady
	StateRunning   = kern.StateRunning
	StateBlocked   = kern.StateBlocked
	StateSuspended = kern.StateSuspended
	StateDeleted   = kern.StateDeleted
)

const (
	SchedulerNotStarted = kern.SchedulerNotStarted
	SchedulerRunning    = kern.SchedulerRunning
	SchedulerSuspended  = kern.SchedulerSuspended
)

// DefaultConfig returns the kernel configuration defaults.
func DefaultConfig() Config {
	return kern.DefaultConfig()
}

// LoadConfig reads a YAML kernel configuration file.
func LoadConfig(path string) (Config, error) {
	return kern.LoadConfig(path)
}
