// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import "github.com/rtkit/rtos/kern"

// Kernel is the process-wide scheduler control surface. It is an explicit
// context handle: every constructor in this package takes the kernel its
// entity should live on, and there is no implicit global instance.
//
// The scheduler surface is: StartScheduler (attaches the real-time tick
// source and blocks until EndScheduler), EndScheduler, SuspendAll/ResumeAll
// (pause and resume all task switching without touching individually
// suspended tasks), SchedulerState, and the tick conversions ConvertToTicks
// and ConvertToTime, which truncate on integer division. AdvanceTicks drives
// the clock directly when no real-time tick source is attached, which is how
// tests make tick-based behavior deterministic.
type Kernel = kern.Kernel

// New creates a kernel with the given configuration and logger. The kernel's
// tasks run as soon as they are created; StartScheduler only starts real
// time flowing.
func New(cfg Config, log Logger) *Kernel {
	return kern.New(cfg, log)
}
