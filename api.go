// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package rtos binds object lifetime to kernel resource lifetime: each Task,
// Semaphore, Mutex, Queue and Timer owns exactly one kernel handle, created
// by its constructor and destroyed by its Delete method. Every entity splits
// its surface into task-context operations, which may block on kernel ticks,
// and FromISR operations, which never block and accept no wait time, so the
// blocking distinction is visible at every call site.
//
// Construction failure is fatal: a kernel that refuses a create call leaves
// no meaningful fallback, so constructors panic instead of returning an
// unusable object. Every post-construction operation reports success or
// failure as an ordinary return value, and a timeout is a normal, expected
// failure outcome.
package rtos

import "github.com/rtkit/rtos/kern"

// Logger is the structured logger the kernel and the wrapper layer report
// through. It is the kernel's interface, re-exported so applications only
// import this package.
type Logger = kern.Logger
