// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import "github.com/rtkit/rtos/kern"

// Mutex is a Semaphore specialized to binary mutual exclusion with priority
// inheritance: while a higher-priority task waits, the kernel boosts the
// holder to the waiter's priority so a low-priority holder cannot stall it
// indefinitely. At most one task holds the mutex at a time; Holder answers
// who, reliably only when the holder itself asks.
type Mutex struct {
	Semaphore
}

// NewMutex creates a mutex, initially available. Creation failure is fatal.
func NewMutex(k *Kernel) *Mutex {
	h := k.CreateMutex()
	if !h.Valid() {
		k.Logger().Error("mutex creation failed")
		panic("rtos: mutex creation failed")
	}

	return &Mutex{Semaphore{k: k, h: h, maxCount: 1}}
}

func newMutexFromHandle(k *Kernel, h kern.SemaphoreHandle) Mutex {
	return Mutex{Semaphore{k: k, h: h, maxCount: 1}}
}
