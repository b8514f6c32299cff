// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"go.uber.org/zap"

	"github.com/rtkit/rtos/kern"
)

// Semaphore is a binary or counting signal primitive. It owns its kernel
// handle; Delete releases it. Several tasks may share one Semaphore to
// coordinate, but exactly one wrapper object owns the handle.
type Semaphore struct {
	k *kern.Kernel
	h kern.SemaphoreHandle

	maxCount         uint32
	defaultBlockTime Tick
}

// NewSemaphore creates a binary semaphore pre-loaded to available: the
// constructor gives once after creation, so a fresh semaphore's count is 1.
// Creation failure is fatal.
func NewSemaphore(k *Kernel) *Semaphore {
	h := k.CreateBinarySemaphore()
	if !h.Valid() {
		k.Logger().Error("binary semaphore creation failed")
		panic("rtos: binary semaphore creation failed")
	}

	s := &Semaphore{k: k, h: h, maxCount: 1}
	s.Give()
	return s
}

// NewCountingSemaphore creates a counting semaphore with the given maximum
// and initial counts. Creation failure is fatal.
func NewCountingSemaphore(k *Kernel, maxCount, initialCount uint32) *Semaphore {
	h := k.CreateCountingSemaphore(maxCount, initialCount)
	if !h.Valid() {
		k.Logger().Error("counting semaphore creation failed",
			zap.Uint32("max", maxCount),
			zap.Uint32("initial", initialCount))
		panic("rtos: counting semaphore creation failed")
	}

	return &Semaphore{k: k, h: h, maxCount: maxCount}
}

// Delete destroys the semaphore. Deleting while other tasks block on it has
// no defined outcome and must be avoided by the caller.
func (s *Semaphore) Delete() {
	s.k.DeleteSemaphore(s.h)
}

// Take obtains the semaphore, blocking the calling task up to the given
// number of ticks. Without an argument it uses the configurable default
// block time, which starts at 0, so the bare call is non-blocking. Timeout
// is a normal failure, reported as false. Never legal from interrupt
// context.
func (s *Semaphore) Take(ticksToWait ...Tick) bool {
	return s.k.SemaTake(s.h, s.wait(ticksToWait))
}

// TakeFromISR is the non-blocking interrupt-context take. It accepts no
// wait time; an unavailable semaphore is an ordinary false result.
func (s *Semaphore) TakeFromISR() bool {
	return s.k.SemaTakeFromISR(s.h)
}

// Give releases the semaphore.
func (s *Semaphore) Give() bool {
	return s.k.SemaGive(s.h)
}

// GiveFromISR is the interrupt-context give.
func (s *Semaphore) GiveFromISR() bool {
	return s.k.SemaGiveFromISR(s.h)
}

// Holder returns the task currently holding the semaphore. It is meaningful
// mainly for mutex-family semaphores, and reliable only when the holder
// itself asks.
func (s *Semaphore) Holder() TaskHandle {
	return s.k.SemaHolder(s.h)
}

// Count returns 1 or 0 for a binary semaphore, the current count for a
// counting one.
func (s *Semaphore) Count() uint32 {
	return s.k.SemaCount(s.h)
}

// MaxCount returns the semaphore's immutable maximum count.
func (s *Semaphore) MaxCount() uint32 {
	return s.maxCount
}

// SetDefaultBlockTime changes the wait used by Take when no explicit ticks
// are given.
func (s *Semaphore) SetDefaultBlockTime(ticks Tick) {
	s.defaultBlockTime = ticks
}

// DefaultBlockTime returns the current default wait.
func (s *Semaphore) DefaultBlockTime() Tick {
	return s.defaultBlockTime
}

func (s *Semaphore) wait(ticks []Tick) Tick {
	if len(ticks) > 0 {
		return ticks[0]
	}
	return s.defaultBlockTime
}
