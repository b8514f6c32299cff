// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"go.uber.org/zap"

	"github.com/rtkit/rtos/kern"
)

// TimerCallback runs in the single timer-service execution context: never
// concurrently with another timer callback, but concurrently with ordinary
// tasks. It must not block, and any command it submits should use a zero
// block time.
type TimerCallback func(t *Timer)

// Timer is a named, one-shot or auto-reloading deferred callback. Every
// mutating operation (Start, Stop, Reset, SetPeriod, Delete) is an
// asynchronous command: it is queued to the timer service and takes effect
// when that context processes it. The block time bounds submitting the
// command, not its execution.
//
// A dormant timer becomes running on start; on expiry an auto-reloading
// timer is rescheduled for one period later, a one-shot timer returns to
// dormant. Stop makes it dormant, reset restarts it from now.
type Timer struct {
	k *kern.Kernel
	h kern.TimerHandle

	name             string
	defaultBlockTime Tick
}

// NewTimer creates a dormant timer from a name, a period in ticks, the
// auto-reload mode, an opaque id and a callback. Creation failure is fatal;
// a zero period is a creation failure.
func NewTimer(k *Kernel, name string, period Tick, autoReload bool, id any, callback TimerCallback) *Timer {
	t := &Timer{k: k, name: name}

	t.h = k.CreateTimer(name, period, autoReload, id, func(kern.TimerHandle) {
		callback(t)
	})

	if !t.h.Valid() {
		k.Logger().Error("timer creation failed",
			zap.String("timer", name),
			zap.Uint64("period", uint64(period)))
		panic("rtos: timer creation failed: " + name)
	}
	return t
}

// Delete submits the delete command with the default block time and
// releases the handle. Failure to submit is fatal: the kernel would keep a
// timer alive whose owner is gone.
func (t *Timer) Delete() {
	if !t.k.SubmitTimerCommand(t.h, kern.TimerCmdDelete, 0, t.defaultBlockTime) {
		t.k.Logger().Error("timer deletion failed", zap.String("timer", t.name))
		panic("rtos: timer deletion failed: " + t.name)
	}
}

// IsActive reports whether the timer is running.
func (t *Timer) IsActive() bool {
	return t.k.TimerIsActive(t.h)
}

// Start schedules the timer to expire one period from now. Without an
// argument it uses the default block time for command submission.
func (t *Timer) Start(blockTime ...Tick) bool {
	return t.k.SubmitTimerCommand(t.h, kern.TimerCmdStart, 0, t.wait(blockTime))
}

// Stop makes the timer dormant.
func (t *Timer) Stop(blockTime ...Tick) bool {
	return t.k.SubmitTimerCommand(t.h, kern.TimerCmdStop, 0, t.wait(blockTime))
}

// Reset restarts the timer from now, whether running or dormant.
func (t *Timer) Reset(blockTime ...Tick) bool {
	return t.k.SubmitTimerCommand(t.h, kern.TimerCmdReset, 0, t.wait(blockTime))
}

// SetPeriod changes the timer's period and starts it if dormant.
func (t *Timer) SetPeriod(newPeriod Tick, blockTime ...Tick) bool {
	return t.k.SubmitTimerCommand(t.h, kern.TimerCmdChangePeriod, newPeriod, t.wait(blockTime))
}

// Period returns the timer's current period.
func (t *Timer) Period() Tick {
	return t.k.TimerPeriod(t.h)
}

// SetID attaches an opaque caller-defined tag. The timer engine never
// interprets it.
func (t *Timer) SetID(id any) {
	t.k.SetTimerID(t.h, id)
}

// ID returns the opaque tag.
func (t *Timer) ID() any {
	return t.k.TimerID(t.h)
}

// Name returns the timer's immutable name.
func (t *Timer) Name() string {
	return t.k.TimerName(t.h)
}

// SetDefaultBlockTime changes the block time used when a command is
// submitted without an explicit one.
func (t *Timer) SetDefaultBlockTime(ticks Tick) {
	t.defaultBlockTime = ticks
}

// DefaultBlockTime returns the current default block time.
func (t *Timer) DefaultBlockTime() Tick {
	return t.defaultBlockTime
}

func (t *Timer) wait(ticks []Tick) Tick {
	if len(ticks) > 0 {
		return ticks[0]
	}
	return t.defaultBlockTime
}
