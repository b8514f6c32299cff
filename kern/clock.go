// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern

import (
	"time"

	"go.uber.org/zap"

	"github.com/rtkit/rtos/trace"
)

// SchedulerState reports whether the real-time tick source is attached and
// whether task switching is globally suspended.
type SchedulerState uint8

const (
	SchedulerNotStarted SchedulerState = iota
	SchedulerRunning
	SchedulerSuspended
)

func (s SchedulerState) String() string {
	switch s {
	case SchedulerNotStarted:
		return "not-started"
	case SchedulerRunning:
		return "running"
	case SchedulerSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// StartScheduler attaches the real-time tick source: one tick per configured
// tick period. It blocks until EndScheduler is called, so under normal
// operation it never returns. Tasks already run before StartScheduler; only
// timed blocking stands still until ticks flow.
func (k *Kernel) StartScheduler() {
	k.mu.Lock()
	if k.started || k.ended || k.closed {
		k.mu.Unlock()
		return
	}
	k.started = true
	now := k.now
	k.mu.Unlock()

	k.traceEvent(trace.SchedulerStartedRecordType, now, "")
	k.log.Info("scheduler started", zap.Duration("tickPeriod", k.cfg.TickPeriod))

	ticker := time.NewTicker(k.cfg.TickPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			k.AdvanceTicks(1)
		case <-k.done:
			return
		}
	}
}

// EndScheduler detaches the tick source and releases StartScheduler. It is
// terminal: the scheduler cannot be started again on this kernel.
func (k *Kernel) EndScheduler() {
	k.mu.Lock()
	if k.ended {
		k.mu.Unlock()
		return
	}
	k.ended = true
	k.started = false
	close(k.done)
	k.cond.Broadcast()
	now := k.now
	k.mu.Unlock()

	k.traceEvent(trace.SchedulerEndedRecordType, now, "")
}

// SuspendAll pauses all task switching. Ticks arriving while suspended are
// accumulated and applied by ResumeAll, so timed waits freeze rather than
// expire. Individually suspended tasks are not affected.
func (k *Kernel) SuspendAll() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.suspended = true
}

// ResumeAll resumes task switching after SuspendAll and applies any ticks
// that arrived in between. It reports whether the scheduler was actually
// suspended.
func (k *Kernel) ResumeAll() bool {
	k.mu.Lock()
	defer k.mu.Unlock()

	if !k.suspended {
		return false
	}

	k.suspended = false
	if k.pendingTicks > 0 {
		k.now += k.pendingTicks
		k.pendingTicks = 0
		k.nowAtomic.Store(uint64(k.now))
	}
	k.cond.Broadcast()
	return true
}

// SchedulerState returns the current scheduler state.
func (k *Kernel) SchedulerState() SchedulerState {
	k.mu.Lock()
	defer k.mu.Unlock()

	switch {
	case k.suspended:
		return SchedulerSuspended
	case k.started:
		return SchedulerRunning
	default:
		return SchedulerNotStarted
	}
}

// AdvanceTicks moves the tick clock forward by n ticks and wakes every timed
// wait. The real-time tick source calls it once per tick period; tests drive
// it directly.
func (k *Kernel) AdvanceTicks(n Tick) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.suspended {
		k.pendingTicks += n
		return
	}

	k.now += n
	k.nowAtomic.Store(uint64(k.now))
	k.cond.Broadcast()
}

// TickCount returns the current tick count.
func (k *Kernel) TickCount() Tick {
	k.mu.Lock()
	defer k.mu.Unlock()

	return k.now
}

// TickCountFromISR is the interrupt-safe tick sample: a lock-free read of the
// clock's atomic mirror.
func (k *Kernel) TickCountFromISR() Tick {
	return Tick(k.nowAtomic.Load())
}

// ConvertToTicks converts a duration into ticks by integer division against
// the tick period. Sub-tick remainders are truncated, so durations shorter
// than one tick convert to zero.
func (k *Kernel) ConvertToTicks(d time.Duration) Tick {
	return Tick(d / k.cfg.TickPeriod)
}

// ConvertToTime converts a tick count into the duration it spans, in whole
// milliseconds of the configured tick period.
func (k *Kernel) ConvertToTime(ticks Tick) time.Duration {
	return time.Duration(ticks) * k.cfg.TickPeriod
}
