// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern

import (
	"container/heap"

	"go.uber.org/zap"

	"github.com/rtkit/rtos/trace"
)

// TimerHandle identifies a software timer owned by the kernel. The zero
// handle is invalid.
type TimerHandle struct {
	tm *timerState
}

// Valid reports whether the handle refers to a kernel timer.
func (h TimerHandle) Valid() bool { return h.tm != nil }

// TimerCallback runs in the timer service task, serialized against every
// other timer callback but concurrent with ordinary tasks. It must not
// block; commands it submits should use a zero block time.
type TimerCallback func(h TimerHandle)

// TimerCommand is a deferred operation on a timer, applied when the timer
// service processes it.
type TimerCommand uint8

const (
	TimerCmdStart TimerCommand = iota
	TimerCmdStop
	TimerCmdReset
	TimerCmdChangePeriod
	TimerCmdDelete
)

type timerCmd struct {
	tm     *timerState
	kind   TimerCommand
	period Tick
}

type timerState struct {
	name       string
	period     Tick
	autoReload bool
	id         any
	callback   TimerCallback

	active  bool
	expiry  Tick
	deleted bool

	index int // for heap to work more efficiently
}

// CreateTimer creates a dormant timer. The period must be at least one tick;
// a zero period is a creation refusal.
func (k *Kernel) CreateTimer(name string, period Tick, autoReload bool, id any, cb TimerCallback) TimerHandle {
	k.mu.Lock()
	if k.closed || period == 0 || cb == nil ||
		(k.cfg.MaxTimers > 0 && k.liveTimers >= k.cfg.MaxTimers) {
		live := k.liveTimers
		k.mu.Unlock()
		k.log.Warn("timer creation refused",
			zap.String("timer", name),
			zap.Uint64("period", uint64(period)),
			zap.Int("live", live),
			zap.Int("max", k.cfg.MaxTimers))
		return TimerHandle{}
	}

	tm := &timerState{
		name:       name,
		period:     period,
		autoReload: autoReload,
		id:         id,
		callback:   cb,
		index:      -1,
	}
	k.liveTimers++
	now := k.now
	k.mu.Unlock()

	k.traceEvent(trace.TimerCreatedRecordType, now, name)
	return TimerHandle{tm}
}

// SubmitTimerCommand queues a command to the timer service, blocking the
// caller up to blockTime kernel ticks while the command queue is full. The
// block time bounds submission only, never execution.
func (k *Kernel) SubmitTimerCommand(h TimerHandle, cmd TimerCommand, period Tick, blockTime Tick) bool {
	tm := h.tm
	if tm == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.currentLocked()
	deadline := k.deadlineFor(blockTime)

	for len(k.timerCmds) >= k.cfg.TimerQueueDepth {
		if k.closed || tm.deleted || t.deleted {
			return false
		}
		if k.expiredLocked(deadline) {
			t.state = StateRunning
			return false
		}
		if !k.parkLocked(t) {
			return false
		}
	}
	t.state = StateRunning

	if k.closed || tm.deleted {
		return false
	}

	k.timerCmds = append(k.timerCmds, timerCmd{tm: tm, kind: cmd, period: period})
	k.cond.Broadcast()
	return true
}

// TimerIsActive reports whether the timer is running, i.e. started and not
// yet expired or stopped.
func (k *Kernel) TimerIsActive(h TimerHandle) bool {
	tm := h.tm
	if tm == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return tm.active && !tm.deleted
}

// TimerPeriod returns the timer's current period.
func (k *Kernel) TimerPeriod(h TimerHandle) Tick {
	tm := h.tm
	if tm == nil {
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return tm.period
}

// TimerName returns the timer's name.
func (k *Kernel) TimerName(h TimerHandle) string {
	tm := h.tm
	if tm == nil {
		return ""
	}
	return tm.name
}

// SetTimerID attaches an opaque caller-defined tag to the timer. The timer
// engine itself never interprets it.
func (k *Kernel) SetTimerID(h TimerHandle, id any) {
	tm := h.tm
	if tm == nil {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	tm.id = id
}

// TimerID returns the opaque tag attached to the timer.
func (k *Kernel) TimerID(h TimerHandle) any {
	tm := h.tm
	if tm == nil {
		return nil
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return tm.id
}

// startTimerService spawns the timer service task. It is not counted
// against the task limit; it belongs to the kernel, not the application.
func (k *Kernel) startTimerService() {
	t := &taskState{
		name:     "TmrSvc",
		basePrio: k.cfg.TimerServicePriority,
		effPrio:  k.cfg.TimerServicePriority,
		state:    StateReady,
		internal: true,
	}
	go k.timerServiceLoop(t)
}

// timerServiceLoop is the single timer-service execution context: it applies
// queued commands and fires due timers, one callback at a time.
func (k *Kernel) timerServiceLoop(t *taskState) {
	id := goid()

	k.mu.Lock()
	k.byGoid[id] = t
	t.goid = id
	t.state = StateRunning

	defer func() {
		delete(k.byGoid, id)
		t.state = StateDeleted
		k.mu.Unlock()
	}()

	for !k.closed {
		progress := false

		for len(k.timerCmds) > 0 {
			cmd := k.timerCmds[0]
			k.timerCmds = k.timerCmds[1:]
			k.cond.Broadcast() // frees a slot for blocked submitters
			k.applyTimerCmdLocked(cmd)
			progress = true
		}

		for !k.suspended && k.timerHeap.Len() > 0 && k.timerHeap[0].expiry <= k.now {
			tm := k.timerHeap[0]
			if tm.autoReload {
				tm.expiry += tm.period
				heap.Fix(&k.timerHeap, 0)
			} else {
				heap.Pop(&k.timerHeap)
				tm.active = false
			}
			cb := tm.callback
			now := k.now
			name := tm.name

			k.mu.Unlock()
			k.traceEvent(trace.TimerFiredRecordType, now, name)
			k.log.Verbo("timer fired", zap.String("timer", name), zap.Uint64("tick", uint64(now)))
			cb(TimerHandle{tm})
			k.mu.Lock()

			progress = true
		}

		if progress {
			continue
		}

		t.state = StateBlocked
		k.cond.Wait()
		t.state = StateRunning
	}
}

func (k *Kernel) applyTimerCmdLocked(cmd timerCmd) {
	tm := cmd.tm
	if tm.deleted {
		return
	}

	switch cmd.kind {
	case TimerCmdStart, TimerCmdReset:
		k.scheduleTimerLocked(tm)
	case TimerCmdStop:
		k.unscheduleTimerLocked(tm)
	case TimerCmdChangePeriod:
		// changing the period also starts a dormant timer
		tm.period = cmd.period
		k.scheduleTimerLocked(tm)
	case TimerCmdDelete:
		k.unscheduleTimerLocked(tm)
		tm.deleted = true
		k.liveTimers--
		k.traceEventLocked(trace.TimerDeletedRecordType, tm.name)
	}
}

func (k *Kernel) scheduleTimerLocked(tm *timerState) {
	tm.expiry = k.now + tm.period
	if tm.active {
		heap.Fix(&k.timerHeap, tm.index)
		return
	}
	tm.active = true
	heap.Push(&k.timerHeap, tm)
}

func (k *Kernel) unscheduleTimerLocked(tm *timerState) {
	if !tm.active {
		return
	}
	heap.Remove(&k.timerHeap, tm.index)
	tm.active = false
}

func (k *Kernel) traceEventLocked(typ uint16, label string) {
	k.traceEvent(typ, k.now, label)
}

// ----------------------------------------------------------------------
type timerHeap []*timerState

func (h *timerHeap) Len() int { return len(*h) }

// Less returns if the timer at index [i] expires before the timer at index [j]
func (h *timerHeap) Less(i, j int) bool { return (*h)[i].expiry < (*h)[j].expiry }

// Swap swaps the values at index [i] and [j]
func (h *timerHeap) Swap(i, j int) {
	(*h)[i], (*h)[j] = (*h)[j], (*h)[i]
	(*h)[i].index = i
	(*h)[j].index = j
}

func (h *timerHeap) Push(x any) {
	tm := x.(*timerState)
	tm.index = h.Len()
	*h = append(*h, tm)
}

func (h *timerHeap) Pop() any {
	old := *h
	len := h.Len()
	tm := old[len-1]
	old[len-1] = nil
	*h = old[0 : len-1]
	tm.index = -1
	return tm
}
