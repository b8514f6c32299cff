// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/rtkit/rtos/trace"
)

// TaskState is the scheduling state of a task.
type TaskState uint8

const (
	StateInvalid TaskState = iota
	StateReady
	StateRunning
	StateBlocked
	StateSuspended
	StateDeleted
)

func (s TaskState) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateBlocked:
		return "blocked"
	case StateSuspended:
		return "suspended"
	case StateDeleted:
		return "deleted"
	default:
		return "invalid"
	}
}

// TaskFunc is the entry point of a task. It receives the task's own handle
// and the opaque parameter bound at creation.
type TaskFunc func(h TaskHandle, param any)

// TaskHandle identifies a task owned by the kernel. The zero handle is
// invalid and is what creation returns when the kernel refuses.
type TaskHandle struct {
	t *taskState
}

// Valid reports whether the handle refers to a kernel task.
func (h TaskHandle) Valid() bool { return h.t != nil }

type taskState struct {
	name      string
	stackSize uint32

	basePrio Priority
	effPrio  Priority

	state      TaskState
	suspendReq bool
	deleted    bool

	external bool
	internal bool
	goid     uint64
}

// TaskStatus is the introspection snapshot of a task. State is StateInvalid
// unless the snapshot was taken with an explicit state lookup.
type TaskStatus struct {
	Handle         TaskHandle
	Name           string
	Priority       Priority
	BasePriority   Priority
	State          TaskState
	FreeStackWords uint32
}

// CreateTask binds fn, a display name, a stack budget in words, an opaque
// parameter and a priority to a new task and starts it on its own goroutine.
// It returns the zero handle when the kernel refuses (task limit reached or
// kernel closed).
func (k *Kernel) CreateTask(fn TaskFunc, name string, stackSize uint32, param any, prio Priority) TaskHandle {
	k.mu.Lock()
	if k.closed || (k.cfg.MaxTasks > 0 && k.liveTasks >= k.cfg.MaxTasks) {
		live := k.liveTasks
		k.mu.Unlock()
		k.log.Warn("task creation refused",
			zap.String("task", name),
			zap.Int("live", live),
			zap.Int("max", k.cfg.MaxTasks))
		return TaskHandle{}
	}

	t := &taskState{
		name:      name,
		stackSize: stackSize,
		basePrio:  prio,
		effPrio:   prio,
		state:     StateReady,
	}
	k.liveTasks++
	now := k.now
	k.mu.Unlock()

	k.traceEvent(trace.TaskCreatedRecordType, now, name)
	k.log.Debug("task created", zap.String("task", name), zap.Uint32("priority", uint32(prio)))

	h := TaskHandle{t}
	go k.runTask(h, fn, param)
	return h
}

func (k *Kernel) runTask(h TaskHandle, fn TaskFunc, param any) {
	t := h.t
	id := goid()

	k.mu.Lock()
	k.byGoid[id] = t
	t.goid = id
	if t.state == StateReady {
		t.state = StateRunning
	}
	k.mu.Unlock()

	defer func() {
		k.mu.Lock()
		delete(k.byGoid, id)
		exited := !t.deleted
		if exited {
			t.deleted = true
			t.state = StateDeleted
			if !t.internal {
				k.liveTasks--
			}
		}
		now := k.now
		k.mu.Unlock()
		if exited {
			k.traceEvent(trace.TaskDeletedRecordType, now, t.name)
		}
	}()

	fn(h, param)
}

// DeleteTask removes the task from scheduling. The underlying goroutine is
// not killed; it observes the deleted flag at its next suspension point and
// every subsequent blocking call fails.
func (k *Kernel) DeleteTask(h TaskHandle) {
	t := h.t
	if t == nil {
		return
	}

	k.mu.Lock()
	if t.deleted {
		k.mu.Unlock()
		return
	}
	t.deleted = true
	t.state = StateDeleted
	if !t.external && !t.internal {
		k.liveTasks--
	}
	k.cond.Broadcast()
	now := k.now
	k.mu.Unlock()

	k.traceEvent(trace.TaskDeletedRecordType, now, t.name)
}

// Delay blocks the calling task for at least ticks kernel ticks.
func (k *Kernel) Delay(ticks Tick) {
	if ticks == 0 {
		runtime.Gosched()
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.currentLocked()
	deadline := k.deadlineFor(ticks)
	k.sleepUntilLocked(t, deadline)
}

// DelayUntil blocks the calling task until *previousWake + increment and
// then stores the new wake tick back, so periodic tasks run free of drift.
// If the target tick already passed, it returns without blocking.
func (k *Kernel) DelayUntil(previousWake *Tick, increment Tick) {
	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.currentLocked()
	target := *previousWake + increment
	k.sleepUntilLocked(t, target)
	*previousWake = target
}

func (k *Kernel) sleepUntilLocked(t *taskState, deadline Tick) {
	for k.now < deadline && !k.closed && !t.deleted {
		if !k.parkLocked(t) {
			break
		}
	}
	if !t.deleted {
		t.state = StateRunning
	}
}

// Yield relinquishes the remaining time slice of the calling task.
func (k *Kernel) Yield() {
	k.mu.Lock()
	t := k.currentLocked()
	t.state = StateReady
	k.mu.Unlock()

	runtime.Gosched()

	k.mu.Lock()
	if !t.deleted && t.state == StateReady {
		t.state = StateRunning
	}
	k.mu.Unlock()
}

// TaskPriority returns the task's live priority, including any boost from
// priority inheritance.
func (k *Kernel) TaskPriority(h TaskHandle) Priority {
	t := h.t
	if t == nil {
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return t.effPrio
}

// SetTaskPriority changes the task's base priority. A live inheritance boost
// above the new base is preserved.
func (k *Kernel) SetTaskPriority(h TaskHandle, p Priority) {
	t := h.t
	if t == nil {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	t.basePrio = p
	k.recomputePriorityLocked(t)
	k.cond.Broadcast()
}

// SuspendTask removes the task from scheduling regardless of priority.
// Suspension takes effect at the task's next suspension point; a task
// suspending itself blocks immediately. Suspends do not nest.
func (k *Kernel) SuspendTask(h TaskHandle) {
	t := h.t
	if t == nil {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if t.deleted {
		return
	}

	t.suspendReq = true
	k.cond.Broadcast()

	if t.goid == goid() {
		for t.suspendReq && !k.closed && !t.deleted {
			t.state = StateSuspended
			k.cond.Wait()
		}
		if !t.deleted {
			t.state = StateRunning
		}
	}
}

// ResumeTask re-admits a suspended task. A single resume undoes any number
// of suspends.
func (k *Kernel) ResumeTask(h TaskHandle) {
	k.resumeTask(h)
}

// ResumeTaskFromISR is the interrupt-context resume. It reports whether the
// task was actually suspended.
func (k *Kernel) ResumeTaskFromISR(h TaskHandle) bool {
	return k.resumeTask(h)
}

func (k *Kernel) resumeTask(h TaskHandle) bool {
	t := h.t
	if t == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	wasSuspended := t.suspendReq
	t.suspendReq = false
	if t.state == StateSuspended {
		t.state = StateReady
	}
	k.cond.Broadcast()
	return wasSuspended
}

// TaskInfo takes a status snapshot. When queryState is false the State field
// is left StateInvalid, which skips the state lookup.
//
// FreeStackWords reports the configured stack budget: goroutine stacks grow
// on demand, so the kernel never consumes headroom out of the budget.
func (k *Kernel) TaskInfo(h TaskHandle, queryState bool) TaskStatus {
	t := h.t
	if t == nil {
		return TaskStatus{State: StateInvalid}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	st := TaskStatus{
		Handle:         h,
		Name:           t.name,
		Priority:       t.effPrio,
		BasePriority:   t.basePrio,
		State:          StateInvalid,
		FreeStackWords: t.stackSize,
	}
	if queryState {
		st.State = t.state
	}
	return st
}

// TaskState returns the task's scheduling state without a full snapshot.
func (k *Kernel) TaskState(h TaskHandle) TaskState {
	t := h.t
	if t == nil {
		return StateInvalid
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return t.state
}

// TaskName returns the task's display name.
func (k *Kernel) TaskName(h TaskHandle) string {
	t := h.t
	if t == nil {
		return ""
	}
	return t.name
}

// recomputePriorityLocked restores the task's effective priority to its base
// and re-applies the highest boost from waiters of mutexes it holds.
func (k *Kernel) recomputePriorityLocked(t *taskState) {
	eff := t.basePrio
	for s := range k.semas {
		if !s.mutex || s.holder != t {
			continue
		}
		for _, w := range s.waiters {
			if w.effPrio > eff {
				eff = w.effPrio
			}
		}
	}
	t.effPrio = eff
}
