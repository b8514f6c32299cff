// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"go.uber.org/zap"

	"github.com/rtkit/rtos/kern"
)

// TaskFunc is a task's entry point. It receives the owning Task and the
// opaque parameter bound at creation. Ownership of the parameter stays with
// the caller of NewTask.
type TaskFunc func(t *Task, param any)

// Task wraps a schedulable unit of execution. The wrapper owns the kernel
// task handle for its entire lifetime; Delete releases it.
type Task struct {
	k *kern.Kernel
	h kern.TaskHandle

	name      string
	stackSize uint32

	currentTickCount Tick
	status           TaskStatus
}

// NewTask creates a task from an entry point, a display name, a stack budget
// in words, an optional opaque parameter and a priority. Higher numeric
// priority means higher priority. Creation failure is fatal.
func NewTask(k *Kernel, fn TaskFunc, name string, stackSize uint32, param any, priority Priority) *Task {
	t := &Task{
		k:         k,
		name:      name,
		stackSize: stackSize,
	}

	t.h = k.CreateTask(func(_ kern.TaskHandle, p any) {
		fn(t, p)
	}, name, stackSize, param, priority)

	if !t.h.Valid() {
		k.Logger().Error("task creation failed", zap.String("task", name))
		panic("rtos: task creation failed: " + name)
	}
	return t
}

// Handle returns the kernel handle, for comparison against ownership
// queries such as Semaphore.Holder.
func (t *Task) Handle() TaskHandle {
	return t.h
}

// Delete removes the task from scheduling and releases its handle.
func (t *Task) Delete() {
	t.k.DeleteTask(t.h)
}

// Delay blocks the calling task for at least ticksToDelay kernel ticks. The
// actual delay depends on tick granularity.
func (t *Task) Delay(ticksToDelay Tick) {
	t.k.Delay(ticksToDelay)
}

// DelayUntilFrom blocks until *previousWakeTime + ticksToIncrement and
// writes the new wake tick back through the pointer. The caller owns the
// last-wake value, so several delays can share one time base.
func (t *Task) DelayUntilFrom(previousWakeTime *Tick, ticksToIncrement Tick) {
	t.k.DelayUntil(previousWakeTime, ticksToIncrement)
}

// DelayUntil is DelayUntilFrom with the last-wake value kept inside the
// task, seeded by UpdateTickCount. Used for jitter-free periodic execution.
func (t *Task) DelayUntil(ticksToIncrement Tick) {
	t.DelayUntilFrom(&t.currentTickCount, ticksToIncrement)
}

// Priority returns the live kernel-assigned priority, including any boost
// from priority inheritance.
func (t *Task) Priority() Priority {
	return t.k.TaskPriority(t.h)
}

// SetPriority changes the task's base priority.
func (t *Task) SetPriority(newPriority Priority) {
	t.k.SetTaskPriority(t.h, newPriority)
}

// Suspend removes the task from scheduling entirely, regardless of
// priority. Suspends do not nest: one resume undoes any number of suspends.
func (t *Task) Suspend() {
	t.k.SuspendTask(t.h)
}

// Resume re-admits a suspended task.
func (t *Task) Resume() {
	t.k.ResumeTask(t.h)
}

// ResumeFromISR is the interrupt-context resume. It reports whether the
// task was actually suspended.
func (t *Task) ResumeFromISR() bool {
	return t.k.ResumeTaskFromISR(t.h)
}

// Yield relinquishes the remaining time slice and requeues the task at its
// current priority.
func (t *Task) Yield() {
	t.k.Yield()
}

// Info returns a status snapshot with the State field left StateInvalid,
// skipping the scheduler-level state lookup.
func (t *Task) Info() TaskStatus {
	t.status = t.k.TaskInfo(t.h, false)
	return t.status
}

// InfoWithState returns a status snapshot including the scheduling state.
// It is slower than Info because of the state lookup.
func (t *Task) InfoWithState() TaskStatus {
	t.status = t.k.TaskInfo(t.h, true)
	return t.status
}

// FreeStackSpace forces a fresh snapshot and returns only the stack
// headroom, in words.
func (t *Task) FreeStackSpace() uint32 {
	return t.Info().FreeStackWords
}

// State queries the scheduling state directly, without a full snapshot.
func (t *Task) State() TaskState {
	return t.k.TaskState(t.h)
}

// TickCount returns the tick count cached by the last UpdateTickCount call.
func (t *Task) TickCount() Tick {
	return t.currentTickCount
}

// UpdateTickCount samples the global tick counter and caches it.
func (t *Task) UpdateTickCount() Tick {
	t.currentTickCount = t.k.TickCount()
	return t.currentTickCount
}

// UpdateTickCountFromISR samples the tick counter through the
// interrupt-safe path and caches it.
func (t *Task) UpdateTickCountFromISR() Tick {
	t.currentTickCount = t.k.TickCountFromISR()
	return t.currentTickCount
}

// Name returns the task's display name. Names are for inspection only and
// are never used for lookup.
func (t *Task) Name() string {
	return t.k.TaskName(t.h)
}
