// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"go.uber.org/zap"

	"github.com/rtkit/rtos/kern"
)

// Queue is a fixed-capacity FIFO channel of items of type T. Items are
// transferred by value: the kernel stores a copy on send and hands a copy
// back on receive, so no slot aliases producer or consumer storage. T should
// be a plain value type for that copy to be a true transfer.
//
// SendToBack and Receive pairs form a strict FIFO. SendToFront inserts at
// the head for urgent items and deliberately breaks FIFO ordering; callers
// needing ordering guarantees across mixed send calls must not mix the two
// on one queue without application-level sequencing.
type Queue[T any] struct {
	k *kern.Kernel
	h kern.QueueHandle

	capacity int
	name     string

	defaultMaxTicksToWait Tick
	defaultMinTicksToWait Tick
}

// NewQueue creates a queue holding at most capacity items. Creation failure
// is fatal.
func NewQueue[T any](k *Kernel, capacity int) *Queue[T] {
	return newQueue[T](k, capacity, false, "")
}

// NewQueueNamed additionally attaches a display name, and registers it with
// the kernel's debug registry when addToRegistry is set. The name feeds
// inspection tooling only; it has no effect on runtime semantics.
func NewQueueNamed[T any](k *Kernel, capacity int, addToRegistry bool, name string) *Queue[T] {
	return newQueue[T](k, capacity, addToRegistry, name)
}

func newQueue[T any](k *Kernel, capacity int, addToRegistry bool, name string) *Queue[T] {
	h := k.CreateQueue(capacity)
	if !h.Valid() {
		k.Logger().Error("queue creation failed",
			zap.String("queue", name),
			zap.Int("capacity", capacity))
		panic("rtos: queue creation failed")
	}

	if addToRegistry {
		k.QueueAddToRegistry(h, name)
	}

	return &Queue[T]{
		k:                     k,
		h:                     h,
		capacity:              capacity,
		name:                  name,
		defaultMaxTicksToWait: Forever,
		defaultMinTicksToWait: NoWait,
	}
}

// Delete destroys the queue, discarding pending items. Deleting while other
// tasks block on it has no defined outcome and must be avoided by the
// caller.
func (q *Queue[T]) Delete() {
	q.k.DeleteQueue(q.h)
}

// SendToBack enqueues a copy of the item at the tail, blocking up to the
// given ticks while the queue is full. Without an argument it uses the
// default minimum wait, which starts at 0.
func (q *Queue[T]) SendToBack(item T, ticksToWait ...Tick) bool {
	return q.k.QueueSend(q.h, item, q.sendWait(ticksToWait), false)
}

// SendToFront enqueues at the head, so the item is served before everything
// already queued. Same blocking semantics as SendToBack.
func (q *Queue[T]) SendToFront(item T, ticksToWait ...Tick) bool {
	return q.k.QueueSend(q.h, item, q.sendWait(ticksToWait), true)
}

// SendToBackFromISR is the non-blocking interrupt-context tail enqueue.
func (q *Queue[T]) SendToBackFromISR(item T) bool {
	return q.k.QueueSendFromISR(q.h, item, false)
}

// SendToFrontFromISR is the non-blocking interrupt-context head enqueue.
func (q *Queue[T]) SendToFrontFromISR(item T) bool {
	return q.k.QueueSendFromISR(q.h, item, true)
}

// Receive dequeues the head item, blocking up to the given ticks while the
// queue is empty. Without an argument it uses the default maximum wait,
// which starts at Forever: consumers typically want to wait for work rather
// than poll. An exhausted timeout returns the zero value and false.
func (q *Queue[T]) Receive(ticksToWait ...Tick) (T, bool) {
	item, ok := q.k.QueueReceive(q.h, q.receiveWait(ticksToWait))
	return q.cast(item, ok)
}

// ReceiveFromISR is the non-blocking interrupt-context dequeue.
func (q *Queue[T]) ReceiveFromISR() (T, bool) {
	item, ok := q.k.QueueReceiveFromISR(q.h)
	return q.cast(item, ok)
}

// Reset atomically empties the queue, discarding all pending items. Blocked
// senders may proceed into the freed space; blocked receivers get no data.
func (q *Queue[T]) Reset() bool {
	return q.k.QueueReset(q.h)
}

// MessagesWaiting returns the number of queued items.
func (q *Queue[T]) MessagesWaiting() int {
	return q.k.QueueMessagesWaiting(q.h)
}

// MessagesWaitingFromISR is the interrupt-context item count.
func (q *Queue[T]) MessagesWaitingFromISR() int {
	return q.k.QueueMessagesWaitingFromISR(q.h)
}

// SpacesAvailable returns capacity minus MessagesWaiting.
func (q *Queue[T]) SpacesAvailable() int {
	return q.k.QueueSpacesAvailable(q.h)
}

// Capacity returns the queue's immutable capacity.
func (q *Queue[T]) Capacity() int {
	return q.capacity
}

// Name returns the queue's display name, if one was attached.
func (q *Queue[T]) Name() string {
	return q.name
}

// SetDefaultMaxTicksToWait changes the wait Receive uses when called without
// explicit ticks.
func (q *Queue[T]) SetDefaultMaxTicksToWait(ticks Tick) {
	q.defaultMaxTicksToWait = ticks
}

// SetDefaultMinTicksToWait changes the wait the send calls use when called
// without explicit ticks.
func (q *Queue[T]) SetDefaultMinTicksToWait(ticks Tick) {
	q.defaultMinTicksToWait = ticks
}

func (q *Queue[T]) sendWait(ticks []Tick) Tick {
	if len(ticks) > 0 {
		return ticks[0]
	}
	return q.defaultMinTicksToWait
}

func (q *Queue[T]) receiveWait(ticks []Tick) Tick {
	if len(ticks) > 0 {
		return ticks[0]
	}
	return q.defaultMaxTicksToWait
}

func (q *Queue[T]) cast(item any, ok bool) (T, bool) {
	var zero T
	if !ok {
		return zero, false
	}
	value, isT := item.(T)
	if !isT {
		return zero, false
	}
	return value, true
}
