// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern

import (
	"go.uber.org/zap"

	"github.com/rtkit/rtos/trace"
)

// QueueHandle identifies a queue owned by the kernel. The zero handle is
// invalid.
type QueueHandle struct {
	q *queueState
}

// Valid reports whether the handle refers to a kernel queue.
func (h QueueHandle) Valid() bool { return h.q != nil }

// queueState stores items as opaque slots. The wrapper layer copies items by
// value in and out, so no slot aliases producer or consumer storage.
type queueState struct {
	items    []any
	capacity int
	name     string
	deleted  bool
}

// CreateQueue creates a fixed-capacity queue. It returns the zero handle
// when the kernel refuses.
func (k *Kernel) CreateQueue(capacity int) QueueHandle {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed || capacity <= 0 || (k.cfg.MaxQueues > 0 && k.liveQueues >= k.cfg.MaxQueues) {
		k.log.Warn("queue creation refused",
			zap.Int("capacity", capacity),
			zap.Int("live", k.liveQueues),
			zap.Int("max", k.cfg.MaxQueues))
		return QueueHandle{}
	}

	q := &queueState{capacity: capacity}
	k.liveQueues++
	return QueueHandle{q}
}

// QueueAddToRegistry attaches a name to the queue in the debug registry.
func (k *Kernel) QueueAddToRegistry(h QueueHandle, name string) {
	q := h.q
	if q == nil {
		return
	}

	k.mu.Lock()
	q.name = name
	k.registry[name] = "queue"
	now := k.now
	k.mu.Unlock()

	k.traceEvent(trace.QueueRegisteredRecordType, now, name)
}

// DeleteQueue destroys the queue and discards its items. Deleting while
// tasks block on it has no defined outcome; here every blocked operation
// fails.
func (k *Kernel) DeleteQueue(h QueueHandle) {
	q := h.q
	if q == nil {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if q.deleted {
		return
	}
	q.deleted = true
	q.items = nil
	if q.name != "" {
		delete(k.registry, q.name)
	}
	k.liveQueues--
	k.cond.Broadcast()
}

// QueueSend enqueues a copy of item, blocking the calling task up to ticks
// kernel ticks while the queue is full. With toFront set the item is
// inserted at the head and will be served before every queued item.
func (k *Kernel) QueueSend(h QueueHandle, item any, ticks Tick, toFront bool) bool {
	q := h.q
	if q == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.currentLocked()
	deadline := k.deadlineFor(ticks)

	for {
		if q.deleted || k.closed || t.deleted {
			return false
		}

		if len(q.items) < q.capacity {
			q.insertLocked(item, toFront)
			t.state = StateRunning
			k.cond.Broadcast()
			return true
		}

		if k.expiredLocked(deadline) {
			t.state = StateRunning
			return false
		}

		if !k.parkLocked(t) {
			return false
		}
	}
}

// QueueSendFromISR is the non-blocking interrupt-context enqueue. A full
// queue is reported as an ordinary false result.
func (k *Kernel) QueueSendFromISR(h QueueHandle, item any, toFront bool) bool {
	q := h.q
	if q == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if q.deleted || len(q.items) >= q.capacity {
		return false
	}
	q.insertLocked(item, toFront)
	k.cond.Broadcast()
	return true
}

func (q *queueState) insertLocked(item any, toFront bool) {
	if toFront {
		q.items = append([]any{item}, q.items...)
		return
	}
	q.items = append(q.items, item)
}

// QueueReceive dequeues the head item, blocking the calling task up to ticks
// kernel ticks while the queue is empty.
func (k *Kernel) QueueReceive(h QueueHandle, ticks Tick) (any, bool) {
	q := h.q
	if q == nil {
		return nil, false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.currentLocked()
	deadline := k.deadlineFor(ticks)

	for {
		if q.deleted || k.closed || t.deleted {
			return nil, false
		}

		if len(q.items) > 0 {
			item := q.popLocked()
			t.state = StateRunning
			k.cond.Broadcast()
			return item, true
		}

		if k.expiredLocked(deadline) {
			t.state = StateRunning
			return nil, false
		}

		if !k.parkLocked(t) {
			return nil, false
		}
	}
}

// QueueReceiveFromISR is the non-blocking interrupt-context dequeue.
func (k *Kernel) QueueReceiveFromISR(h QueueHandle) (any, bool) {
	q := h.q
	if q == nil {
		return nil, false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if q.deleted || len(q.items) == 0 {
		return nil, false
	}
	item := q.popLocked()
	k.cond.Broadcast()
	return item, true
}

func (q *queueState) popLocked() any {
	item := q.items[0]
	q.items[0] = nil // release the reference held by the slot
	q.items = q.items[1:]
	return item
}

// QueueReset atomically empties the queue, discarding all pending items. It
// frees space for blocked senders but hands no data to blocked receivers.
func (k *Kernel) QueueReset(h QueueHandle) bool {
	q := h.q
	if q == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if q.deleted {
		return false
	}
	q.items = nil
	k.cond.Broadcast()
	return true
}

// QueueMessagesWaiting returns the number of queued items.
func (k *Kernel) QueueMessagesWaiting(h QueueHandle) int {
	q := h.q
	if q == nil {
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return len(q.items)
}

// QueueMessagesWaitingFromISR is the interrupt-context item count.
func (k *Kernel) QueueMessagesWaitingFromISR(h QueueHandle) int {
	return k.QueueMessagesWaiting(h)
}

// QueueSpacesAvailable returns capacity minus the number of queued items.
func (k *Kernel) QueueSpacesAvailable(h QueueHandle) int {
	q := h.q
	if q == nil {
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return q.capacity - len(q.items)
}

// QueueName returns the queue's registry name, if any.
func (k *Kernel) QueueName(h QueueHandle) string {
	q := h.q
	if q == nil {
		return ""
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return q.name
}
