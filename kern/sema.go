// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern

import "go.uber.org/zap"

// SemaphoreHandle identifies a semaphore owned by the kernel. The zero
// handle is invalid.
type SemaphoreHandle struct {
	s *semaState
}

// Valid reports whether the handle refers to a kernel semaphore.
func (h SemaphoreHandle) Valid() bool { return h.s != nil }

type semaState struct {
	count uint32
	max   uint32

	// mutex-mode semaphores track a holder and boost its priority while a
	// higher-priority task waits
	mutex     bool
	recursive bool
	holder    *taskState
	depth     uint32

	waiters []*taskState
	deleted bool
}

// CreateBinarySemaphore creates a binary semaphore. It starts empty, the
// same as the underlying kernel call it models; callers that want it
// available must give once.
func (k *Kernel) CreateBinarySemaphore() SemaphoreHandle {
	return k.createSema(&semaState{max: 1})
}

// CreateCountingSemaphore creates a counting semaphore with the given
// maximum and initial counts.
func (k *Kernel) CreateCountingSemaphore(maxCount, initialCount uint32) SemaphoreHandle {
	if maxCount == 0 || initialCount > maxCount {
		k.log.Warn("counting semaphore creation refused",
			zap.Uint32("max", maxCount),
			zap.Uint32("initial", initialCount))
		return SemaphoreHandle{}
	}
	return k.createSema(&semaState{max: maxCount, count: initialCount})
}

// CreateMutex creates a mutual-exclusion semaphore with priority
// inheritance. It starts available.
func (k *Kernel) CreateMutex() SemaphoreHandle {
	return k.createSema(&semaState{max: 1, count: 1, mutex: true})
}

// CreateMutexRecursive creates a mutex whose holder may re-take it; the
// kernel tracks the recursion depth.
func (k *Kernel) CreateMutexRecursive() SemaphoreHandle {
	return k.createSema(&semaState{max: 1, count: 1, mutex: true, recursive: true})
}

func (k *Kernel) createSema(s *semaState) SemaphoreHandle {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed || (k.cfg.MaxSemaphores > 0 && k.liveSemas >= k.cfg.MaxSemaphores) {
		k.log.Warn("semaphore creation refused",
			zap.Int("live", k.liveSemas),
			zap.Int("max", k.cfg.MaxSemaphores))
		return SemaphoreHandle{}
	}

	k.semas[s] = struct{}{}
	k.liveSemas++
	return SemaphoreHandle{s}
}

// DeleteSemaphore destroys the semaphore. Deleting while tasks block on it
// has no defined outcome; here every blocked take fails.
func (k *Kernel) DeleteSemaphore(h SemaphoreHandle) {
	s := h.s
	if s == nil {
		return
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if s.deleted {
		return
	}
	s.deleted = true
	delete(k.semas, s)
	k.liveSemas--
	k.cond.Broadcast()
}

// SemaTake obtains the semaphore, blocking the calling task up to ticks
// kernel ticks. On a recursive mutex already held by the caller it only
// deepens the recursion. Timeout is a normal failure, reported as false.
func (k *Kernel) SemaTake(h SemaphoreHandle, ticks Tick) bool {
	s := h.s
	if s == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	t := k.currentLocked()
	deadline := k.deadlineFor(ticks)

	for {
		if s.deleted || k.closed || t.deleted {
			return false
		}

		if s.recursive && s.holder == t {
			s.depth++
			return true
		}

		if s.count > 0 {
			s.count--
			if s.mutex {
				s.holder = t
				s.depth = 1
			}
			t.state = StateRunning
			return true
		}

		if k.expiredLocked(deadline) {
			t.state = StateRunning
			return false
		}

		s.waiters = append(s.waiters, t)
		k.inheritPriorityLocked(s, t)
		ok := k.parkLocked(t)
		s.removeWaiter(t)
		if !ok {
			return false
		}
	}
}

// SemaTakeFromISR is the non-blocking interrupt-context take. It accepts no
// wait time and is rejected outright for mutex-mode semaphores, which have
// no meaningful owner in interrupt context.
func (k *Kernel) SemaTakeFromISR(h SemaphoreHandle) bool {
	s := h.s
	if s == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if s.deleted || s.mutex || s.count == 0 {
		return false
	}
	s.count--
	return true
}

// SemaGive releases the semaphore. A give on a full semaphore fails, as does
// a mutex give by a task that is not the holder. On a recursive mutex, true
// availability is only restored once the recursion depth returns to zero.
func (k *Kernel) SemaGive(h SemaphoreHandle) bool {
	s := h.s
	if s == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return k.semaGiveLocked(s, k.currentLocked())
}

// SemaGiveFromISR is the interrupt-context give. Mutex-mode semaphores are
// rejected, symmetric with SemaTakeFromISR.
func (k *Kernel) SemaGiveFromISR(h SemaphoreHandle) bool {
	s := h.s
	if s == nil {
		return false
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if s.deleted || s.mutex || s.count >= s.max {
		return false
	}
	s.count++
	k.cond.Broadcast()
	return true
}

func (k *Kernel) semaGiveLocked(s *semaState, t *taskState) bool {
	if s.deleted {
		return false
	}

	if s.mutex {
		if s.holder != t {
			k.log.Debug("mutex give rejected, caller is not the holder",
				zap.String("caller", t.name))
			return false
		}
		if s.recursive && s.depth > 1 {
			s.depth--
			return true
		}
		s.holder = nil
		s.depth = 0
		k.recomputePriorityLocked(t)
	}

	if s.count >= s.max {
		return false
	}
	s.count++
	k.cond.Broadcast()
	return true
}

// SemaCount returns the current count: 1 or 0 for binary semaphores and
// mutexes, the live count for counting semaphores.
func (k *Kernel) SemaCount(h SemaphoreHandle) uint32 {
	s := h.s
	if s == nil {
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	return s.count
}

// SemaHolder returns the task currently holding a mutex-mode semaphore. The
// answer is only reliable when the holder itself asks.
func (k *Kernel) SemaHolder(h SemaphoreHandle) TaskHandle {
	s := h.s
	if s == nil {
		return TaskHandle{}
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if s.holder == nil {
		return TaskHandle{}
	}
	return TaskHandle{s.holder}
}

// inheritPriorityLocked boosts the holder of a mutex to the priority of a
// newly blocked waiter, preventing priority inversion.
func (k *Kernel) inheritPriorityLocked(s *semaState, waiter *taskState) {
	if !s.mutex || s.holder == nil || s.holder.effPrio >= waiter.effPrio {
		return
	}
	k.log.Verbo("boosting mutex holder priority",
		zap.String("holder", s.holder.name),
		zap.Uint32("from", uint32(s.holder.effPrio)),
		zap.Uint32("to", uint32(waiter.effPrio)))
	s.holder.effPrio = waiter.effPrio
}

func (s *semaState) removeWaiter(t *taskState) {
	for i, w := range s.waiters {
		if w == t {
			s.waiters = append(s.waiters[:i], s.waiters[i+1:]...)
			return
		}
	}
}
