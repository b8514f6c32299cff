// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package kern implements a tick-driven kernel that owns every schedulable
// resource: tasks, semaphores, queues and software timers. Entities are
// created and deleted through handles, and all timed blocking is expressed
// in kernel ticks against a single tick clock. The package is consumed by
// the typed wrapper layer in the parent package; it is not meant to be used
// directly by applications.
package kern

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rtkit/rtos/trace"
)

// Tick is the kernel's base unit of time. All timeouts, delays and timer
// periods are integer tick counts.
type Tick uint64

const (
	// NoWait makes a blocking operation fail immediately when the resource
	// is unavailable.
	NoWait Tick = 0
	// Forever blocks with no timeout.
	Forever Tick = ^Tick(0)
)

// Priority of a task. Higher numeric value means higher priority.
type Priority uint32

type Logger interface {
	// Log that a fatal error has occurred. The program should likely exit soon
	// after this is called
	Fatal(msg string, fields ...zap.Field)
	// Log that an error has occurred. The program should be able to recover
	// from this error
	Error(msg string, fields ...zap.Field)
	// Log that an event has occurred that may indicate a future error or
	// vulnerability
	Warn(msg string, fields ...zap.Field)
	// Log an event that may be useful for a user to see to measure the progress
	// of the kernel
	Info(msg string, fields ...zap.Field)
	// Log an event that may be useful for understanding the order of the
	// execution of tasks
	Trace(msg string, fields ...zap.Field)
	// Log an event that may be useful for a programmer to see when debuging the
	// execution of the kernel
	Debug(msg string, fields ...zap.Field)
	// Log extremely detailed events that can be useful for inspecting every
	// aspect of the kernel
	Verbo(msg string, fields ...zap.Field)
}

// Kernel is a single lock domain: one mutex guards every entity table and the
// tick clock, and one condition variable wakes every blocked task. A tick
// advance or a resource release broadcasts, and each blocked task re-checks
// its own wake condition.
type Kernel struct {
	mu   sync.Mutex
	cond *sync.Cond

	cfg Config
	log Logger

	now       Tick
	nowAtomic atomic.Uint64

	suspended    bool
	pendingTicks Tick
	started      bool
	ended        bool
	closed       bool
	done         chan struct{}

	liveTasks  int
	liveSemas  int
	liveQueues int
	liveTimers int

	byGoid map[uint64]*taskState
	semas  map[*semaState]struct{}

	registry map[string]string // debug registry: name -> entity kind

	timerCmds []timerCmd
	timerHeap timerHeap

	journal *trace.Journal
}

// New creates a kernel and starts its timer service task. Tasks created on
// the kernel run immediately; StartScheduler only attaches the real-time
// tick source.
func New(cfg Config, log Logger) *Kernel {
	cfg = cfg.withDefaults()

	k := &Kernel{
		cfg:      cfg,
		log:      log,
		done:     make(chan struct{}),
		byGoid:   make(map[uint64]*taskState),
		semas:    make(map[*semaState]struct{}),
		registry: make(map[string]string),
	}
	k.cond = sync.NewCond(&k.mu)

	if cfg.TraceCapacity > 0 {
		k.journal = trace.NewJournal(cfg.TraceCapacity)
	}

	k.startTimerService()

	return k
}

// Logger returns the kernel's logger, for use by the wrapper layer.
func (k *Kernel) Logger() Logger {
	return k.log
}

// Trace returns the kernel event journal, or nil when tracing is disabled.
func (k *Kernel) Trace() *trace.Journal {
	return k.journal
}

// Close tears the kernel down: every blocked operation fails, the timer
// service exits and the real-time tick source, if attached, detaches.
func (k *Kernel) Close() {
	k.EndScheduler()

	k.mu.Lock()
	k.closed = true
	k.cond.Broadcast()
	k.mu.Unlock()
}

// RegistryNames returns the names currently attached to the debug registry
// together with their entity kind. The registry has no effect on runtime
// semantics; it only feeds external inspection tooling.
func (k *Kernel) RegistryNames() map[string]string {
	k.mu.Lock()
	defer k.mu.Unlock()

	names := make(map[string]string, len(k.registry))
	for name, kind := range k.registry {
		names[name] = kind
	}
	return names
}

// currentLocked resolves the task record of the calling goroutine. Goroutines
// that were not created through CreateTask get an anonymous external record,
// so ownership queries and recursion tracking stay coherent for callers
// outside the task set.
func (k *Kernel) currentLocked() *taskState {
	id := goid()
	t, ok := k.byGoid[id]
	if !ok {
		t = &taskState{
			name:     "external",
			state:    StateRunning,
			external: true,
			goid:     id,
		}
		k.byGoid[id] = t
	}
	return t
}

// parkLocked blocks the calling task until the next broadcast, honoring a
// pending suspend request before and after the wait. It reports false once
// the kernel is closed or the task deleted.
func (k *Kernel) parkLocked(t *taskState) bool {
	for t.suspendReq && !k.closed && !t.deleted {
		t.state = StateSuspended
		k.cond.Wait()
	}
	if k.closed || t.deleted {
		return false
	}

	t.state = StateBlocked
	k.cond.Wait()

	for t.suspendReq && !k.closed && !t.deleted {
		t.state = StateSuspended
		k.cond.Wait()
	}
	return !k.closed && !t.deleted
}

// deadlineFor converts a relative wait into an absolute tick deadline.
func (k *Kernel) deadlineFor(ticks Tick) Tick {
	if ticks == Forever {
		return Forever
	}
	return k.now + ticks
}

func (k *Kernel) expiredLocked(deadline Tick) bool {
	return deadline != Forever && k.now >= deadline
}

func (k *Kernel) traceEvent(typ uint16, tick Tick, label string) {
	if k.journal == nil {
		return
	}
	k.journal.Append(trace.Record{
		Version: trace.Version,
		Type:    typ,
		Payload: trace.EventPayload(uint64(tick), label),
	})
}
