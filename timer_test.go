// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerOneShot(t *testing.T) {
	k := newTestKernel(t, Config{})

	var fired atomic.Uint64
	tm := NewTimer(k, "one-shot", 3, false, nil, func(_ *Timer) {
		fired.Add(1)
	})

	require.False(t, tm.IsActive())
	require.True(t, tm.Start(NoWait))

	require.Eventually(t, func() bool {
		return tm.IsActive()
	}, waitFor, pollEach)

	k.AdvanceTicks(3)

	require.Eventually(t, func() bool {
		return fired.Load() == 1 && !tm.IsActive()
	}, waitFor, pollEach)

	// a one-shot timer fires exactly once per start
	k.AdvanceTicks(6)
	require.Never(t, func() bool {
		return fired.Load() != 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestTimerAutoReload(t *testing.T) {
	k := newTestKernel(t, Config{})

	var fired atomic.Uint64
	tm := NewTimer(k, "periodic", 2, true, nil, func(_ *Timer) {
		fired.Add(1)
	})

	require.True(t, tm.Start(NoWait))
	require.Eventually(t, func() bool {
		return tm.IsActive()
	}, waitFor, pollEach)

	k.AdvanceTicks(2)
	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, waitFor, pollEach)

	k.AdvanceTicks(2)
	require.Eventually(t, func() bool {
		return fired.Load() == 2
	}, waitFor, pollEach)

	require.True(t, tm.IsActive(), "auto-reloading timer stays running")

	require.True(t, tm.Stop(NoWait))
	require.Eventually(t, func() bool {
		return !tm.IsActive()
	}, waitFor, pollEach)

	stopped := fired.Load()
	k.AdvanceTicks(10)
	require.Never(t, func() bool {
		return fired.Load() != stopped
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestTimerReset(t *testing.T) {
	k := newTestKernel(t, Config{})

	var fired atomic.Uint64
	tm := NewTimer(k, "resettable", 3, false, nil, func(_ *Timer) {
		fired.Add(1)
	})

	require.True(t, tm.Start(NoWait))
	require.Eventually(t, func() bool {
		return tm.IsActive()
	}, waitFor, pollEach)

	k.AdvanceTicks(2)

	// restart the countdown from now
	require.True(t, tm.Reset(NoWait))
	// let the service process the reset before more ticks arrive
	time.Sleep(50 * time.Millisecond)

	k.AdvanceTicks(2)
	require.Never(t, func() bool {
		return fired.Load() != 0
	}, 100*time.Millisecond, 10*time.Millisecond)

	k.AdvanceTicks(1)
	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, waitFor, pollEach)
}

func TestTimerSetPeriod(t *testing.T) {
	k := newTestKernel(t, Config{})

	var fired atomic.Uint64
	tm := NewTimer(k, "variable", 10, false, nil, func(_ *Timer) {
		fired.Add(1)
	})
	require.Equal(t, Tick(10), tm.Period())

	// changing the period also starts a dormant timer
	require.True(t, tm.SetPeriod(2, NoWait))
	require.Eventually(t, func() bool {
		return tm.IsActive() && tm.Period() == Tick(2)
	}, waitFor, pollEach)

	k.AdvanceTicks(2)
	require.Eventually(t, func() bool {
		return fired.Load() == 1
	}, waitFor, pollEach)
}

func TestTimerID(t *testing.T) {
	k := newTestKernel(t, Config{})

	tm := NewTimer(k, "tagged", 5, false, 17, func(_ *Timer) {})
	require.Equal(t, 17, tm.ID())
	require.Equal(t, "tagged", tm.Name())

	tm.SetID("other")
	require.Equal(t, "other", tm.ID())
}

func TestTimerCallbackSeesOwnTimer(t *testing.T) {
	k := newTestKernel(t, Config{})

	name := make(chan string, 1)
	tm := NewTimer(k, "self", 1, false, nil, func(tm *Timer) {
		name <- tm.Name()
	})

	require.True(t, tm.Start(NoWait))
	require.Eventually(t, func() bool {
		return tm.IsActive()
	}, waitFor, pollEach)

	k.AdvanceTicks(1)

	select {
	case got := <-name:
		require.Equal(t, "self", got)
	case <-time.After(waitFor):
		require.FailNow(t, "callback never ran")
	}
}

func TestTimerDelete(t *testing.T) {
	k := newTestKernel(t, Config{})

	tm := NewTimer(k, "short-lived", 5, true, nil, func(_ *Timer) {})
	require.True(t, tm.Start(NoWait))
	require.Eventually(t, func() bool {
		return tm.IsActive()
	}, waitFor, pollEach)

	tm.Delete()
	require.Eventually(t, func() bool {
		return !tm.IsActive()
	}, waitFor, pollEach)

	require.False(t, tm.Start(NoWait), "a deleted timer accepts no commands")
}

func TestTimerDeletionFailureIsFatal(t *testing.T) {
	k := newTestKernel(t, Config{})

	tm := NewTimer(k, "stuck", 5, false, nil, func(_ *Timer) {})
	k.Close()

	require.Panics(t, func() {
		tm.Delete()
	})
}

func TestTimerCreationFailureIsFatal(t *testing.T) {
	k := newTestKernel(t, Config{})

	require.Panics(t, func() {
		NewTimer(k, "zero-period", 0, false, nil, func(_ *Timer) {})
	})

	limited := newTestKernel(t, Config{MaxTimers: 1})
	NewTimer(limited, "only", 1, false, nil, func(_ *Timer) {})
	require.Panics(t, func() {
		NewTimer(limited, "refused", 1, false, nil, func(_ *Timer) {})
	})
}
