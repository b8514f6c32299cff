// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// tryTakeElsewhere attempts a zero-wait take from a goroutine with its own
// owner identity and reports whether it succeeded.
func tryTakeElsewhere(t *testing.T, m *MutexRecursive) bool {
	t.Helper()

	result := make(chan bool, 1)
	go func() {
		result <- m.TakeRecursive(NoWait)
	}()

	select {
	case ok := <-result:
		return ok
	case <-time.After(waitFor):
		require.FailNow(t, "zero-wait take did not return")
		return false
	}
}

func TestMutexRecursiveReentry(t *testing.T) {
	k := newTestKernel(t, Config{})

	m := NewMutexRecursive(k)

	// same owner may re-take without self-deadlock
	require.True(t, m.TakeRecursive(NoWait))
	require.True(t, m.TakeRecursive(NoWait))

	// one give is not enough: the depth is still 1
	require.True(t, m.GiveRecursive())
	require.False(t, tryTakeElsewhere(t, m))

	// the balancing give releases true availability
	require.True(t, m.GiveRecursive())
	require.True(t, tryTakeElsewhere(t, m))
}

func TestMutexRecursiveGiveAtZeroDepthFails(t *testing.T) {
	k := newTestKernel(t, Config{})

	m := NewMutexRecursive(k)
	require.False(t, m.GiveRecursive())
}

func TestMutexRecursiveGiveByNonOwnerFails(t *testing.T) {
	k := newTestKernel(t, Config{})

	m := NewMutexRecursive(k)
	require.True(t, m.TakeRecursive(NoWait))

	result := make(chan bool, 1)
	go func() {
		result <- m.GiveRecursive()
	}()

	select {
	case ok := <-result:
		require.False(t, ok, "a non-owner must not be able to give")
	case <-time.After(waitFor):
		require.FailNow(t, "give did not return")
	}

	require.True(t, m.GiveRecursive(), "the owner's give must still balance")
}

func TestMutexRecursiveBlockedThirdParty(t *testing.T) {
	k := newTestKernel(t, Config{})

	m := NewMutexRecursive(k)
	require.True(t, m.TakeRecursive(NoWait))
	require.True(t, m.TakeRecursive(NoWait))

	acquired := make(chan struct{})
	task := NewTask(k, func(_ *Task, _ any) {
		if m.TakeRecursive(Forever) {
			close(acquired)
		}
	}, "third-party", 128, nil, 1)

	require.Eventually(t, func() bool {
		return task.State() == StateBlocked
	}, waitFor, pollEach)

	require.True(t, m.GiveRecursive())
	select {
	case <-acquired:
		require.FailNow(t, "mutex released before the recursion unwound")
	case <-time.After(50 * time.Millisecond):
	}

	require.True(t, m.GiveRecursive())
	select {
	case <-acquired:
	case <-time.After(waitFor):
		require.FailNow(t, "third party never acquired the mutex")
	}
}
