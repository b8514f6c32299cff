// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

// MutexRecursive is a Mutex whose holder may re-take it without
// self-deadlock. The kernel tracks the recursion depth: take and give calls
// by the owning task must balance, and availability is only restored once
// the depth returns to zero. A give by a non-holder is rejected.
type MutexRecursive struct {
	Mutex
}

// NewMutexRecursive creates a recursive mutex, initially available.
// Creation failure is fatal.
func NewMutexRecursive(k *Kernel) *MutexRecursive {
	h := k.CreateMutexRecursive()
	if !h.Valid() {
		k.Logger().Error("recursive mutex creation failed")
		panic("rtos: recursive mutex creation failed")
	}

	return &MutexRecursive{newMutexFromHandle(k, h)}
}

// TakeRecursive obtains the mutex, deepening the recursion when the caller
// already holds it. Without an argument it uses the default block time.
func (m *MutexRecursive) TakeRecursive(ticksToWait ...Tick) bool {
	return m.k.SemaTake(m.h, m.wait(ticksToWait))
}

// GiveRecursive unwinds one level of recursion. The mutex only becomes
// available to other tasks once every take has been matched by a give.
func (m *MutexRecursive) GiveRecursive() bool {
	return m.k.SemaGive(m.h)
}
