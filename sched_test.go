// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTickConversions(t *testing.T) {
	k := newTestKernel(t, Config{TickPeriod: time.Millisecond})

	require.Equal(t, Tick(0), k.ConvertToTicks(500*time.Microsecond))
	require.Equal(t, Tick(1), k.ConvertToTicks(1500*time.Microsecond))
	require.Equal(t, Tick(250), k.ConvertToTicks(250*time.Millisecond))
	require.Equal(t, Tick(2000), k.ConvertToTicks(2*time.Second))
	require.Equal(t, Tick(120_000), k.ConvertToTicks(2*time.Minute))
	require.Equal(t, Tick(3_600_000), k.ConvertToTicks(time.Hour))

	require.Equal(t, 5*time.Millisecond, k.ConvertToTime(5))
}

func TestTickConversionRoundTrip(t *testing.T) {
	k := newTestKernel(t, Config{TickPeriod: time.Millisecond})

	for _, ticks := range []Tick{0, 1, 7, 1000, 123456} {
		require.Equal(t, ticks, k.ConvertToTicks(k.ConvertToTime(ticks)))
	}
}

func TestAdvanceTicks(t *testing.T) {
	k := newTestKernel(t, Config{})

	require.Equal(t, Tick(0), k.TickCount())
	k.AdvanceTicks(3)
	require.Equal(t, Tick(3), k.TickCount())
	require.Equal(t, Tick(3), k.TickCountFromISR())
}

func TestSuspendAllFreezesTicks(t *testing.T) {
	k := newTestKernel(t, Config{})

	k.AdvanceTicks(2)
	k.SuspendAll()
	require.Equal(t, SchedulerSuspended, k.SchedulerState())

	k.AdvanceTicks(5)
	require.Equal(t, Tick(2), k.TickCount())

	require.True(t, k.ResumeAll())
	require.Equal(t, Tick(7), k.TickCount())

	// not suspended anymore
	require.False(t, k.ResumeAll())
}

func TestStartSchedulerDrivesTicks(t *testing.T) {
	k := newTestKernel(t, Config{TickPeriod: time.Millisecond})

	require.Equal(t, SchedulerNotStarted, k.SchedulerState())

	go k.StartScheduler()

	require.Eventually(t, func() bool {
		return k.TickCount() > 0
	}, waitFor, pollEach)

	require.Eventually(t, func() bool {
		return k.SchedulerState() == SchedulerRunning
	}, waitFor, pollEach)

	k.EndScheduler()
	require.Equal(t, SchedulerNotStarted, k.SchedulerState())
}
