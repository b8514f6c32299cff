// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rtkit/rtos/kern"
	"github.com/rtkit/rtos/testutil"
	"github.com/rtkit/rtos/trace"
)

func newKernel(t *testing.T, cfg kern.Config) *kern.Kernel {
	l := testutil.MakeLogger(t)
	l.Silence()
	k := kern.New(cfg, l)
	t.Cleanup(k.Close)
	return k
}

func TestCreateTaskLimit(t *testing.T) {
	k := newKernel(t, kern.Config{MaxTasks: 1})

	idle := func(kern.TaskHandle, any) {
		select {}
	}

	h := k.CreateTask(idle, "first", 128, nil, 1)
	require.True(t, h.Valid())

	refused := k.CreateTask(idle, "second", 128, nil, 1)
	require.False(t, refused.Valid(), "creation beyond the task limit must yield the zero handle")
}

func TestCreateQueueRefusals(t *testing.T) {
	k := newKernel(t, kern.Config{MaxQueues: 1})

	require.False(t, k.CreateQueue(0).Valid(), "zero capacity is a refusal")
	require.False(t, k.CreateQueue(-3).Valid())

	h := k.CreateQueue(1)
	require.True(t, h.Valid())
	require.False(t, k.CreateQueue(1).Valid(), "creation beyond the queue limit must yield the zero handle")

	// deleting frees the slot
	k.DeleteQueue(h)
	require.True(t, k.CreateQueue(1).Valid())
}

func TestCreateSemaphoreRefusals(t *testing.T) {
	k := newKernel(t, kern.Config{})

	require.False(t, k.CreateCountingSemaphore(0, 0).Valid(), "zero maximum is a refusal")
	require.False(t, k.CreateCountingSemaphore(2, 3).Valid(), "initial beyond maximum is a refusal")
	require.True(t, k.CreateCountingSemaphore(2, 2).Valid())
}

func TestCreateTimerRefusals(t *testing.T) {
	k := newKernel(t, kern.Config{MaxTimers: 1})

	cb := func(kern.TimerHandle) {}
	require.False(t, k.CreateTimer("zero", 0, false, nil, cb).Valid(), "zero period is a refusal")
	require.False(t, k.CreateTimer("no-callback", 1, false, nil, nil).Valid())

	require.True(t, k.CreateTimer("first", 1, false, nil, cb).Valid())
	require.False(t, k.CreateTimer("second", 1, false, nil, cb).Valid())
}

func TestClosedKernelRefusesCreation(t *testing.T) {
	k := newKernel(t, kern.Config{})
	k.Close()

	require.False(t, k.CreateTask(func(kern.TaskHandle, any) {}, "late", 128, nil, 1).Valid())
	require.False(t, k.CreateQueue(1).Valid())
	require.False(t, k.CreateBinarySemaphore().Valid())
	require.False(t, k.CreateTimer("late", 1, false, nil, func(kern.TimerHandle) {}).Valid())
}

func TestTraceDisabledByDefault(t *testing.T) {
	k := newKernel(t, kern.Config{})
	require.Nil(t, k.Trace())
}

func TestTraceJournalRecordsEvents(t *testing.T) {
	k := newKernel(t, kern.Config{TraceCapacity: 32})
	require.NotNil(t, k.Trace())

	done := make(chan struct{})
	k.CreateTask(func(kern.TaskHandle, any) {
		close(done)
	}, "worker", 128, nil, 1)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "task never ran")
	}

	q := k.CreateQueue(4)
	k.QueueAddToRegistry(q, "mailbox")

	k.CreateTimer("heartbeat", 5, true, nil, func(kern.TimerHandle) {})

	// the task goroutine records its own exit asynchronously
	require.Eventually(t, func() bool {
		return labelsByType(t, k.Trace())[trace.TaskDeletedRecordType] != nil
	}, 5*time.Second, 5*time.Millisecond)

	byType := labelsByType(t, k.Trace())
	require.Contains(t, byType[trace.TaskCreatedRecordType], "worker")
	require.Contains(t, byType[trace.TaskDeletedRecordType], "worker")
	require.Contains(t, byType[trace.QueueRegisteredRecordType], "mailbox")
	require.Contains(t, byType[trace.TimerCreatedRecordType], "heartbeat")
}

func TestTraceJournalRecordsTicks(t *testing.T) {
	k := newKernel(t, kern.Config{TraceCapacity: 8})

	k.AdvanceTicks(7)
	k.CreateTimer("late-created", 1, false, nil, func(kern.TimerHandle) {})

	records := k.Trace().ReadAll()
	require.Len(t, records, 1)

	tick, label, err := trace.ParseEventPayload(records[0].Payload)
	require.NoError(t, err)
	require.Equal(t, uint64(7), tick)
	require.Equal(t, "late-created", label)
}

func labelsByType(t *testing.T, j *trace.Journal) map[uint16][]string {
	t.Helper()

	out := make(map[uint16][]string)
	for _, r := range j.ReadAll() {
		require.Equal(t, trace.Version, r.Version)
		_, label, err := trace.ParseEventPayload(r.Payload)
		require.NoError(t, err)
		out[r.Type] = append(out[r.Type], label)
	}
	return out
}
