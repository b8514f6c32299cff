// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

// Version is the current trace record version.
const Version uint8 = 1

const (
	UndefinedRecordType uint16 = iota
	SchedulerStartedRecordType
	SchedulerEndedRecordType
	TaskCreatedRecordType
	TaskDeletedRecordType
	QueueRegisteredRecordType
	TimerCreatedRecordType
	TimerFiredRecordType
	TimerDeletedRecordType
)
