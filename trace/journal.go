// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"encoding/binary"
	"errors"
	"sync"
)

var errShortPayload = errors.New("event payload too short")

// Journal is a bounded in-memory buffer of kernel event records. When full,
// the oldest record is dropped. It has its own lock and may be appended to
// from any execution context.
type Journal struct {
	mu       sync.Mutex
	records  []Record
	capacity int
	dropped  uint64
}

// NewJournal creates a journal holding at most capacity records.
func NewJournal(capacity int) *Journal {
	if capacity <= 0 {
		capacity = 1
	}
	return &Journal{capacity: capacity}
}

// Append adds a record, dropping the oldest one when the journal is full.
func (j *Journal) Append(r Record) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if len(j.records) == j.capacity {
		copy(j.records, j.records[1:])
		j.records = j.records[:len(j.records)-1]
		j.dropped++
	}
	j.records = append(j.records, r)
}

// ReadAll returns a copy of the journal's records, oldest first.
func (j *Journal) ReadAll() []Record {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Record, len(j.records))
	copy(out, j.records)
	return out
}

// Dropped returns how many records were evicted to make room.
func (j *Journal) Dropped() uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()

	return j.dropped
}

// Truncate discards every record.
func (j *Journal) Truncate() {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.records = nil
}

// Snapshot returns the journal encoded as a contiguous byte stream of
// CRC-framed records, suitable for handing to inspection tooling.
func (j *Journal) Snapshot() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()

	var out []byte
	for i := range j.records {
		out = append(out, j.records[i].Bytes()...)
	}
	return out
}

// EventPayload encodes the tick an event occurred at plus a label, typically
// the name of the entity involved.
func EventPayload(tick uint64, label string) []byte {
	payload := make([]byte, 8+len(label))
	binary.BigEndian.PutUint64(payload, tick)
	copy(payload[8:], label)
	return payload
}

// ParseEventPayload decodes a payload built by EventPayload.
func ParseEventPayload(payload []byte) (uint64, string, error) {
	if len(payload) < 8 {
		return 0, "", errShortPayload
	}
	return binary.BigEndian.Uint64(payload), string(payload[8:]), nil
}
