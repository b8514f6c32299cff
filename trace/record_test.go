// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package trace

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecord(t *testing.T) {
	r := Record{
		Version: Version,
		Type:    TimerFiredRecordType,
		Payload: EventPayload(42, "heartbeat"),
	}

	buff := r.Bytes()

	var r2 Record
	_, err := r2.FromBytes(bytes.NewBuffer(buff))
	require.NoError(t, err)
	require.Equal(t, r, r2)

	// Corrupt the CRC of the buffer
	copy(buff[len(buff)-recordChecksumLen:], []byte{0, 1, 2, 3, 4, 5, 6, 7})
	_, err = r2.FromBytes(bytes.NewBuffer(buff))
	require.ErrorIs(t, err, ErrInvalidCRC)
}

func TestRecordTruncatedInput(t *testing.T) {
	r := Record{
		Version: Version,
		Type:    TaskCreatedRecordType,
		Payload: EventPayload(1, "worker"),
	}

	buff := r.Bytes()

	var r2 Record
	_, err := r2.FromBytes(bytes.NewBuffer(buff[:len(buff)-1]))
	require.Error(t, err)
}

func FuzzRecord(f *testing.F) {
	f.Fuzz(func(t *testing.T, version uint8, recType uint16, payload []byte, badCRC uint64) {
		r := Record{
			Version: version,
			Type:    recType,
			Payload: payload,
		}

		buff := r.Bytes()

		var r2 Record
		_, err := r2.FromBytes(bytes.NewBuffer(buff))
		require.NoError(t, err)
		require.Equal(t, r, r2)

		crc := make([]byte, recordChecksumLen)
		binary.BigEndian.PutUint64(crc, badCRC)

		buffCRC := buff[len(buff)-recordChecksumLen:]
		if bytes.Equal(crc, buffCRC) {
			return
		}

		// Corrupt the CRC of the buffer
		copy(buffCRC, crc)

		_, err = r2.FromBytes(bytes.NewBuffer(buff))
		require.ErrorIs(t, err, ErrInvalidCRC)
	})
}
