// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package trace frames kernel events as self-checking binary records for
// external inspection tooling. A record carries a version, an event type and
// an opaque payload, protected by a CRC64 checksum.
package trace

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc64"
	"io"
)

const (
	recordVersionLen  = 1
	recordTypeLen     = 2
	recordSizeLen     = 4
	recordChecksumLen = 8

	recordHeaderLen = recordVersionLen + recordTypeLen + recordSizeLen

	recordVersionIndex  = 0
	recordTypeOffset    = recordVersionIndex + recordVersionLen
	recordSizeOffset    = recordTypeOffset + recordTypeLen
	recordPayloadOffset = recordSizeOffset + recordSizeLen

	maxPayloadSize = 1 << 16
)

var ErrInvalidCRC = errors.New("invalid CRC checksum")

type Record struct {
	Version uint8
	Type    uint16
	Payload []byte
}

func (r *Record) Bytes() []byte {
	payloadLen := len(r.Payload)
	buff := make([]byte, recordHeaderLen+payloadLen+recordChecksumLen)

	buff[recordVersionIndex] = r.Version
	binary.BigEndian.PutUint16(buff[recordTypeOffset:], r.Type)
	binary.BigEndian.PutUint32(buff[recordSizeOffset:], uint32(payloadLen))
	copy(buff[recordPayloadOffset:], r.Payload)

	crc := crc64.New(crc64.MakeTable(crc64.ECMA))
	checksumOffset := recordPayloadOffset + payloadLen
	if _, err := crc.Write(buff[:checksumOffset]); err != nil {
		panic(fmt.Sprintf("CRC checksum failed: %v", err))
	}
	return crc.Sum(buff[:checksumOffset])
}

func (r *Record) FromBytes(in io.Reader) (int, error) {
	header := make([]byte, recordHeaderLen)
	if _, err := io.ReadFull(in, header); err != nil {
		return 0, err
	}

	version := header[recordVersionIndex]
	recType := binary.BigEndian.Uint16(header[recordTypeOffset:])
	payloadLen := binary.BigEndian.Uint32(header[recordSizeOffset:])
	if payloadLen > maxPayloadSize {
		return 0, fmt.Errorf("record indicates payload is %d bytes long", payloadLen)
	}

	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(in, payload); err != nil {
		return 0, err
	}

	checksum := make([]byte, recordChecksumLen)
	if _, err := io.ReadFull(in, checksum); err != nil {
		return 0, err
	}

	crc := crc64.New(crc64.MakeTable(crc64.ECMA))
	if _, err := crc.Write(header); err != nil {
		return 0, fmt.Errorf("CRC checksum failed: %w", err)
	}
	if _, err := crc.Write(payload); err != nil {
		return 0, fmt.Errorf("CRC checksum failed: %w", err)
	}

	expectedChecksum := make([]byte, 0, recordChecksumLen)
	expectedChecksum = crc.Sum(expectedChecksum)
	if !bytes.Equal(checksum, expectedChecksum) {
		return 0, ErrInvalidCRC
	}

	r.Version = version
	r.Type = recType
	r.Payload = payload

	return recordHeaderLen + len(payload) + recordChecksumLen, nil
}
