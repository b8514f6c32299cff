// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package kern

import (
	"bytes"
	"runtime"
	"strconv"
)

var goroutinePrefix = []byte("goroutine ")

// goid returns the id of the calling goroutine, parsed from the first line of
// its stack trace ("goroutine N [running]:"). The kernel uses it to map
// goroutines back to task records.
func goid() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	line := bytes.TrimPrefix(buf[:n], goroutinePrefix)
	end := bytes.IndexByte(line, ' ')
	if end < 0 {
		return 0
	}
	id, err := strconv.ParseUint(string(line[:end]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
