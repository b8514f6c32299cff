// Copyright (C) 2023-2025, the rtos authors. All rights reserved.
// See the file LICENSE for licensing terms.

package rtos

import (
	"testing"
	"time"

	"github.com/rtkit/rtos/testutil"
)

const (
	waitFor  = 5 * time.Second
	pollEach = 5 * time.Millisecond
)

func newTestKernel(t *testing.T, cfg Config) *Kernel {
	k := New(cfg, testutil.MakeLogger(t))
	t.Cleanup(k.Close)
	return k
}
