// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import "sync"

// pinnedBuffer is a reference-counted byte block shared between the reader
// and the engine. The reader owns the allocation; the engine owns pins
// against it. A buffer with refcount 0 is eligible to return to bufferPool.
// An explicit Go refcount plus a sync.Pool keeps common small allocations
// off the GC's hot path.
type pinnedBuffer struct {
	data []byte
	refs int
}

const defaultBufferCap = 128

var bufferPool = sync.Pool{
	New: func() any {
		return &pinnedBuffer{data: make([]byte, 0, defaultBufferCap)}
	},
}

// newPinnedBuffer copies src into a pooled buffer with one outstanding pin.
func newPinnedBuffer(src []byte) *pinnedBuffer {
	b := bufferPool.Get().(*pinnedBuffer)
	b.data = append(b.data[:0], src...)
	b.refs = 1
	return b
}

// pin adds one reference, for an InstanceState slot taking ownership of an
// already-live buffer (e.g. shuffling prior into next).
func (b *pinnedBuffer) pin() *pinnedBuffer {
	if b == nil {
		return nil
	}
	b.refs++
	return b
}

// unpin releases one reference, returning the buffer to the pool once the
// last pin is dropped.
func (b *pinnedBuffer) unpin() {
	if b == nil {
		return
	}
	b.refs--
	if b.refs <= 0 {
		if cap(b.data) == defaultBufferCap {
			bufferPool.Put(b)
		}
	}
}
