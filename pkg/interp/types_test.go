// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimestampSub(t *testing.T) {
	a := Timestamp{Sec: 10, Nsec: 500_000_000}
	b := Timestamp{Sec: 9, Nsec: 0}
	assert.Equal(t, 1.5, a.Sub(b))
}

func TestTimestampAddCarriesSeconds(t *testing.T) {
	t1 := Timestamp{Sec: 1, Nsec: 800_000_000}
	delta := Timestamp{Sec: 0, Nsec: 300_000_000}
	got := t1.Add(delta)
	assert.Equal(t, Timestamp{Sec: 2, Nsec: 100_000_000}, got)
}

func TestTimestampAddBorrowsSeconds(t *testing.T) {
	t1 := Timestamp{Sec: 5, Nsec: 100_000_000}
	delta := Timestamp{Sec: -1, Nsec: -300_000_000}
	got := t1.Add(delta)
	assert.Equal(t, Timestamp{Sec: 3, Nsec: 800_000_000}, got)
}

func TestTimestampString(t *testing.T) {
	ts := Timestamp{Sec: 42, Nsec: 7}
	assert.Equal(t, "42.000000007", ts.String())
}

func TestDirectionOpposite(t *testing.T) {
	assert.Equal(t, Backward, Forward.Opposite())
	assert.Equal(t, Forward, Backward.Opposite())
}

func TestRecordValueSetLookup(t *testing.T) {
	rec := Record{Sets: []ValueSet{
		{PMID: 1, Insts: []InstValue{{Inst: 0, Value: Value{I32: 7}}}},
		{PMID: 2, Insts: []InstValue{{Inst: 0, Value: Value{I32: 9}}}},
	}}

	vs, ok := rec.ValueSet(2)
	assert.True(t, ok)
	assert.Equal(t, int32(9), vs.Insts[0].Value.I32)

	_, ok = rec.ValueSet(99)
	assert.False(t, ok)
}

func TestValueBytesNilBuffer(t *testing.T) {
	v := Value{}
	assert.Nil(t, v.Bytes())
}

func TestValueBytesPinnedBuffer(t *testing.T) {
	buf := newPinnedBuffer([]byte("payload"))
	v := Value{Buf: buf}
	assert.Equal(t, []byte("payload"), v.Bytes())
}
