// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatArchiveRoundTrip(t *testing.T) {
	descs := map[PMID]MetricDesc{
		testPMID: {PMID: testPMID, Type: TypeF64, Indom: 9, Sem: SemCounter},
	}
	indoms := map[IndomID]IndomData{
		9: {Insts: []InstID{0}, Snapshots: []IndomSnapshot{{T: Timestamp{Sec: 0}, Insts: []InstID{0}}}},
	}
	records := []Record{
		sampleRecord(10, testPMID, 0, 20),
		sampleRecord(0, testPMID, 0, 10),
	}

	path := filepath.Join(t.TempDir(), "archive.pcpf")
	require.NoError(t, WriteFlatArchive(path, "flat-test", descs, indoms, records))

	r, err := OpenFlatArchive(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, "flat-test", r.Name())
	assert.Equal(t, Timestamp{Sec: 0}, r.StartTime())
	end, err := r.EndTime()
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Sec: 10}, end)

	d, ok := r.Descriptor(testPMID)
	require.True(t, ok)
	assert.Equal(t, SemCounter, d.Sem)
	assert.Equal(t, []InstID{0}, r.InstanceList(9))
	require.Len(t, r.IndomSnapshots(9), 1)

	require.NoError(t, r.SeekNear(Timestamp{Sec: 5}))
	rec, err := r.ReadRecord(Forward)
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Sec: 10}, rec.T)
	vs, ok := rec.ValueSet(testPMID)
	require.True(t, ok)
	assert.Equal(t, 20.0, vs.Insts[0].Value.F64)

	rec, err = r.ReadRecord(Backward)
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Sec: 10}, rec.T)

	rec, err = r.ReadRecord(Backward)
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Sec: 0}, rec.T)

	_, err = r.ReadRecord(Backward)
	assert.ErrorIs(t, err, ErrEOF)
}

func TestFlatArchiveStringPayloadRoundTrip(t *testing.T) {
	descs := map[PMID]MetricDesc{
		testPMID: {PMID: testPMID, Type: TypeString, Indom: 9, Sem: SemDiscrete},
	}
	indoms := map[IndomID]IndomData{9: {Insts: []InstID{0}}}
	buf := newPinnedBuffer([]byte("hello archive"))
	records := []Record{
		{Kind: RecordSample, T: Timestamp{Sec: 0}, Sets: []ValueSet{{
			PMID: testPMID, Valfmt: ValfmtPointer,
			Insts: []InstValue{{Inst: 0, Value: Value{Buf: buf, Valfmt: ValfmtPointer}}},
		}}},
	}

	path := filepath.Join(t.TempDir(), "archive.pcpf")
	require.NoError(t, WriteFlatArchive(path, "flat-string-test", descs, indoms, records))

	r, err := OpenFlatArchive(path)
	require.NoError(t, err)
	defer r.Close()

	rec, err := r.ReadRecord(Forward)
	require.NoError(t, err)
	vs, ok := rec.ValueSet(testPMID)
	require.True(t, ok)
	assert.Equal(t, "hello archive", string(vs.Insts[0].Value.Bytes()))
}
