// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPMID PMID = 1

func twoSampleReader(sem Semantics) *memReader {
	descs := map[PMID]MetricDesc{
		testPMID: {PMID: testPMID, Type: TypeF64, Indom: 9, Sem: sem},
	}
	indoms := map[IndomID]memIndom{
		9: {insts: []InstID{0}},
	}
	records := []Record{
		sampleRecord(0, testPMID, 0, 10),
		sampleRecord(10, testPMID, 0, 20),
	}
	return newMemReader("fetch-test", descs, indoms, records)
}

func openTestContext(t *testing.T, r *memReader, origin Timestamp) *ArchiveContext {
	t.Helper()
	ctx, err := Open("fetch-test", r, Forward, origin, OpenOptions{})
	require.NoError(t, err)
	return ctx
}

func TestFetchInterpolatesCounterValue(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 5})

	res, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	require.Len(t, res.Metrics, 1)

	m := res.Metrics[0]
	assert.EqualValues(t, 1, m.Numval)
	require.Len(t, m.Values, 1)
	assert.InDelta(t, 15.0, m.Values[0].Value.F64, 1e-9)
}

func TestFetchExactMatchShortCircuitsPrior(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 0})

	res, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	require.Len(t, res.Metrics[0].Values, 1)
	assert.Equal(t, 10.0, res.Metrics[0].Values[0].Value.F64)
}

func TestFetchExactMatchShortCircuitsNext(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 10})

	res, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	require.Len(t, res.Metrics[0].Values, 1)
	assert.Equal(t, 20.0, res.Metrics[0].Values[0].Value.F64)
}

func TestFetchInstantNearestNeighbor(t *testing.T) {
	r := twoSampleReader(SemInstant)
	ctx := openTestContext(t, r, Timestamp{Sec: 6})

	res, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	require.Len(t, res.Metrics[0].Values, 1)
	// t=6 is past the t=0/t=10 midpoint, so the nearest sample is t=10's value.
	assert.Equal(t, 20.0, res.Metrics[0].Values[0].Value.F64)
}

func TestFetchDiscreteHoldsPriorValue(t *testing.T) {
	r := twoSampleReader(SemDiscrete)
	ctx := openTestContext(t, r, Timestamp{Sec: 5})

	res, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	require.Len(t, res.Metrics[0].Values, 1)
	assert.Equal(t, 10.0, res.Metrics[0].Values[0].Value.F64)
}

func TestFetchPMIDNotLogged(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 5})

	res, err := ctx.Fetch([]PMID{999})
	require.NoError(t, err)
	require.Len(t, res.Metrics, 1)
	assert.Equal(t, ErrPMIDNotLogged.Numval(), res.Metrics[0].Numval)
}

func TestFetchReturnsEOLPastArchiveEnd(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 1000})

	_, err := ctx.Fetch([]PMID{testPMID})
	require.Error(t, err)
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrEOL, ie.Kind)
}

func TestFetchAdvancesClockOnEveryCall(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 0})
	ctx.SetInterval(Timestamp{Sec: 10})

	_, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	assert.Equal(t, Timestamp{Sec: 10}, ctx.origin)

	res, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Metrics[0].Values[0].Value.F64)
}

func TestFetchInstanceProfileFiltersInstances(t *testing.T) {
	descs := map[PMID]MetricDesc{
		testPMID: {PMID: testPMID, Type: TypeF64, Indom: 9, Sem: SemCounter},
	}
	indoms := map[IndomID]memIndom{
		9: {insts: []InstID{0, 1}},
	}
	records := []Record{
		{Kind: RecordSample, T: Timestamp{Sec: 0}, Sets: []ValueSet{{
			PMID: testPMID, Valfmt: ValfmtInsitu,
			Insts: []InstValue{{Inst: 0, Value: Value{F64: 1}}, {Inst: 1, Value: Value{F64: 100}}},
		}}},
		{Kind: RecordSample, T: Timestamp{Sec: 10}, Sets: []ValueSet{{
			PMID: testPMID, Valfmt: ValfmtInsitu,
			Insts: []InstValue{{Inst: 0, Value: Value{F64: 2}}, {Inst: 1, Value: Value{F64: 200}}},
		}}},
	}
	r := newMemReader("profile-test", descs, indoms, records)
	ctx := openTestContext(t, r, Timestamp{Sec: 5})
	require.NoError(t, ctx.SetInstanceProfile(9, []InstID{1}))

	res, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)
	require.Len(t, res.Metrics[0].Values, 1)
	assert.EqualValues(t, 1, res.Metrics[0].Values[0].Inst)
	assert.InDelta(t, 150.0, res.Metrics[0].Values[0].Value.F64, 1e-9)
}

func TestSetInstanceProfileRejectsUnknownIndom(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 5})

	err := ctx.SetInstanceProfile(999, []InstID{0})
	require.Error(t, err)
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrUnknownIndom, ie.Kind)
}

func TestFetchReturnsLogRecCorruptOnValfmtChange(t *testing.T) {
	descs := map[PMID]MetricDesc{
		testPMID: {PMID: testPMID, Type: TypeF64, Indom: 9, Sem: SemCounter},
	}
	indoms := map[IndomID]memIndom{
		9: {insts: []InstID{0}},
	}
	records := []Record{
		sampleRecord(0, testPMID, 0, 10),
		{Kind: RecordSample, T: Timestamp{Sec: 10}, Sets: []ValueSet{{
			PMID: testPMID, Valfmt: ValfmtPointer,
			Insts: []InstValue{{Inst: 0, Value: Value{F64: 20}}},
		}}},
	}
	r := newMemReader("corrupt-test", descs, indoms, records)
	ctx := openTestContext(t, r, Timestamp{Sec: 5})

	_, err := ctx.Fetch([]PMID{testPMID})
	require.Error(t, err)
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrLogRecCorrupt, ie.Kind)
}
