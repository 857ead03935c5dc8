// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package interp implements the PCP archive interpolation engine: given a
// monotonic sequence of recorded samples per (metric, instance) pair, it
// serves time-aligned readings at an arbitrary requested timestamp, either
// bit-exact, linearly interpolated, or as a precisely defined "no value".
package interp

import "fmt"

// Timestamp is a PCP-style (seconds, nanoseconds) pair, nsec always in [0, 1e9).
type Timestamp struct {
	Sec  int64
	Nsec int32
}

// Sub returns a-b in seconds, as the float64 domain every bound comparison
// in the engine is done in.
func (a Timestamp) Sub(b Timestamp) float64 {
	return float64(a.Sec-b.Sec) + (float64(a.Nsec)-float64(b.Nsec))/1e9
}

// Add returns t+delta with nsec renormalized into [0, 1e9), carrying into sec.
func (t Timestamp) Add(delta Timestamp) Timestamp {
	sec := t.Sec + delta.Sec
	nsec := t.Nsec + delta.Nsec
	for nsec >= 1_000_000_000 {
		nsec -= 1_000_000_000
		sec++
	}
	for nsec < 0 {
		nsec += 1_000_000_000
		sec--
	}
	return Timestamp{Sec: sec, Nsec: nsec}
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%d.%09d", t.Sec, t.Nsec)
}

// Direction is the scan direction used by fetches and cache/reader reads.
type Direction int

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

func (d Direction) Opposite() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

// ValueType is the scalar wire type of a metric value.
type ValueType int

const (
	TypeI32 ValueType = iota
	TypeU32
	TypeI64
	TypeU64
	TypeF32
	TypeF64
	TypeString
	TypeAggregate
	TypeEvent
)

// Semantics describes how a metric's successive values relate to each other.
type Semantics int

const (
	SemCounter Semantics = iota
	SemInstant
	SemDiscrete
)

// Valfmt distinguishes inline-scalar encoding from pointer-to-block encoding.
type Valfmt int

const (
	ValfmtInsitu Valfmt = iota
	ValfmtPointer
)

// PMID is a metric identifier; InstID identifies one instance within an indom.
type PMID uint32
type InstID int32
type IndomID uint32

// MetricDesc is the (externally supplied, externally owned) descriptor of a metric.
type MetricDesc struct {
	PMID  PMID
	Type  ValueType
	Indom IndomID
	Sem   Semantics
	Units string
}

// Value is a single scalar payload. Exactly one of the typed fields is
// meaningful, selected by the owning MetricDesc.Type. Block-encoded values
// (String/Aggregate/Event) carry their bytes in Bytes via a pooled, refcounted buffer.
type Value struct {
	I32    int32
	U32    uint32
	I64    int64
	U64    uint64
	F32    float32
	F64    float64
	Buf    *pinnedBuffer
	Valfmt Valfmt
}

// Bytes returns the block payload, or nil if this value is not block-encoded.
func (v Value) Bytes() []byte {
	if v.Buf == nil {
		return nil
	}
	return v.Buf.data
}

// InstValue pairs one instance with its value.
type InstValue struct {
	Inst  InstID
	Value Value
}

// ValueSet binds one metric to its valfmt and the instance/value pairs
// carried by a single record.
type ValueSet struct {
	PMID   PMID
	Valfmt Valfmt
	Insts  []InstValue
}

// RecordKind distinguishes a Mark from a Sample.
type RecordKind int

const (
	RecordSample RecordKind = iota
	RecordMark
)

// Record is one unit read from the archive: either a timestamped set of
// per-metric value sets, or a discontinuity mark.
type Record struct {
	Kind RecordKind
	T    Timestamp
	Sets []ValueSet

	// Virtual is true when the reader synthesized this Mark internally
	// (e.g. at a volume boundary) rather than reading it from storage.
	Virtual bool
}

func (r Record) ValueSet(pmid PMID) (ValueSet, bool) {
	for _, vs := range r.Sets {
		if vs.PMID == pmid {
			return vs, true
		}
	}
	return ValueSet{}, false
}

// IndomSnapshot is one timestamped recording of the complete instance list
// for an indom, as kept by the archive's instance-domain metadata.
type IndomSnapshot struct {
	T     Timestamp
	Insts []InstID
}

// FetchResult is the outcome of one InterpFetch call.
type FetchResult struct {
	Timestamp Timestamp
	Metrics   []MetricResult
}

// MetricResult is one metric's contribution to a FetchResult. Numval<0
// encodes an ErrKind specific to this metric; Numval==0 means "no values".
type MetricResult struct {
	PMID   PMID
	Numval int32
	Valfmt Valfmt
	Values []InstValue
}
