// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import "sort"

// memRecord is one entry of a memReader's timeline, pre-sorted by time.
type memRecord struct {
	rec Record
}

// memIndom is one indom's complete snapshot history, as memReader serves it
// directly without needing to derive it from records.
type memIndom struct {
	insts     []InstID
	snapshots []IndomSnapshot
}

// memReader is a complete in-memory ArchiveReader for tests: a fixed,
// pre-built timeline of records plus static descriptor/indom metadata, with
// no volumes, no temporal index, and SeekNear implemented as a binary
// search. It exists purely to exercise InterpFetch/ArchiveContext without
// a real PCP archive on disk.
type memReader struct {
	name string

	records []memRecord // ascending by T
	descs   map[PMID]MetricDesc
	indoms  map[IndomID]memIndom

	cursor int // index of the record the next Forward read returns
	start  Timestamp
	end    Timestamp
}

// newMemReader builds a memReader from a caller-supplied record list;
// records need not be pre-sorted, newMemReader sorts them by time.
func newMemReader(name string, descs map[PMID]MetricDesc, indoms map[IndomID]memIndom, records []Record) *memReader {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T.Sub(sorted[j].T) < 0 })

	mrs := make([]memRecord, len(sorted))
	for i, r := range sorted {
		mrs[i] = memRecord{rec: r}
	}

	r := &memReader{
		name:    name,
		records: mrs,
		descs:   descs,
		indoms:  indoms,
	}
	if len(mrs) > 0 {
		r.start = mrs[0].rec.T
		r.end = mrs[len(mrs)-1].rec.T
	}
	return r
}

func (r *memReader) Name() string { return r.name }

func (r *memReader) ReadRecord(dir Direction) (Record, error) {
	if dir == Forward {
		if r.cursor >= len(r.records) {
			return Record{}, ErrEOF
		}
		rec := r.records[r.cursor].rec
		r.cursor++
		return rec, nil
	}
	if r.cursor <= 0 {
		return Record{}, ErrEOF
	}
	r.cursor--
	return r.records[r.cursor].rec, nil
}

func (r *memReader) Tell() Position {
	return Position{Volume: 0, Offset: int64(r.cursor)}
}

func (r *memReader) Seek(p Position) error {
	r.cursor = int(p.Offset)
	return nil
}

func (r *memReader) ChangeVolume(int) error { return nil }

func (r *memReader) StartTime() Timestamp { return r.start }

func (r *memReader) EndTime() (Timestamp, error) { return r.end, nil }

// SeekNear positions the cursor at the first record whose time is >= t,
// a binary-search stand-in for a real temporal index.
func (r *memReader) SeekNear(t Timestamp) error {
	tf := t.Sub(Timestamp{})
	idx := sort.Search(len(r.records), func(i int) bool {
		return r.records[i].rec.T.Sub(Timestamp{}) >= tf
	})
	r.cursor = idx
	return nil
}

func (r *memReader) Descriptor(pmid PMID) (MetricDesc, bool) {
	d, ok := r.descs[pmid]
	return d, ok
}

func (r *memReader) InstanceList(indom IndomID) []InstID {
	return r.indoms[indom].insts
}

func (r *memReader) IndomSnapshots(indom IndomID) []IndomSnapshot {
	return r.indoms[indom].snapshots
}
