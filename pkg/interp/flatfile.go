// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// This file implements a flat-file reference ArchiveReader, purely to
// exercise and smoke-test the engine -- it is not a general-purpose archive
// format implementation. It is a single self-contained file: a
// length-prefixed gob record stream followed by a gob trailer holding the
// metric/indom metadata and a (time, offset) index for SeekNear. Gob-bodied
// rather than hand-packed, since this format answers to nobody but this
// package.
//
// File layout:
//
//	Header (16 bytes):
//	  magic:       [4]byte  "PCPF"
//	  version:     uint32   LE
//	  indexOffset: uint64   LE  -- byte offset of the trailer
//
//	Body: for each record, in append order:
//	  length: uint32 LE
//	  gob-encoded flatRecord, length bytes
//
//	Trailer at indexOffset: one gob-encoded flatTrailer.
package interp

import (
	"bufio"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"sort"
)

var (
	flatMagic   = [4]byte{'P', 'C', 'P', 'F'}
	flatVersion = uint32(1)
)

// IndomData is one indom's static instance list plus its snapshot history,
// as supplied by whatever produced the archive (there is no derivation from
// records -- the flat format, like real PCP archives, carries indom
// metadata independently of the metric value stream).
type IndomData struct {
	Insts     []InstID
	Snapshots []IndomSnapshot
}

// flatValue is Value with its pinned buffer flattened to a plain byte slice
// for serialization; pinnedBuffer pointers have no meaning across a process
// boundary.
type flatValue struct {
	I32    int32
	U32    uint32
	I64    int64
	U64    uint64
	F32    float32
	F64    float64
	Bytes  []byte
	Valfmt Valfmt
}

type flatInstValue struct {
	Inst  InstID
	Value flatValue
}

type flatValueSet struct {
	PMID   PMID
	Valfmt Valfmt
	Insts  []flatInstValue
}

type flatRecord struct {
	Kind    RecordKind
	Sec     int64
	Nsec    int32
	Sets    []flatValueSet
	Virtual bool
}

type flatIndexEntry struct {
	Sec    int64
	Nsec   int32
	Offset int64 // byte offset of this record's length prefix
}

type flatTrailer struct {
	Name    string
	Descs   map[PMID]MetricDesc
	Indoms  map[IndomID]IndomData
	Index   []flatIndexEntry
	EndFlag bool // whether the archive was finalized (EndTime is fixed)
}

func toFlatValue(v Value) flatValue {
	return flatValue{I32: v.I32, U32: v.U32, I64: v.I64, U64: v.U64, F32: v.F32, F64: v.F64, Bytes: v.Bytes(), Valfmt: v.Valfmt}
}

func fromFlatValue(fv flatValue) Value {
	v := Value{I32: fv.I32, U32: fv.U32, I64: fv.I64, U64: fv.U64, F32: fv.F32, F64: fv.F64, Valfmt: fv.Valfmt}
	if fv.Bytes != nil {
		v.Buf = newPinnedBuffer(fv.Bytes)
	}
	return v
}

func toFlatRecord(r Record) flatRecord {
	fr := flatRecord{Kind: r.Kind, Sec: r.T.Sec, Nsec: r.T.Nsec, Virtual: r.Virtual}
	for _, vs := range r.Sets {
		fvs := flatValueSet{PMID: vs.PMID, Valfmt: vs.Valfmt}
		for _, iv := range vs.Insts {
			fvs.Insts = append(fvs.Insts, flatInstValue{Inst: iv.Inst, Value: toFlatValue(iv.Value)})
		}
		fr.Sets = append(fr.Sets, fvs)
	}
	return fr
}

func fromFlatRecord(fr flatRecord) Record {
	r := Record{Kind: fr.Kind, T: Timestamp{Sec: fr.Sec, Nsec: fr.Nsec}, Virtual: fr.Virtual}
	for _, fvs := range fr.Sets {
		vs := ValueSet{PMID: fvs.PMID, Valfmt: fvs.Valfmt}
		for _, fiv := range fvs.Insts {
			vs.Insts = append(vs.Insts, InstValue{Inst: fiv.Inst, Value: fromFlatValue(fiv.Value)})
		}
		r.Sets = append(r.Sets, vs)
	}
	return r
}

// WriteFlatArchive serializes a complete record timeline plus metadata to
// path in the flat-file format. Records need not be pre-sorted. Intended
// for building fixtures and for cmd/pmfetchd's -gen-sample flag, not as a
// production ingestion path.
func WriteFlatArchive(path, name string, descs map[PMID]MetricDesc, indoms map[IndomID]IndomData, records []Record) error {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T.Sub(sorted[j].T) < 0 })

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if _, err := bw.Write(flatMagic[:]); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, flatVersion); err != nil {
		return err
	}
	// Placeholder for indexOffset; patched once the true value is known.
	if err := binary.Write(bw, binary.LittleEndian, uint64(0)); err != nil {
		return err
	}

	offset := int64(16)
	index := make([]flatIndexEntry, 0, len(sorted))
	for _, r := range sorted {
		index = append(index, flatIndexEntry{Sec: r.T.Sec, Nsec: r.T.Nsec, Offset: offset})

		buf, err := gobEncode(toFlatRecord(r))
		if err != nil {
			return err
		}

		if err := binary.Write(bw, binary.LittleEndian, uint32(len(buf))); err != nil {
			return err
		}
		if _, err := bw.Write(buf); err != nil {
			return err
		}
		offset += 4 + int64(len(buf))
	}

	trailer := flatTrailer{Name: name, Descs: descs, Indoms: indoms, Index: index, EndFlag: true}
	trailerBytes, err := gobEncode(trailer)
	if err != nil {
		return err
	}
	indexOffset := offset
	if _, err := bw.Write(trailerBytes); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	if _, err := f.Seek(8, io.SeekStart); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, uint64(indexOffset))
}

func gobEncode(v any) ([]byte, error) {
	buf := &byteBuf{}
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// byteBuf is a minimal io.Writer sink; avoids pulling in bytes.Buffer just
// to satisfy gob.NewEncoder here.
type byteBuf struct{ data []byte }

func (b *byteBuf) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

// FlatReader is the disk-backed counterpart to memReader: it loads a flat
// archive's trailer (metadata + index) into memory at open time and reads
// record bodies from disk on demand, keyed by the same cursor-over-sorted-
// index model memReader uses.
type FlatReader struct {
	path    string
	f       *os.File
	trailer flatTrailer
	cursor  int
}

// OpenFlatArchive opens a file written by WriteFlatArchive.
func OpenFlatArchive(path string) (*FlatReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var header [16]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		f.Close()
		return nil, fmt.Errorf("interp: flat archive %s: reading header: %w", path, err)
	}
	if [4]byte(header[:4]) != flatMagic {
		f.Close()
		return nil, fmt.Errorf("interp: flat archive %s: bad magic", path)
	}
	indexOffset := int64(binary.LittleEndian.Uint64(header[8:16]))

	if _, err := f.Seek(indexOffset, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	var trailer flatTrailer
	if err := gob.NewDecoder(f).Decode(&trailer); err != nil {
		f.Close()
		return nil, fmt.Errorf("interp: flat archive %s: reading trailer: %w", path, err)
	}

	return &FlatReader{path: path, f: f, trailer: trailer}, nil
}

func (r *FlatReader) Close() error { return r.f.Close() }

func (r *FlatReader) Name() string { return r.trailer.Name }

func (r *FlatReader) readAt(offset int64) (Record, error) {
	if _, err := r.f.Seek(offset, io.SeekStart); err != nil {
		return Record{}, err
	}
	var length uint32
	if err := binary.Read(r.f, binary.LittleEndian, &length); err != nil {
		return Record{}, err
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r.f, buf); err != nil {
		return Record{}, err
	}
	var fr flatRecord
	if err := gob.NewDecoder(&staticReader{buf}).Decode(&fr); err != nil {
		return Record{}, err
	}
	return fromFlatRecord(fr), nil
}

// staticReader turns an already-in-memory byte slice into an io.Reader
// without importing bytes solely for bytes.NewReader.
type staticReader struct{ buf []byte }

func (s *staticReader) Read(p []byte) (int, error) {
	if len(s.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}

func (r *FlatReader) ReadRecord(dir Direction) (Record, error) {
	idx := r.trailer.Index
	if dir == Forward {
		if r.cursor >= len(idx) {
			return Record{}, ErrEOF
		}
		rec, err := r.readAt(idx[r.cursor].Offset)
		if err != nil {
			return Record{}, err
		}
		r.cursor++
		return rec, nil
	}
	if r.cursor <= 0 {
		return Record{}, ErrEOF
	}
	r.cursor--
	return r.readAt(idx[r.cursor].Offset)
}

func (r *FlatReader) Tell() Position {
	return Position{Volume: 0, Offset: int64(r.cursor)}
}

func (r *FlatReader) Seek(p Position) error {
	r.cursor = int(p.Offset)
	return nil
}

func (r *FlatReader) ChangeVolume(int) error { return nil }

func (r *FlatReader) StartTime() Timestamp {
	idx := r.trailer.Index
	if len(idx) == 0 {
		return Timestamp{}
	}
	return Timestamp{Sec: idx[0].Sec, Nsec: idx[0].Nsec}
}

func (r *FlatReader) EndTime() (Timestamp, error) {
	idx := r.trailer.Index
	if len(idx) == 0 {
		return Timestamp{}, nil
	}
	return Timestamp{Sec: idx[len(idx)-1].Sec, Nsec: idx[len(idx)-1].Nsec}, nil
}

// SeekNear positions the cursor at the first record whose time is >= t,
// binary-searching the in-memory index -- the one place the flat reader
// actually behaves like a real temporal index.
func (r *FlatReader) SeekNear(t Timestamp) error {
	tf := t.Sub(Timestamp{})
	idx := r.trailer.Index
	i := sort.Search(len(idx), func(i int) bool {
		return Timestamp{Sec: idx[i].Sec, Nsec: idx[i].Nsec}.Sub(Timestamp{}) >= tf
	})
	r.cursor = i
	return nil
}

func (r *FlatReader) Descriptor(pmid PMID) (MetricDesc, bool) {
	d, ok := r.trailer.Descs[pmid]
	return d, ok
}

func (r *FlatReader) InstanceList(indom IndomID) []InstID {
	return r.trailer.Indoms[indom].Insts
}

func (r *FlatReader) IndomSnapshots(indom IndomID) []IndomSnapshot {
	return r.trailer.Indoms[indom].Snapshots
}
