// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"bufio"
	"fmt"
	"os"

	"github.com/linkedin/goavro/v2"
)

// checkpointSchema describes one InstanceState scratch entry. Checkpoints
// are a diagnostic/debugging aid, not a resumption mechanism: reopening the
// archive recomputes everything a checkpoint records.
const checkpointSchema = `{
  "type": "record",
  "name": "InstanceStateEntry",
  "fields": [
    {"name": "pmid",   "type": "long"},
    {"name": "inst",   "type": "int"},
    {"name": "tPrior", "type": "double"},
    {"name": "sPrior", "type": "int"},
    {"name": "tNext",  "type": "double"},
    {"name": "sNext",  "type": "int"}
  ]
}`

// CheckpointEntry is one decoded row of a checkpoint file.
type CheckpointEntry struct {
	PMID   PMID
	Inst   InstID
	TPrior float64
	SPrior BoundState
	TNext  float64
	SNext  BoundState
}

// WriteCheckpoint snapshots every InstanceState currently held by c into an
// Avro object-container file at path, using deflate compression. Value
// payloads are never checkpointed -- only the bracket bookkeeping, which is
// what a diagnostic tool actually wants to inspect.
func (c *ArchiveContext) WriteCheckpoint(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	codec, err := goavro.NewCodec(checkpointSchema)
	if err != nil {
		return fmt.Errorf("interp: checkpoint codec: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               f,
		Codec:           codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return fmt.Errorf("interp: checkpoint writer: %w", err)
	}

	records := make([]map[string]any, 0, len(c.states))
	for _, s := range c.states {
		records = append(records, map[string]any{
			"pmid":   int64(s.key.pmid),
			"inst":   int32(s.key.inst),
			"tPrior": s.tPrior,
			"sPrior": int32(s.sPrior),
			"tNext":  s.tNext,
			"sNext":  int32(s.sNext),
		})
	}
	return writer.Append(records)
}

// ReadCheckpoint decodes a file written by WriteCheckpoint for offline
// inspection.
func ReadCheckpoint(path string) ([]CheckpointEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader, err := goavro.NewOCFReader(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("interp: checkpoint reader: %w", err)
	}

	var out []CheckpointEntry
	for reader.Scan() {
		rec, err := reader.Read()
		if err != nil {
			return nil, err
		}
		m, ok := rec.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("interp: unexpected checkpoint record shape %T", rec)
		}
		out = append(out, CheckpointEntry{
			PMID:   PMID(m["pmid"].(int64)),
			Inst:   InstID(m["inst"].(int32)),
			TPrior: m["tPrior"].(float64),
			SPrior: BoundState(m["sPrior"].(int32)),
			TNext:  m["tNext"].(float64),
			SNext:  BoundState(m["sNext"].(int32)),
		})
	}
	return out, nil
}
