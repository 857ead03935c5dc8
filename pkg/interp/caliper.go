// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/performancecopilot/archive-interp/internal/ilog"
	"github.com/performancecopilot/archive-interp/internal/util"
)

// caliperBounds is one instance's precomputed lifetime.
type caliperBounds struct {
	Birth float64
	Death float64
}

// Caliper holds the precomputed (t_birth, t_death) for every instance of
// one indom, activated only once the indom's instance count crosses
// EngineConfig.CaliperThreshold (default 16).
type Caliper struct {
	indom  IndomID
	bounds map[InstID]caliperBounds
	dirty  bool
}

// buildCaliper walks IndomSnapshots newest->oldest: first sighting of an
// instance (walking backward in time)
// records t_birth=t and t_death=t_previous (the next *later* snapshot's
// time, or unset if this is the newest snapshot); re-sighting pushes birth
// earlier.
func buildCaliper(indom IndomID, snapshots []IndomSnapshot) *Caliper {
	c := &Caliper{indom: indom, bounds: make(map[InstID]caliperBounds)}
	if len(snapshots) == 0 {
		return c
	}

	sorted := make([]IndomSnapshot, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].T.Sub(sorted[j].T) > 0 })

	var prevT float64 = unset
	for _, snap := range sorted {
		t := snap.T.Sub(Timestamp{})
		seenHere := make(map[InstID]bool, len(snap.Insts))
		for _, inst := range snap.Insts {
			seenHere[inst] = true
			b, ok := c.bounds[inst]
			if !ok {
				c.bounds[inst] = caliperBounds{Birth: t, Death: prevT}
			} else {
				b.Birth = t
				c.bounds[inst] = b
			}
		}
		prevT = t
	}
	c.dirty = true
	return c
}

// Lookup returns (t_birth, t_death) for inst, or (unset, unset) if the
// instance never appeared in any snapshot -- an unknown instance is never
// pruned by the caliper, only left unbounded.
func (c *Caliper) Lookup(inst InstID) (birth, death float64) {
	if c == nil {
		return unset, unset
	}
	b, ok := c.bounds[inst]
	if !ok {
		return unset, unset
	}
	return b.Birth, b.Death
}

// Instances returns every instance the caliper has bounds for, unordered.
// Used by cmd/pmfetchd's /debug/caliper/{indom} introspection endpoint.
func (c *Caliper) Instances() []InstID {
	if c == nil {
		return nil
	}
	out := make([]InstID, 0, len(c.bounds))
	for inst := range c.bounds {
		out = append(out, inst)
	}
	return out
}

// caliperFile is the on-disk persistence format for a Caliper, stored at a
// path built from the archive's base name and the indom (caliperCachePath).
type caliperFile struct {
	Indom  IndomID                  `json:"indom"`
	Bounds map[InstID]caliperBounds `json:"bounds"`
}

// caliperCachePath returns the gzip-compressed persistence path for a
// caliper. Bound tables for high-cardinality indoms (the only ones that
// activate caliper mode, see CaliperThreshold) are repetitive enough that
// gzipping routinely shrinks them 5-10x, which matters once a site persists
// one file per indom per archive.
func caliperCachePath(dir string, archiveName string, indom IndomID) string {
	return filepath.Join(dir, fmt.Sprintf("%s.indom%d.caliper.json.gz", filepath.Base(archiveName), indom))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// loadCaliperCache attempts to read a persisted Caliper; a missing or
// unreadable file is never an error -- it just means recomputation happens.
// A file written before the archive changed is not detected and is used as
// is. Persistence is pure acceleration, never an error path.
func loadCaliperCache(dir, archiveName string, indom IndomID) (*Caliper, bool) {
	if dir == "" {
		return nil, false
	}
	path := caliperCachePath(dir, archiveName, indom)
	if !util.CheckFileExists(path) {
		return nil, false
	}

	// util.UncompressFile deletes its input, so decompress a throwaway copy
	// and leave the persisted .gz in place for the next process to read.
	copyPath := path + ".tmp-read"
	if err := copyFile(path, copyPath); err != nil {
		return nil, false
	}
	plainPath := path + ".tmp-plain"
	if err := util.UncompressFile(copyPath, plainPath); err != nil {
		ilog.Debugf("interp: caliper cache %s unreadable, recomputing: %v", path, err)
		return nil, false
	}
	defer os.Remove(plainPath)

	data, err := os.ReadFile(plainPath)
	if err != nil {
		return nil, false
	}
	var cf caliperFile
	if err := json.Unmarshal(data, &cf); err != nil {
		ilog.Debugf("interp: caliper cache %s unreadable, recomputing: %v", path, err)
		return nil, false
	}
	return &Caliper{indom: cf.Indom, bounds: cf.Bounds, dirty: false}, true
}

// persistCaliper writes c to dir, best-effort; a write failure is logged
// but never propagated -- the caliper cache is acceleration only.
func persistCaliper(dir, archiveName string, c *Caliper) {
	if dir == "" || c == nil || !c.dirty {
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		ilog.Warnf("interp: could not create caliper cache dir %s: %v", dir, err)
		return
	}
	cf := caliperFile{Indom: c.indom, Bounds: c.bounds}
	data, err := json.Marshal(cf)
	if err != nil {
		ilog.Warnf("interp: could not marshal caliper cache: %v", err)
		return
	}
	path := caliperCachePath(dir, archiveName, c.indom)
	plainPath := path + ".tmp-plain"
	if err := os.WriteFile(plainPath, data, 0o644); err != nil {
		ilog.Warnf("interp: could not write caliper cache %s: %v", path, err)
		return
	}
	os.Remove(path)
	if err := util.CompressFile(plainPath, path); err != nil {
		ilog.Warnf("interp: could not compress caliper cache %s: %v", path, err)
		return
	}
	c.dirty = false
}
