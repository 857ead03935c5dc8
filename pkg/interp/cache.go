// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// cacheSlots is a small fixed-size ring of the last N reads, keyed on
// archive identity and position.
const cacheSlots = 4

// cacheKey identifies a cached read by the reader position it was issued
// from. headPos is always the cursor *before* the read, for both
// directions, so a lookup only ever needs the current Tell() to match --
// tailPos (the cursor after the read) is kept on cacheEntry for replay but
// deliberately excluded from the key.
type cacheKey struct {
	name    string
	volume  int
	headPos int64
	dir     Direction
}

type cacheEntry struct {
	key     cacheKey
	tailPos int64
	record  Record
	err     error
	valid   bool
	used    int
}

// ReadCache amortizes repeated short direction reversals during bound
// search. The default backend reproduces PCP's classic pure rotating-index
// eviction (ac_cache_idx = (idx+1) % NUMCACHE); an opt-in backend
// (EngineConfig.ReadCacheLRU) substitutes a true bounded LRU built on
// hashicorp/golang-lru for workloads that thrash the rotation.
type ReadCache struct {
	reader ArchiveReader

	// rotating backend
	slots  [cacheSlots]cacheEntry
	cursor int

	// lru backend
	lruBackend *lru.Cache[cacheKey, cacheEntry]
	useLRU     bool

	hits, misses int64

	lastVirtualMark *Record
	lastDirection   Direction
}

func newReadCache(r ArchiveReader, useLRU bool) *ReadCache {
	c := &ReadCache{reader: r, useLRU: useLRU}
	if useLRU {
		l, _ := lru.New[cacheKey, cacheEntry](cacheSlots)
		c.lruBackend = l
	}
	return c
}

func (c *ReadCache) currentKey(dir Direction, pos Position) cacheKey {
	return cacheKey{name: c.reader.Name(), volume: pos.Volume, headPos: pos.Offset, dir: dir}
}

func (c *ReadCache) lookup(dir Direction) (cacheEntry, bool) {
	key := c.currentKey(dir, c.reader.Tell())
	for _, s := range c.slots {
		if s.valid && s.key == key {
			return s, true
		}
	}
	return cacheEntry{}, false
}

func (c *ReadCache) lookupLRU(dir Direction) (cacheEntry, bool) {
	pos := c.reader.Tell()
	key := c.currentKey(dir, pos)
	if e, ok := c.lruBackend.Get(key); ok {
		return e, true
	}
	return cacheEntry{}, false
}

// Read returns the next record in direction dir, consulting the cache
// first. Re-emits a pending virtual mark without advancing the reader if
// the previous read generated one and direction has reversed.
func (c *ReadCache) Read(dir Direction) (Record, error) {
	if c.lastVirtualMark != nil && dir != c.lastDirection {
		m := *c.lastVirtualMark
		c.lastVirtualMark = nil
		return m, nil
	}

	var hit cacheEntry
	var ok bool
	if c.useLRU {
		hit, ok = c.lookupLRU(dir)
	} else {
		hit, ok = c.lookup(dir)
	}
	if ok {
		c.hits++
		if hit.err != nil {
			return Record{}, hit.err
		}
		_ = c.reader.Seek(Position{Volume: hit.key.volume, Offset: hit.tailPos})
		return hit.record, nil
	}

	c.misses++
	headPos := c.reader.Tell()
	rec, err := c.reader.ReadRecord(dir)
	tailPos := c.reader.Tell()

	if rec.Virtual {
		c.lastVirtualMark = &rec
		c.lastDirection = dir
		// Virtual marks and volume/archive transitions are never cached: the
		// slot stays free.
		return rec, err
	}

	entry := cacheEntry{
		key: cacheKey{
			name:    c.reader.Name(),
			volume:  headPos.Volume,
			headPos: headPos.Offset,
			dir:     dir,
		},
		tailPos: tailPos.Offset,
		record:  rec,
		err:     err,
		valid:   true,
	}

	if headPos.Volume == tailPos.Volume {
		if c.useLRU {
			c.lruBackend.Add(entry.key, entry)
		} else {
			c.insertRotating(entry)
		}
	}

	return rec, err
}

// insertRotating implements the classic ac_cache_idx = (idx+1) % NUMCACHE
// policy verbatim: rotate the insertion cursor one slot per miss,
// regardless of each slot's `used` counter (tracked for parity but never
// consulted for eviction).
func (c *ReadCache) insertRotating(e cacheEntry) {
	e.used = 1
	c.slots[c.cursor] = e
	c.cursor = (c.cursor + 1) % cacheSlots
}
