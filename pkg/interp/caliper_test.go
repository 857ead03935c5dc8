// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCaliperBirthDeath(t *testing.T) {
	snapshots := []IndomSnapshot{
		{T: Timestamp{Sec: 0}, Insts: []InstID{1, 2}},
		{T: Timestamp{Sec: 10}, Insts: []InstID{1, 2, 3}},
		{T: Timestamp{Sec: 20}, Insts: []InstID{2, 3}},
	}
	c := buildCaliper(42, snapshots)

	// Instance 1 only ever appeared in the two oldest snapshots: born at
	// t=0, dead as of the snapshot after its last appearance, at t=20.
	birth, death := c.Lookup(1)
	assert.Equal(t, 0.0, birth)
	assert.Equal(t, 20.0, death)

	// Instance 2 appeared in every snapshot, including the newest: death is
	// unset (still alive as of the last known snapshot).
	birth, death = c.Lookup(2)
	assert.Equal(t, 0.0, birth)
	assert.Equal(t, unset, death)

	// Instance 3 first appears at t=10, and is still alive at t=20.
	birth, death = c.Lookup(3)
	assert.Equal(t, 10.0, birth)
	assert.Equal(t, unset, death)
}

func TestCaliperLookupUnknownInstance(t *testing.T) {
	c := buildCaliper(1, nil)
	birth, death := c.Lookup(99)
	assert.Equal(t, unset, birth)
	assert.Equal(t, unset, death)
}

func TestNilCaliperLookupIsUnset(t *testing.T) {
	var c *Caliper
	birth, death := c.Lookup(1)
	assert.Equal(t, unset, birth)
	assert.Equal(t, unset, death)
}

func TestCaliperPersistRoundTrip(t *testing.T) {
	dir := t.TempDir()
	snapshots := []IndomSnapshot{
		{T: Timestamp{Sec: 0}, Insts: []InstID{1}},
		{T: Timestamp{Sec: 10}, Insts: []InstID{1, 2}},
	}
	c := buildCaliper(7, snapshots)
	persistCaliper(dir, "archive-a", c)

	loaded, ok := loadCaliperCache(dir, "archive-a", 7)
	require.True(t, ok)
	birth, death := loaded.Lookup(2)
	assert.Equal(t, 10.0, birth)
	assert.Equal(t, unset, death)
}

func TestCaliperCacheMissIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	_, ok := loadCaliperCache(dir, "never-written", 1)
	assert.False(t, ok)

	_, err := os.Stat(caliperCachePath(dir, "never-written", 1))
	assert.True(t, os.IsNotExist(err))
}

func TestPersistCaliperSkipsClean(t *testing.T) {
	dir := t.TempDir()
	c := buildCaliper(1, nil)
	c.dirty = false
	persistCaliper(dir, "archive-b", c)

	_, err := os.Stat(caliperCachePath(dir, "archive-b", 1))
	assert.True(t, os.IsNotExist(err))
}
