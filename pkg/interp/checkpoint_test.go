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

func TestCheckpointRoundTrip(t *testing.T) {
	r := twoSampleReader(SemCounter)
	ctx := openTestContext(t, r, Timestamp{Sec: 5})

	_, err := ctx.Fetch([]PMID{testPMID})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.avro")
	require.NoError(t, ctx.WriteCheckpoint(path))

	entries, err := ReadCheckpoint(path)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, testPMID, e.PMID)
	assert.EqualValues(t, 0, e.Inst)
	assert.Equal(t, 0.0, e.TPrior)
	assert.Equal(t, 10.0, e.TNext)
	assert.Equal(t, HasValue, e.SPrior)
	assert.Equal(t, HasValue, e.SNext)
}
