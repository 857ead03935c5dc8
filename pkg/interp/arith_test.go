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

func TestInterpolateFloat64Midpoint(t *testing.T) {
	desc := MetricDesc{Type: TypeF64}
	v, err := interpolate(desc, Value{F64: 10}, Value{F64: 20}, 0, 5, 10, false)
	require.NoError(t, err)
	assert.Equal(t, 15.0, v.F64)
}

func TestInterpolateUnsignedNoWrap(t *testing.T) {
	v, err := interpUnsigned(100, 200, 0.5, 1<<32, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(150), v)
}

// TestInterpolateUnsignedWrap reproduces the worked 32-bit unsigned counter
// wrap example: v_prior near TYPE_MAX, v_next small, wrap enabled.
func TestInterpolateUnsignedWrap(t *testing.T) {
	const modulus = uint64(1) << 32
	vPrior := modulus - 10 // 4294967286
	vNext := uint64(10)
	v, err := interpUnsigned(vPrior, vNext, 0.5, modulus, true)
	require.NoError(t, err)
	// delta' = TYPE_MAX - v_prior + 1 + v_next = 9 + 1 + 10 = 20
	// half of 20 = 10
	want := (vPrior + 10) % modulus
	assert.Equal(t, want, v)
}

func TestInterpolateUnsignedWrapDisabled(t *testing.T) {
	const modulus = uint64(1) << 32
	vPrior := modulus - 10
	vNext := uint64(10)
	v, err := interpUnsigned(vPrior, vNext, 0.5, modulus, false)
	require.NoError(t, err)
	// without wrap, a "decreasing" counter is treated as a reset: linear
	// interpolation simply moves backward from v_prior.
	delta := vPrior - vNext
	want := vPrior - uint64(roundHalfAwayFromZero(float64(delta)*0.5))
	assert.Equal(t, want, v)
}

// TestInterpolateSigned32Wrap checks the signed counter path reuses the same
// modulus arithmetic as the unsigned case, including the final truncation
// into int32's two's-complement range once the wrapped sum exceeds it.
func TestInterpolateSigned32Wrap(t *testing.T) {
	got := interpSigned(2147483640, -2147483640, 0.5, 1<<32, true)
	assert.Equal(t, int32(-2147483648), got)
}

func TestNearestInstantPicksEarlierOnTie(t *testing.T) {
	prior := Value{I32: 1}
	next := Value{I32: 2}
	v := nearestInstant(prior, next, 0, 5, 10)
	assert.Equal(t, prior, v)
}

func TestNearestInstantPicksLater(t *testing.T) {
	prior := Value{I32: 1}
	next := Value{I32: 2}
	v := nearestInstant(prior, next, 0, 6, 10)
	assert.Equal(t, next, v)
}

func TestInsituFloat32BitExact(t *testing.T) {
	// 0x3F800000 is the IEEE-754 bit pattern for 1.0.
	got := insituFloat32(int32(0x3F800000))
	assert.Equal(t, float32(1.0), got)
}

func TestInterpolateUnsupportedType(t *testing.T) {
	desc := MetricDesc{Type: TypeString, PMID: 42}
	_, err := interpolate(desc, Value{}, Value{}, 0, 1, 2, false)
	require.Error(t, err)
	var ie *Error
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, ErrTypeUnsupported, ie.Kind)
}

func TestInterpolateZeroWidthBracket(t *testing.T) {
	desc := MetricDesc{Type: TypeF64}
	v, err := interpolate(desc, Value{F64: 7}, Value{F64: 99}, 5, 5, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 7.0, v.F64)
}
