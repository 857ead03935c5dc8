// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"math"

	"golang.org/x/exp/constraints"
)

// maxOrdered is a generic top-of-two helper; fetch.go's bound bookkeeping is
// the one place this package needs it genuinely generically (maxFloat's
// unset-sentinel handling wraps it).
func maxOrdered[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// interpolate computes the result value for a bracketed (prior, next) pair
// at t_req. tPrior < tReq < tNext is assumed to already have been checked
// for the exact-match short-circuit by the caller.
func interpolate(desc MetricDesc, vPrior, vNext Value, tPrior, tReq, tNext float64, wrap bool) (Value, error) {
	dt := tReq - tPrior
	dT := tNext - tPrior
	if dT == 0 {
		return vPrior, nil
	}
	frac := dt / dT

	switch desc.Type {
	case TypeI32:
		return Value{I32: interpSigned(int64(vPrior.I32), int64(vNext.I32), frac, 1<<32, wrap)}, nil
	case TypeU32:
		v, err := interpUnsigned(uint64(vPrior.U32), uint64(vNext.U32), frac, 1<<32, wrap)
		if err != nil {
			return Value{}, err
		}
		return Value{U32: uint32(v)}, nil
	case TypeI64:
		return Value{I64: interpSigned64(vPrior.I64, vNext.I64, frac, wrap)}, nil
	case TypeU64:
		v, err := interpUnsigned64(vPrior.U64, vNext.U64, frac, wrap)
		if err != nil {
			return Value{}, err
		}
		return Value{U64: v}, nil
	case TypeF32:
		return Value{F32: float32(float64(vPrior.F32) + frac*(float64(vNext.F32)-float64(vPrior.F32)))}, nil
	case TypeF64:
		return Value{F64: vPrior.F64 + frac*(vNext.F64-vPrior.F64)}, nil
	default:
		return Value{}, &Error{Kind: ErrTypeUnsupported, PMID: desc.PMID}
	}
}

func roundHalfAwayFromZero(x float64) int64 {
	if x >= 0 {
		return int64(math.Floor(x + 0.5))
	}
	return int64(math.Ceil(x - 0.5))
}

// interpSigned handles the 32-bit signed counter, including wrap: if delta
// is negative and wrap is enabled, treat it as one overflow of the type's
// modulus.
func interpSigned(vPrior, vNext int64, frac float64, modulus int64, wrap bool) int32 {
	delta := vNext - vPrior
	if delta >= 0 {
		return int32(vPrior + roundHalfAwayFromZero(float64(delta)*frac))
	}
	if wrap {
		wrapped := modulus - vPrior + vNext
		return int32((vPrior + roundHalfAwayFromZero(float64(wrapped)*frac)) % modulus)
	}
	return int32(vPrior - roundHalfAwayFromZero(float64(-delta)*frac))
}

func interpSigned64(vPrior, vNext int64, frac float64, wrap bool) int64 {
	delta := vNext - vPrior
	if delta >= 0 {
		return vPrior + roundHalfAwayFromZero(float64(delta)*frac)
	}
	if wrap {
		// math.MaxInt64 * 2 overflows int64 arithmetic; use float64 for the
		// modulus instead.
		modulus := math.MaxInt64
		wrapped := float64(modulus) - float64(vPrior) + float64(vNext)
		return vPrior + roundHalfAwayFromZero(wrapped*frac)
	}
	return vPrior - roundHalfAwayFromZero(float64(-delta)*frac)
}

// interpUnsigned handles the 32-bit unsigned counter: wrap handling
// computes delta' = TYPE_MAX - v_prior + 1 + v_next (one overflow of the
// 32-bit modulus), then applies the same linear formula.
func interpUnsigned(vPrior, vNext uint64, frac float64, modulus uint64, wrap bool) (uint64, error) {
	if vNext >= vPrior {
		delta := vNext - vPrior
		return (vPrior + uint64(roundHalfAwayFromZero(float64(delta)*frac))) % modulus, nil
	}
	if !wrap {
		delta := vPrior - vNext
		return vPrior - uint64(roundHalfAwayFromZero(float64(delta)*frac)), nil
	}
	wrapped := (modulus - vPrior) + vNext
	return (vPrior + uint64(roundHalfAwayFromZero(float64(wrapped)*frac))) % modulus, nil
}

// interpUnsigned64 mirrors interpUnsigned for 64-bit counters. Go's
// float64(uint64) conversion is always correctly rounded, so no precision
// guard around the unsigned-to-double conversion is needed here.
func interpUnsigned64(vPrior, vNext uint64, frac float64, wrap bool) (uint64, error) {
	if vNext >= vPrior {
		delta := vNext - vPrior
		return vPrior + uint64(roundHalfAwayFromZero(float64(delta)*frac)), nil
	}
	if !wrap {
		delta := vPrior - vNext
		return vPrior - uint64(roundHalfAwayFromZero(float64(delta)*frac)), nil
	}
	// The modulus is 2^64, which does not fit in a uint64 delta computation
	// directly; compute in float64 instead.
	const modulus = math.MaxUint64
	wrapped := (modulus - float64(vPrior)) + float64(vNext) + 1
	sum := float64(vPrior) + wrapped*frac
	return uint64(math.Mod(sum, modulus+1)), nil
}

// nearestInstant implements the Instant nearest-neighbor rule:
// v_prior if t_req <= midpoint(t_prior, t_next), else v_next.
func nearestInstant(vPrior, vNext Value, tPrior, tReq, tNext float64) Value {
	mid := (tPrior + tNext) / 2
	if tReq <= mid {
		return vPrior
	}
	return vNext
}

// insituFloat32 decodes an old-style insitu-encoded Float: a 32-bit
// payload bit-reinterpreted as if it were an int32, bit-exactly. The fetch
// path does not call it; Float values are taken from Value.F32.
func insituFloat32(raw int32) float32 {
	return math.Float32frombits(uint32(raw))
}
