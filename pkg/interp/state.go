// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

// BoundState is the tagged state of one side (prior or next) of an
// InstanceState's bracket around t_req. Modeled as a small enum plus a
// separate Scanned bool rather than a combined bitflag.
type BoundState int

const (
	Undefined BoundState = iota
	Mark
	HasValue
)

// unset is the sentinel for an unknown t_prior/t_next/t_first/t_last/t_birth/t_death.
const unset = -1.0

// instanceKey identifies one (metric, instance) pair.
type instanceKey struct {
	pmid PMID
	inst InstID
}

// InstanceState is the per-(metric,instance) scratch the fetch state
// machine maintains across the lifetime of an archive context.
type InstanceState struct {
	key instanceKey

	tPrior float64
	sPrior BoundState
	vPrior Value

	tNext float64
	sNext BoundState
	vNext Value

	scannedPrior bool
	scannedNext  bool

	tFirst float64
	tLast  float64
	tBirth float64
	tDeath float64

	// search and its list membership are transient, rebuilt each fetch.
	search bool
}

func newInstanceState(key instanceKey) *InstanceState {
	return &InstanceState{
		key:    key,
		tPrior: unset,
		tNext:  unset,
		tFirst: unset,
		tLast:  unset,
		tBirth: unset,
		tDeath: unset,
	}
}

// withinBounds reports whether t lies within the instance's currently
// known [t_prior, t_next] bracket (both sides Value).
func (s *InstanceState) withinBounds(t float64) bool {
	return s.sPrior == HasValue && s.sNext == HasValue && s.tPrior <= t && t <= s.tNext
}

// resetIfOutside applies the reset rule: if t_req falls outside the current
// bracket, drop both bounds to Undefined and release any pinned buffers.
func (s *InstanceState) resetIfOutside(t float64) {
	inBracket := s.sPrior == HasValue && s.sNext == HasValue && s.tPrior <= t && t <= s.tNext
	if inBracket {
		return
	}
	// A single Value bound still covering t (e.g. Discrete with only
	// prior known, or one side still Undefined) is left alone; a bracket
	// that provably excludes t_req on either side is torn down whole.
	if (s.sPrior == HasValue && s.tPrior > t) || (s.sNext == HasValue && s.tNext < t) {
		s.clearPrior()
		s.clearNext()
	}
}

func (s *InstanceState) clearPrior() {
	s.vPrior.Buf.unpin()
	s.vPrior = Value{}
	s.sPrior = Undefined
	s.tPrior = unset
	s.scannedPrior = false
}

func (s *InstanceState) clearNext() {
	s.vNext.Buf.unpin()
	s.vNext = Value{}
	s.sNext = Undefined
	s.tNext = unset
	s.scannedNext = false
}

// setPriorValue installs v as the new prior bound at time t, unpinning
// whatever buffer previously occupied the slot.
func (s *InstanceState) setPriorValue(t float64, v Value) {
	s.vPrior.Buf.unpin()
	s.tPrior = t
	s.sPrior = HasValue
	s.vPrior = v
}

func (s *InstanceState) setNextValue(t float64, v Value) {
	s.vNext.Buf.unpin()
	s.tNext = t
	s.sNext = HasValue
	s.vNext = v
}

func (s *InstanceState) setPriorMark(t float64) {
	s.vPrior.Buf.unpin()
	s.vPrior = Value{}
	s.tPrior = t
	s.sPrior = Mark
}

func (s *InstanceState) setNextMark(t float64) {
	s.vNext.Buf.unpin()
	s.vNext = Value{}
	s.tNext = t
	s.sNext = Mark
}

// release unpins any held buffers; called on context teardown.
func (s *InstanceState) release() {
	s.vPrior.Buf.unpin()
	s.vNext.Buf.unpin()
	s.vPrior.Buf = nil
	s.vNext.Buf = nil
}

// outsideCaliper reports whether t is provably outside [t_birth, t_death].
func (s *InstanceState) outsideCaliper(t float64) bool {
	if s.tBirth == unset && s.tDeath == unset {
		return false
	}
	if s.tBirth != unset && t < s.tBirth {
		return true
	}
	if s.tDeath != unset && t > s.tDeath {
		return true
	}
	return false
}
