// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import "fmt"

// ErrKind classifies why a Fetch (or a per-metric slot within one) failed.
type ErrKind int

const (
	_ ErrKind = iota
	ErrEOL
	ErrLogRecCorrupt
	ErrOSErr
	ErrPMIDNotLogged
	ErrTypeUnsupported
	ErrUnknownIndom
	ErrNotFound
	ErrBadLabel
)

func (k ErrKind) String() string {
	switch k {
	case ErrEOL:
		return "EOL"
	case ErrLogRecCorrupt:
		return "LOGREC_CORRUPT"
	case ErrOSErr:
		return "OSERR"
	case ErrPMIDNotLogged:
		return "PMID_NOT_LOGGED"
	case ErrTypeUnsupported:
		return "TYPE_UNSUPPORTED"
	case ErrUnknownIndom:
		return "UNKNOWN_INDOM"
	case ErrNotFound:
		return "NOT_FOUND"
	case ErrBadLabel:
		return "BAD_LABEL"
	default:
		return "UNKNOWN"
	}
}

// Numval is the negative numval encoding used for per-metric failures in a
// FetchResult.
func (k ErrKind) Numval() int32 {
	return -int32(k)
}

// Error is the typed error surfaced by the engine's public operations.
type Error struct {
	Kind  ErrKind
	PMID  PMID
	Inst  InstID
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("interp: %s (pmid=%d inst=%d): %v", e.Kind, e.PMID, e.Inst, e.Cause)
	}
	return fmt.Sprintf("interp: %s (pmid=%d inst=%d)", e.Kind, e.PMID, e.Inst)
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func errEOL() *Error { return &Error{Kind: ErrEOL} }

func errCorrupt(pmid PMID, inst InstID, cause error) *Error {
	return &Error{Kind: ErrLogRecCorrupt, PMID: pmid, Inst: inst, Cause: cause}
}

func errOOM(cause error) *Error { return &Error{Kind: ErrOSErr, Cause: cause} }

func errUnknownIndom(indom IndomID) *Error {
	return &Error{Kind: ErrUnknownIndom, Cause: fmt.Errorf("indom %d", indom)}
}
