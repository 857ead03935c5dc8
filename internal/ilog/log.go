// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ilog provides leveled logging for the interpolation engine.
//
// Time/Date are not logged by default because systemd adds them for us
// (change with SetTimestamps(true)).
//
// Uses these prefixes: https://www.freedesktop.org/software/systemd/man/sd-daemon.html
package ilog

import (
	"fmt"
	"io"
	"log"
	"os"
)

var timestamps bool

var (
	debugWriter io.Writer = os.Stderr
	infoWriter  io.Writer = os.Stderr
	warnWriter  io.Writer = os.Stderr
	errWriter   io.Writer = os.Stderr
)

const (
	debugPrefix = "<7>[DEBUG]    "
	infoPrefix  = "<6>[INFO]     "
	warnPrefix  = "<4>[WARNING]  "
	errPrefix   = "<3>[ERROR]    "
)

var (
	debugLog = log.New(debugWriter, debugPrefix, 0)
	infoLog  = log.New(infoWriter, infoPrefix, 0)
	warnLog  = log.New(warnWriter, warnPrefix, log.Lshortfile)
	errLog   = log.New(errWriter, errPrefix, log.Llongfile)

	debugTimeLog = log.New(debugWriter, debugPrefix, log.LstdFlags)
	infoTimeLog  = log.New(infoWriter, infoPrefix, log.LstdFlags)
	warnTimeLog  = log.New(warnWriter, warnPrefix, log.LstdFlags|log.Lshortfile)
	errTimeLog   = log.New(errWriter, errPrefix, log.LstdFlags|log.Llongfile)
)

// SetLevel silences every writer below lvl ("debug", "info", "warn", "err").
func SetLevel(lvl string) {
	switch lvl {
	case "err", "fatal":
		warnWriter = io.Discard
		fallthrough
	case "warn":
		infoWriter = io.Discard
		fallthrough
	case "info":
		debugWriter = io.Discard
	case "debug":
		// nothing silenced
	default:
		fmt.Printf("ilog: invalid loglevel %q, using \"debug\"\n", lvl)
		SetLevel("debug")
	}
}

// SetTimestamps enables/disables date-time prefixes (disabled by default).
func SetTimestamps(on bool) {
	timestamps = on
}

func Debugf(format string, v ...interface{}) {
	if debugWriter != io.Discard {
		if timestamps {
			debugTimeLog.Output(2, fmt.Sprintf(format, v...))
		} else {
			debugLog.Output(2, fmt.Sprintf(format, v...))
		}
	}
}

func Infof(format string, v ...interface{}) {
	if infoWriter != io.Discard {
		if timestamps {
			infoTimeLog.Output(2, fmt.Sprintf(format, v...))
		} else {
			infoLog.Output(2, fmt.Sprintf(format, v...))
		}
	}
}

func Warnf(format string, v ...interface{}) {
	if warnWriter != io.Discard {
		if timestamps {
			warnTimeLog.Output(2, fmt.Sprintf(format, v...))
		} else {
			warnLog.Output(2, fmt.Sprintf(format, v...))
		}
	}
}

func Errorf(format string, v ...interface{}) {
	if errWriter != io.Discard {
		if timestamps {
			errTimeLog.Output(2, fmt.Sprintf(format, v...))
		} else {
			errLog.Output(2, fmt.Sprintf(format, v...))
		}
	}
}
