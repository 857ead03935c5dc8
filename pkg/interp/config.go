// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"encoding/json"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/performancecopilot/archive-interp/internal/ilog"
)

// MarkMode selects how discontinuity marks are evaluated against a gap.
type MarkMode int

const (
	// MarksHonored means every mark is treated as a real discontinuity (default).
	MarksHonored MarkMode = iota
	// MarksIgnoredAlways means every mark is skipped over as if absent.
	MarksIgnoredAlways
	// MarksGapBounded means a mark is skipped only if its flanking real
	// samples are no further apart than GapThreshold.
	MarksGapBounded
)

// EngineConfig is the process-wide set of toggles PCP has traditionally
// captured as global mutable singletons (nr, dowrap, ignore_mark_records,
// ...). It is read once from the environment (after an optional .env load)
// and is read-only for the remainder of the process lifetime.
type EngineConfig struct {
	// CounterWrap enables 32-/64-bit counter wrap handling. Sourced from
	// PCP_COUNTER_WRAP (presence, any value, enables it).
	CounterWrap bool

	// MarkMode and GapThreshold implement PCP_IGNORE_MARK_RECORDS.
	MarkMode    MarkMode
	GapThreshold time.Duration

	// ReadCacheLRU switches the ReadCache backend from the classic
	// rotating-index policy to a true bounded LRU (hashicorp/golang-lru).
	ReadCacheLRU bool

	// CaliperThreshold is the minimum instance count before TimeCaliper
	// activates for an indom (design threshold ≥ 16).
	CaliperThreshold int

	// CaliperCacheDir, if non-empty, persists computed calipers as
	// gzip-compressed JSON files so a re-opened archive skips the backward indom walk.
	CaliperCacheDir string

	// EndOfArchiveRetryInterval bounds how often a stalled fetch may
	// re-attempt end-of-archive discovery.
	EndOfArchiveRetryInterval time.Duration
}

var (
	globalConfig     EngineConfig
	globalConfigOnce sync.Once
)

// openOptionsSchema validates the JSON-shaped subset of EngineConfig that
// callers may supply explicitly to Open (caliper cache dir/threshold,
// read-cache backend) rather than via environment variables.
const openOptionsSchema = `{
  "type": "object",
  "properties": {
    "caliperThreshold": {"type": "integer", "minimum": 1},
    "caliperCacheDir": {"type": "string"},
    "readCacheLRU": {"type": "boolean"},
    "endOfArchiveRetryIntervalMs": {"type": "integer", "minimum": 0}
  },
  "additionalProperties": false
}`

// OpenOptions is the optional JSON document accepted by Open to tune the
// non-environment-sourced parts of EngineConfig.
type OpenOptions struct {
	CaliperThreshold            int    `json:"caliperThreshold"`
	CaliperCacheDir             string `json:"caliperCacheDir"`
	ReadCacheLRU                bool   `json:"readCacheLRU"`
	EndOfArchiveRetryIntervalMs int    `json:"endOfArchiveRetryIntervalMs"`
}

// ValidateOpenOptions checks raw against openOptionsSchema and returns a
// decoded OpenOptions on success.
func ValidateOpenOptions(raw json.RawMessage) (OpenOptions, error) {
	var opts OpenOptions
	if len(raw) == 0 {
		return opts, nil
	}

	sch, err := jsonschema.CompileString("open-options.json", openOptionsSchema)
	if err != nil {
		return opts, err
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return opts, err
	}
	if err := sch.Validate(v); err != nil {
		return opts, err
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}

// loadGlobalConfig reads EngineConfig from the environment exactly once per
// process, loading an optional ./.env file first. Safe to call repeatedly;
// only the first call has effect.
func loadGlobalConfig() {
	globalConfigOnce.Do(func() {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			ilog.Warnf("interp: could not load .env: %v", err)
		}

		cfg := EngineConfig{
			CaliperThreshold:          16,
			EndOfArchiveRetryInterval: 2 * time.Second,
		}

		if _, ok := os.LookupEnv("PCP_COUNTER_WRAP"); ok {
			cfg.CounterWrap = true
		}

		if v, ok := os.LookupEnv("PCP_IGNORE_MARK_RECORDS"); ok {
			if v == "" {
				cfg.MarkMode = MarksIgnoredAlways
			} else if d, err := parseInterval(v); err == nil {
				cfg.MarkMode = MarksGapBounded
				cfg.GapThreshold = d
			} else {
				ilog.Warnf("interp: PCP_IGNORE_MARK_RECORDS=%q is not a parseable interval, honoring marks", v)
			}
		}

		globalConfig = cfg
		ilog.Debugf("interp: engine config loaded: wrap=%v markMode=%v gapThreshold=%v", cfg.CounterWrap, cfg.MarkMode, cfg.GapThreshold)
	})
}

// parseInterval accepts either a bare-seconds-with-optional-fraction string
// ("11", "0.5") or a Go duration string ("11s", "500ms").
func parseInterval(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(f * float64(time.Second)), nil
}

// GlobalConfig returns the process-wide EngineConfig, loading it on first use.
func GlobalConfig() EngineConfig {
	loadGlobalConfig()
	return globalConfig
}
