// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// diagCounters are the per-context best-effort diagnostics (reads, cache
// hits/misses). They are allowed to race across contexts -- plain int64
// fields, not atomics -- since they only ever feed Prometheus and never
// influence a fetch's return value.
type diagCounters struct {
	reads       int64
	cacheHits   int64
	cacheMisses int64
	backward    int64
	forward     int64
}

var (
	metricsOnce sync.Once

	readsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pcp_interp",
		Name:      "reads_total",
		Help:      "Archive records read by the interpolation engine, by context and direction.",
	}, []string{"context", "direction"})

	cacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pcp_interp",
		Name:      "cache_hits_total",
		Help:      "ReadCache hits, by context.",
	}, []string{"context"})

	cacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pcp_interp",
		Name:      "cache_misses_total",
		Help:      "ReadCache misses, by context.",
	}, []string{"context"})
)

// registerMetrics registers the engine's Prometheus instruments exactly
// once, lazily, so a caller that never scrapes /metrics pays nothing
// beyond the struct fields.
func registerMetrics() {
	metricsOnce.Do(func() {
		prometheus.MustRegister(readsTotal, cacheHitsTotal, cacheMissesTotal)
	})
}

func (c *diagCounters) recordRead(ctxName string, dir Direction) {
	c.reads++
	if dir == Backward {
		c.backward++
	} else {
		c.forward++
	}
	readsTotal.WithLabelValues(ctxName, dir.String()).Inc()
}

func (c *diagCounters) recordCache(ctxName string, hit bool) {
	if hit {
		c.cacheHits++
		cacheHitsTotal.WithLabelValues(ctxName).Inc()
	} else {
		c.cacheMisses++
		cacheMissesTotal.WithLabelValues(ctxName).Inc()
	}
}
