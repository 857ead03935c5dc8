// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of cc-backend.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package interp

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/time/rate"

	"github.com/performancecopilot/archive-interp/internal/ilog"
)

// instanceProfile is either a literal instance-id set or a compiled
// boolean expression evaluated per instance. A plain set is
// the common case and never touches the expr VM.
type instanceProfile struct {
	set      map[InstID]bool
	useSet   bool
	program  *vm.Program
	exprText string
}

func newSetProfile(ids []InstID) instanceProfile {
	set := make(map[InstID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return instanceProfile{set: set, useSet: true}
}

// newExprProfile compiles expr against an environment exposing the fields
// of profileEnv (ID, Name, Birth, Death) for each candidate instance. Fetch
// has no instance names to supply, so Name is always the empty string there.
func newExprProfile(exprText string) (instanceProfile, error) {
	program, err := expr.Compile(exprText, expr.Env(profileEnv{}), expr.AsBool())
	if err != nil {
		return instanceProfile{}, err
	}
	return instanceProfile{program: program, exprText: exprText}, nil
}

type profileEnv struct {
	ID    int32
	Name  string
	Birth float64
	Death float64
}

func (p instanceProfile) matches(inst InstID, name string, birth, death float64) bool {
	if p.useSet {
		if len(p.set) == 0 {
			return true
		}
		return p.set[inst]
	}
	if p.program == nil {
		return true
	}
	out, err := expr.Run(p.program, profileEnv{ID: int32(inst), Name: name, Birth: birth, Death: death})
	if err != nil {
		ilog.Warnf("interp: instance_profile expression %q failed for inst %d: %v", p.exprText, inst, err)
		return false
	}
	b, _ := out.(bool)
	return b
}

// ArchiveContext is the engine's sole public handle. Every public method
// takes the context's mutex, so calls on one context (including a daemon's
// background caliper persistence) are serialized rather than concurrent.
type ArchiveContext struct {
	mu sync.Mutex

	name      string
	reader    ArchiveReader
	cache     *ReadCache
	cfg       EngineConfig

	direction Direction
	origin    Timestamp
	interval  Timestamp

	states   map[instanceKey]*InstanceState
	calipers map[IndomID]*Caliper
	profiles map[IndomID]instanceProfile

	descCache map[PMID]MetricDesc
	valfmt    map[PMID]Valfmt

	prevReturnedValue map[instanceKey]bool

	gotAnchor bool
	anchor    Position

	eolLimiter *rate.Limiter

	diag             diagCounters
	lastCacheHits    int64
	lastCacheMisses  int64
}

// syncCacheMetrics folds the ReadCache's running hit/miss counters into the
// context's diagCounters/Prometheus surface. Cheap to call after every scan
// since it only ever reports the delta since the previous call.
func (c *ArchiveContext) syncCacheMetrics() {
	hits, misses := c.cache.hits, c.cache.misses
	for i := int64(0); i < hits-c.lastCacheHits; i++ {
		c.diag.recordCache(c.name, true)
	}
	for i := int64(0); i < misses-c.lastCacheMisses; i++ {
		c.diag.recordCache(c.name, false)
	}
	c.lastCacheHits, c.lastCacheMisses = hits, misses
}

// Open establishes a new ArchiveContext over reader.
func Open(name string, reader ArchiveReader, direction Direction, origin Timestamp, opts OpenOptions) (*ArchiveContext, error) {
	loadGlobalConfig()
	cfg := GlobalConfig()
	if opts.CaliperThreshold > 0 {
		cfg.CaliperThreshold = opts.CaliperThreshold
	}
	if opts.CaliperCacheDir != "" {
		cfg.CaliperCacheDir = opts.CaliperCacheDir
	}
	if opts.ReadCacheLRU {
		cfg.ReadCacheLRU = true
	}
	if opts.EndOfArchiveRetryIntervalMs > 0 {
		cfg.EndOfArchiveRetryInterval = time.Duration(opts.EndOfArchiveRetryIntervalMs) * time.Millisecond
	}

	registerMetrics()

	ctx := &ArchiveContext{
		name:              name,
		reader:            reader,
		cache:             newReadCache(reader, cfg.ReadCacheLRU),
		cfg:               cfg,
		direction:         direction,
		origin:            origin,
		states:            make(map[instanceKey]*InstanceState),
		calipers:          make(map[IndomID]*Caliper),
		profiles:          make(map[IndomID]instanceProfile),
		descCache:         make(map[PMID]MetricDesc),
		valfmt:            make(map[PMID]Valfmt),
		prevReturnedValue: make(map[instanceKey]bool),
		eolLimiter:        rate.NewLimiter(rate.Every(cfg.EndOfArchiveRetryInterval), 1),
	}
	return ctx, nil
}

// Close releases every pinned buffer held by the context and persists its
// calipers. The context must not be used again afterward -- releasing
// buffers drops block-encoded values out from under any bound that still
// claims HasValue.
func (c *ArchiveContext) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.states {
		s.release()
	}
	c.persistCalipersLocked()
}

// PersistCalipers writes every computed caliper to CaliperCacheDir without
// disturbing instance state, safe to call periodically on a live context
// (cmd/pmfetchd's background persistence job does exactly this).
func (c *ArchiveContext) PersistCalipers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.persistCalipersLocked()
}

func (c *ArchiveContext) persistCalipersLocked() {
	if c.cfg.CaliperCacheDir == "" {
		return
	}
	for _, cal := range c.calipers {
		persistCaliper(c.cfg.CaliperCacheDir, c.reader.Name(), cal)
	}
}

// SetOrigin changes the logical clock and invalidates Scanned state that no
// longer covers it.
func (c *ArchiveContext) SetOrigin(t Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.origin = t
	c.resetInterp(t.Sub(Timestamp{}))
}

func (c *ArchiveContext) SetDirection(dir Direction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.direction = dir
}

func (c *ArchiveContext) SetInterval(delta Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interval = delta
}

// NotifyGrowth lets an external watcher (internal/util.Listener driven off
// fsnotify, see cmd/pmfetchd) short-circuit the EOL retry backoff the next
// time Fetch hits end-of-archive, instead of waiting out
// EndOfArchiveRetryInterval. A mid-fetch volume append is exactly the event
// that makes a previously-true EOL false again, so the replacement limiter
// starts with a full burst and lets the very next boundary check through.
func (c *ArchiveContext) NotifyGrowth() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.eolLimiter = rate.NewLimiter(rate.Every(c.cfg.EndOfArchiveRetryInterval), 1)
}

// SetInstanceProfile installs a literal instance set for indom, after
// confirming the archive actually knows about indom.
func (c *ArchiveContext) SetInstanceProfile(indom IndomID, insts []InstID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reader.InstanceList(indom)) == 0 {
		return errUnknownIndom(indom)
	}
	c.profiles[indom] = newSetProfile(insts)
	return nil
}

// SetInstanceProfileExpr installs a compiled boolean-expression predicate
// for indom, compiled once with expr-lang/expr.
func (c *ArchiveContext) SetInstanceProfileExpr(indom IndomID, exprText string) error {
	p, err := newExprProfile(exprText)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.reader.InstanceList(indom)) == 0 {
		return errUnknownIndom(indom)
	}
	c.profiles[indom] = p
	return nil
}

// resetInterp walks every InstanceState and, wherever a bound no longer
// covers newOrigin, drops both bounds, clearing Scanned.
func (c *ArchiveContext) resetInterp(newOrigin float64) {
	for _, s := range c.states {
		if (s.sPrior == HasValue && s.tPrior > newOrigin) || (s.sNext == HasValue && s.tNext < newOrigin) {
			s.clearPrior()
			s.clearNext()
		}
	}
	c.gotAnchor = false
}

func (c *ArchiveContext) stateFor(pmid PMID, inst InstID) *InstanceState {
	key := instanceKey{pmid: pmid, inst: inst}
	s, ok := c.states[key]
	if !ok {
		s = newInstanceState(key)
		c.states[key] = s
	}
	return s
}

// Caliper returns the currently-computed caliper for indom, if any, for
// read-only inspection (cmd/pmfetchd's /debug/caliper/{indom} route). It
// never triggers computation -- that only happens lazily inside Fetch, once
// an indom's instance count crosses CaliperThreshold.
func (c *ArchiveContext) Caliper(indom IndomID) (*Caliper, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cal, ok := c.calipers[indom]
	return cal, ok
}

func (c *ArchiveContext) caliperFor(indom IndomID, instCount int) *Caliper {
	if instCount < c.cfg.CaliperThreshold {
		return nil
	}
	if cal, ok := c.calipers[indom]; ok {
		return cal
	}
	if cal, ok := loadCaliperCache(c.cfg.CaliperCacheDir, c.reader.Name(), indom); ok {
		c.calipers[indom] = cal
		return cal
	}
	cal := buildCaliper(indom, c.reader.IndomSnapshots(indom))
	c.calipers[indom] = cal
	return cal
}

// wanted is pass 1's per-metric working set: the enumerated, filtered
// InstanceStates plus the metric's descriptor and valfmt bookkeeping.
type wanted struct {
	desc    MetricDesc
	states  []*InstanceState
	numval  int32
	notLogged bool
}

// Fetch runs the full InterpFetch algorithm for pmids at the context's
// current logical clock.
func (c *ArchiveContext) Fetch(pmids []PMID) (FetchResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	tReq := c.origin.Sub(Timestamp{})
	result := FetchResult{Timestamp: c.origin}

	// Step 1: boundary checks.
	if tReq < c.reader.StartTime().Sub(Timestamp{})-0.001 {
		c.advanceClock()
		return result, errEOL()
	}
	if end, err := c.reader.EndTime(); err == nil {
		if tReq > end.Sub(Timestamp{})+0.001 {
			if c.eolLimiter.Allow() {
				if end2, err2 := c.reader.EndTime(); err2 == nil && tReq <= end2.Sub(Timestamp{})+0.001 {
					// archive grew since last check; fall through
				} else {
					c.advanceClock()
					return result, errEOL()
				}
			} else {
				c.advanceClock()
				return result, errEOL()
			}
		}
	}

	markSeenThisFetch := false

	// Step 2: pass 1, enumerate wanted instances per pmid.
	groups := make([]*wanted, 0, len(pmids))
	allWanted := make(map[instanceKey]*InstanceState)
	for _, pmid := range pmids {
		w := &wanted{}
		desc, ok := c.reader.Descriptor(pmid)
		if !ok {
			w.notLogged = true
			groups = append(groups, w)
			continue
		}
		w.desc = desc

		insts := c.reader.InstanceList(desc.Indom)
		cal := c.caliperFor(desc.Indom, len(insts))
		profile, hasProfile := c.profiles[desc.Indom]

		for _, inst := range insts {
			birth, death := unset, unset
			if cal != nil {
				birth, death = cal.Lookup(inst)
			}
			if hasProfile && !profile.matches(inst, "", birth, death) {
				continue
			}
			s := c.stateFor(pmid, inst)
			if cal != nil {
				s.tBirth, s.tDeath = birth, death
			}
			s.resetIfOutside(tReq)
			w.states = append(w.states, s)
		}
		w.numval = int32(len(w.states))
		for _, s := range w.states {
			allWanted[s.key] = s
		}
		groups = append(groups, w)
	}

	// Step 3: gross positioning, once per context.
	if !c.gotAnchor {
		if err := c.grossPosition(tReq); err != nil {
			ilog.Debugf("interp: gross positioning failed, continuing without anchor: %v", err)
		}
		c.gotAnchor = true
	}

	// Step 4: pass 2, backward -> prior bounds.
	unboundPrior := c.collectUnbound(groups, tReq, true)
	if len(unboundPrior) > 0 {
		if err := c.scan(Backward, tReq, unboundPrior, allWanted, &markSeenThisFetch); err != nil {
			return FetchResult{}, err
		}
	}
	for _, s := range unboundPrior {
		if s.sPrior != HasValue && s.sPrior != Mark {
			s.tFirst = maxFloat(s.tFirst, tReq)
			s.scannedPrior = true
		}
	}

	// Step 5: pass 3, forward -> next bounds.
	unboundNext := c.collectUnbound(groups, tReq, false)
	if len(unboundNext) > 0 {
		if err := c.scan(Forward, tReq, unboundNext, allWanted, &markSeenThisFetch); err != nil {
			return FetchResult{}, err
		}
	}
	for _, s := range unboundNext {
		if s.sNext != HasValue && s.sNext != Mark {
			s.tLast = maxFloat(s.tLast, tReq)
			s.scannedNext = true
		}
	}

	// Step 6: result assembly.
	for _, w := range groups {
		mr := MetricResult{PMID: w.desc.PMID}
		if w.notLogged {
			mr.Numval = ErrPMIDNotLogged.Numval()
			result.Metrics = append(result.Metrics, mr)
			continue
		}
		mr.PMID = w.desc.PMID
		mr.Numval = w.numval
		mr.Valfmt = c.valfmt[w.desc.PMID]
		for _, s := range w.states {
			v, ok, err := c.resolveValue(w.desc, s, tReq, markSeenThisFetch)
			if err != nil {
				var ie *Error
				if errors.As(err, &ie) {
					mr.Numval = ie.Kind.Numval()
					break
				}
				return FetchResult{}, err
			}
			if !ok {
				mr.Numval--
				c.prevReturnedValue[s.key] = false
				continue
			}
			mr.Values = append(mr.Values, InstValue{Inst: s.key.inst, Value: v})
			c.prevReturnedValue[s.key] = true
		}
		result.Metrics = append(result.Metrics, mr)
	}

	c.advanceClock()
	c.syncCacheMetrics()
	return result, nil
}

func maxFloat(a, b float64) float64 {
	if a == unset {
		return b
	}
	return maxOrdered(a, b)
}

// collectUnbound builds the unbound list for one pass, sorted (prior:
// decreasing t_first; next: increasing t_last) so the
// scan loop can stop as soon as it passes the last satisfiable instance.
func (c *ArchiveContext) collectUnbound(groups []*wanted, tReq float64, backward bool) []*InstanceState {
	var out []*InstanceState
	for _, w := range groups {
		for _, s := range w.states {
			if s.outsideCaliper(tReq) {
				continue
			}
			if backward {
				if tReq < s.tFirst && s.tFirst != unset {
					continue
				}
				if s.sPrior == HasValue && s.tPrior <= tReq {
					continue
				}
				if s.scannedPrior {
					continue
				}
				s.search = true
				out = append(out, s)
			} else {
				if s.sNext == HasValue && s.tNext >= tReq {
					continue
				}
				if s.scannedNext {
					continue
				}
				s.search = true
				out = append(out, s)
			}
		}
	}
	if backward {
		sort.Slice(out, func(i, j int) bool { return out[i].tFirst > out[j].tFirst })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].tLast < out[j].tLast })
	}
	return out
}

// grossPosition seeks near t_req via the temporal index, then fine-tunes by
// reading opposite to the context's direction until a record straddles
// t_req, remembering that position as the anchor.
func (c *ArchiveContext) grossPosition(tReq float64) error {
	if err := c.reader.SeekNear(c.origin); err != nil {
		return err
	}
	fineDir := c.direction.Opposite()
	pos := c.reader.Tell()
	for i := 0; i < 64; i++ {
		rec, err := c.cache.Read(fineDir)
		if err != nil {
			c.anchor = pos
			return nil
		}
		c.diag.recordRead(c.name, fineDir)
		t := rec.T.Sub(Timestamp{})
		far := (fineDir == Backward && t <= tReq) || (fineDir == Forward && t >= tReq)
		if far {
			// pos (captured before this read) sits between this record and
			// its neighbour: after a backward fine-tune a backward read from
			// pos finds this record and a forward read the one after it;
			// after a forward fine-tune the roles swap. That straddle point
			// is where passes 2 and 3 each resume their scan from.
			c.anchor = pos
			return nil
		}
		pos = c.reader.Tell()
	}
	c.anchor = pos
	return nil
}

// scan seeks to the anchor and reads in dir, calling updateBounds per
// record, stopping once unbound is fully satisfied or the reader hits the
// edge of the archive.
func (c *ArchiveContext) scan(dir Direction, tReq float64, unbound []*InstanceState, wanted map[instanceKey]*InstanceState, markSeen *bool) error {
	if err := c.reader.Seek(c.anchor); err != nil {
		// best-effort positioning: the scan proceeds from the current cursor
		ilog.Debugf("interp: seek to anchor failed, scanning from current position: %v", err)
	}
	remaining := unbound
	for len(remaining) > 0 {
		rec, err := c.cache.Read(dir)
		if err != nil {
			if errors.Is(err, ErrEOF) {
				break
			}
			return err
		}
		c.diag.recordRead(c.name, dir)
		satisfiedPrefix, rest, stop, err := c.updateBounds(rec, dir, tReq, remaining, wanted, markSeen)
		if err != nil {
			return err
		}
		_ = satisfiedPrefix
		remaining = rest
		if stop {
			break
		}
	}
	return nil
}

// updateBounds applies one record to every still-unbound instance it can
// affect, then trims the unbound list per the sorted-list early-stop rule
// and implements the mark/value bound logic. A
// valfmt change mid-archive for a metric the engine is already tracking is
// a corrupt log record: the scan aborts rather than silently returning a
// partial result.
func (c *ArchiveContext) updateBounds(rec Record, dir Direction, tReq float64, unbound []*InstanceState, wanted map[instanceKey]*InstanceState, markSeen *bool) (satisfied []*InstanceState, rest []*InstanceState, stop bool, err error) {
	t := rec.T.Sub(Timestamp{})

	if rec.Kind == RecordMark {
		if c.shouldIgnoreMark(dir, t) {
			return nil, unbound, false, nil
		}
		*markSeen = true
		for _, s := range unbound {
			if dir == Backward {
				if t <= tReq && (s.sPrior != HasValue || t > s.tPrior) {
					s.setPriorMark(t)
				}
			} else {
				if t >= tReq && (s.sNext != HasValue || t < s.tNext) {
					s.setNextMark(t)
				}
			}
		}
	} else {
		for _, vs := range rec.Sets {
			for _, iv := range vs.Insts {
				key := instanceKey{pmid: vs.PMID, inst: iv.Inst}
				s, ok := wanted[key]
				if !ok {
					continue
				}
				if known, ok2 := c.valfmt[vs.PMID]; ok2 && known != vs.Valfmt {
					return nil, unbound, true, errCorrupt(vs.PMID, iv.Inst, fmt.Errorf("valfmt changed from %v to %v", known, vs.Valfmt))
				}
				c.valfmt[vs.PMID] = vs.Valfmt

				if dir == Backward {
					if t <= tReq && (s.tPrior == unset || t >= s.tPrior) {
						if s.sNext != HasValue && s.sPrior == HasValue && s.tPrior > tReq {
							shuffled := s.vPrior
							shuffled.Buf = shuffled.Buf.pin()
							s.setNextValue(s.tPrior, shuffled)
							s.scannedNext = false
						}
						s.setPriorValue(t, iv.Value)
					}
					if t >= tReq && (s.tNext == unset || t <= s.tNext) {
						v := iv.Value
						if s.sPrior == HasValue && s.tPrior == t {
							v.Buf = v.Buf.pin() // the prior slot holds the same value
						}
						s.setNextValue(t, v)
					}
				} else {
					if t <= tReq && (s.tPrior == unset || t >= s.tPrior) {
						s.setPriorValue(t, iv.Value)
					}
					if t >= tReq && (s.tNext == unset || t <= s.tNext) {
						if s.sPrior != HasValue && s.sNext == HasValue && s.tNext < tReq {
							shuffled := s.vNext
							shuffled.Buf = shuffled.Buf.pin()
							s.setPriorValue(s.tNext, shuffled)
							s.scannedPrior = false
						}
						v := iv.Value
						if s.sPrior == HasValue && s.tPrior == t {
							v.Buf = v.Buf.pin() // the prior slot holds the same value
						}
						s.setNextValue(t, v)
					}
				}
				if s.tFirst == unset || t < s.tFirst {
					s.tFirst = t
				}
				if s.tLast == unset || t > s.tLast {
					s.tLast = t
				}
			}
		}
	}

	// Trim the sorted unbound list: drop every instance that is now
	// satisfied, keep the rest, and stop walking at the first instance that
	// provably cannot be satisfied by continuing the scan.
	var done []*InstanceState
	for i, s := range unbound {
		if dir == Backward {
			if s.sPrior == HasValue && s.tPrior <= tReq {
				s.scannedPrior = true
				s.search = false
				done = append(done, s)
				continue
			}
			if s.tFirst != unset && s.tFirst < t {
				rest = append(rest, unbound[i:]...)
				break
			}
			rest = append(rest, s)
			continue
		}
		if s.sNext == HasValue && s.tNext >= tReq {
			s.scannedNext = true
			s.search = false
			done = append(done, s)
			continue
		}
		if s.tLast != unset && s.tLast > t {
			rest = append(rest, unbound[i:]...)
			break
		}
		rest = append(rest, s)
	}
	return done, rest, len(rest) == 0, nil
}

// shouldIgnoreMark implements the three-mode mark-ignore policy.
func (c *ArchiveContext) shouldIgnoreMark(dir Direction, markT float64) bool {
	switch c.cfg.MarkMode {
	case MarksHonored:
		return false
	case MarksIgnoredAlways:
		return true
	case MarksGapBounded:
		var tPriorReal, tNextReal float64
		found := true
		err := WithSavepoint(c.reader, func() error {
			// A backward scan leaves the cursor in front of the mark, so step
			// over it first. Then peek forward to the next real record and
			// three back (that record again, the mark, the prior real
			// record); WithSavepoint restores the cursor afterward. Any
			// failure on either side degrades to honoring the mark.
			if dir == Backward {
				if _, err := c.reader.ReadRecord(Forward); err != nil {
					found = false
					return nil
				}
			}
			fwd, err := c.reader.ReadRecord(Forward)
			if err != nil || fwd.Kind == RecordMark {
				found = false
				return nil
			}
			tNextReal = fwd.T.Sub(Timestamp{})

			for i := 0; i < 2; i++ {
				if _, err := c.reader.ReadRecord(Backward); err != nil {
					found = false
					return nil
				}
			}
			back, err := c.reader.ReadRecord(Backward)
			if err != nil || back.Kind == RecordMark {
				found = false
				return nil
			}
			tPriorReal = back.T.Sub(Timestamp{})
			return nil
		})
		if err != nil || !found {
			return false
		}
		return tNextReal-tPriorReal <= c.cfg.GapThreshold.Seconds()
	default:
		return false
	}
}

// resolveValue computes the final value (or "no value") for s at tReq per
// the per-semantics rules for the metric's value semantics.
func (c *ArchiveContext) resolveValue(desc MetricDesc, s *InstanceState, tReq float64, markSeenThisFetch bool) (Value, bool, error) {
	switch desc.Sem {
	case SemDiscrete:
		if s.sPrior != HasValue {
			return Value{}, false, nil
		}
		if s.tBirth != unset && tReq < s.tBirth {
			return Value{}, false, nil
		}
		if s.tDeath != unset && tReq > s.tDeath {
			return Value{}, false, nil
		}
		return s.vPrior, true, nil

	case SemInstant:
		if s.sPrior != HasValue || s.sNext != HasValue {
			return Value{}, false, nil
		}
		if tReq == s.tPrior {
			return s.vPrior, true, nil
		}
		if tReq == s.tNext {
			return s.vNext, true, nil
		}
		return nearestInstant(s.vPrior, s.vNext, s.tPrior, tReq, s.tNext), true, nil

	case SemCounter:
		if s.sPrior != HasValue || s.sNext != HasValue {
			return Value{}, false, nil
		}
		if markSeenThisFetch && c.prevReturnedValue[s.key] {
			return Value{}, false, nil
		}
		if tReq == s.tPrior {
			return s.vPrior, true, nil
		}
		if tReq == s.tNext {
			return s.vNext, true, nil
		}
		if desc.Type == TypeString || desc.Type == TypeAggregate || desc.Type == TypeEvent {
			return Value{Buf: s.vPrior.Buf, Valfmt: ValfmtPointer}, true, nil
		}
		v, err := interpolate(desc, s.vPrior, s.vNext, s.tPrior, tReq, s.tNext, c.cfg.CounterWrap)
		if err != nil {
			return Value{}, false, err
		}
		return v, true, nil

	default:
		return Value{}, false, fmt.Errorf("interp: unknown semantics %v", desc.Sem)
	}
}

// advanceClock adds interval to origin, always,
// even on EOL.
func (c *ArchiveContext) advanceClock() {
	c.origin = c.origin.Add(c.interval)
}
