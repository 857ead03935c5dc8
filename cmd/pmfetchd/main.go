// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// pmfetchd hosts one interp.ArchiveContext per flat-file archive found in a
// directory and exposes their diagnostics over HTTP: Prometheus
// counters and a /debug/caliper/{indom} introspection endpoint per archive.
// It is a thin diagnostics shell around the engine, not a fetch API server
// -- nothing here calls Fetch; that is for an embedding application to do
// against the *interp.ArchiveContext values this package could expose, were
// it a library. As a standalone daemon its only job is keeping calipers
// warm and persisted, and answering "what does the engine currently think".
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/gops/agent"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/performancecopilot/archive-interp/internal/ilog"
	"github.com/performancecopilot/archive-interp/internal/runtimeEnv"
	"github.com/performancecopilot/archive-interp/internal/util"
	"github.com/performancecopilot/archive-interp/pkg/interp"
)

// daemonConfig is the on-disk config.json, in the same plain-struct,
// json.Decoder.DisallowUnknownFields style cmd/cc-backend used for its
// ProgramConfig.
type daemonConfig struct {
	Addr             string `json:"addr"`
	ArchiveDir       string `json:"archive-dir"`
	CaliperCacheDir  string `json:"caliper-cache-dir"`
	CaliperThreshold int    `json:"caliper-threshold"`
	User             string `json:"user"`
	Group            string `json:"group"`
	PersistInterval  string `json:"persist-interval"`
}

var programConfig = daemonConfig{
	Addr:             ":9090",
	ArchiveDir:       "./var/archives",
	CaliperCacheDir:  "./var/caliper-cache",
	CaliperThreshold: 16,
	PersistInterval:  "5m",
}

// registry holds every archive currently opened from ArchiveDir, keyed by
// file name. Growth watching and the debug handlers both need to look
// contexts up by name, so main builds one registry and passes it to each
// of them.
type registry struct {
	mu               sync.Mutex
	ctxs             map[string]*interp.ArchiveContext
	dir              string
	caliperDir       string
	caliperThreshold int
}

func newRegistry(dir, caliperDir string, caliperThreshold int) *registry {
	return &registry{ctxs: make(map[string]*interp.ArchiveContext), dir: dir, caliperDir: caliperDir, caliperThreshold: caliperThreshold}
}

// scan opens every *.pcpf file under r.dir that is not already tracked.
func (r *registry) scan() {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		ilog.Warnf("pmfetchd: reading archive dir %s: %v", r.dir, err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".pcpf" {
			continue
		}
		if _, ok := r.ctxs[e.Name()]; ok {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		fr, err := interp.OpenFlatArchive(path)
		if err != nil {
			ilog.Errorf("pmfetchd: opening %s: %v", path, err)
			continue
		}

		ctx, err := interp.Open(e.Name(), fr, interp.Forward, fr.StartTime(), interp.OpenOptions{
			CaliperThreshold: r.caliperThreshold,
			CaliperCacheDir:  r.caliperDir,
		})
		if err != nil {
			ilog.Errorf("pmfetchd: opening context for %s: %v", path, err)
			fr.Close()
			continue
		}

		ilog.Infof("pmfetchd: tracking archive %s", e.Name())
		r.ctxs[e.Name()] = ctx
	}
}

func (r *registry) get(name string) (*interp.ArchiveContext, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.ctxs[name]
	return ctx, ok
}

func (r *registry) notifyGrowth(name string) {
	r.mu.Lock()
	ctx, ok := r.ctxs[name]
	r.mu.Unlock()
	if ok {
		ctx.NotifyGrowth()
	}
}

// persistAll flushes every tracked context's caliper cache, leaving bound
// state untouched so contexts stay live for further growth notifications.
func (r *registry) persistAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ctx := range r.ctxs {
		ctx.PersistCalipers()
	}
}

// closeAll is for real shutdown only -- it releases pinned buffers, so the
// contexts must not be touched again afterward.
func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ctx := range r.ctxs {
		ctx.Close()
	}
}

// archiveListener bridges util.Listener/fsnotify events to the registry: a
// Create means a new archive volume landed in the directory, a Write means
// an existing one (presumably still being produced upstream) grew.
type archiveListener struct{ r *registry }

func (l *archiveListener) EventMatch(event string) bool {
	return strings.Contains(event, "CREATE") || strings.Contains(event, "WRITE")
}

func (l *archiveListener) EventCallback() {
	l.r.scan()
	l.r.mu.Lock()
	names := make([]string, 0, len(l.r.ctxs))
	for name := range l.r.ctxs {
		names = append(names, name)
	}
	l.r.mu.Unlock()
	for _, name := range names {
		l.r.notifyGrowth(name)
	}
}

// diskUsageHandler reports how much space the archive directory and the
// caliper cache directory currently occupy, and how many files sit in each,
// for an operator wondering whether the caliper cache needs cleaning out.
func diskUsageHandler(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		type dirUsage struct {
			Path      string  `json:"path"`
			MB        float64 `json:"mb"`
			FileCount int     `json:"file_count"`
		}
		usage := []dirUsage{
			{Path: reg.dir, MB: util.DiskUsage(reg.dir), FileCount: util.GetFilecount(reg.dir)},
		}
		if reg.caliperDir != "" {
			usage = append(usage, dirUsage{Path: reg.caliperDir, MB: util.DiskUsage(reg.caliperDir), FileCount: util.GetFilecount(reg.caliperDir)})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(usage)
	}
}

// archiveSizeHandler reports the on-disk size of one tracked archive file,
// looked up by the same name the registry and the caliper debug route use.
func archiveSizeHandler(reg *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		if _, ok := reg.get(vars["archive"]); !ok {
			http.Error(w, "unknown archive", http.StatusNotFound)
			return
		}
		path := filepath.Join(reg.dir, vars["archive"])
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(struct {
			Bytes int64 `json:"bytes"`
		}{Bytes: util.GetFilesize(path)})
	}
}

func caliperDebugHandler(r *registry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		vars := mux.Vars(req)
		archive := req.URL.Query().Get("archive")
		if archive == "" {
			http.Error(w, "missing ?archive=", http.StatusBadRequest)
			return
		}
		indomN, err := strconv.ParseUint(vars["indom"], 10, 32)
		if err != nil {
			http.Error(w, "bad indom", http.StatusBadRequest)
			return
		}

		ctx, ok := r.get(archive)
		if !ok {
			http.Error(w, "unknown archive", http.StatusNotFound)
			return
		}
		cal, ok := ctx.Caliper(interp.IndomID(indomN))
		if !ok {
			http.Error(w, "no caliper computed yet for that indom", http.StatusNotFound)
			return
		}

		type row struct {
			Inst  int32   `json:"inst"`
			Birth float64 `json:"birth"`
			Death float64 `json:"death"`
		}
		var rows []row
		for _, inst := range cal.Instances() {
			birth, death := cal.Lookup(inst)
			rows = append(rows, row{Inst: int32(inst), Birth: birth, Death: death})
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}
}

func main() {
	var flagConfigFile string
	var flagGops bool
	var flagGenSample string
	flag.StringVar(&flagConfigFile, "config", "./config.json", "Overwrite the default options by those specified in `config.json`")
	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagGenSample, "gen-sample", "", "Write a small synthetic flat archive to `path` and exit, for smoke-testing")
	flag.Parse()

	if flagGenSample != "" {
		if err := writeSampleArchive(flagGenSample); err != nil {
			ilog.Errorf("pmfetchd: -gen-sample failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			ilog.Errorf("gops/agent.Listen failed: %v", err)
			os.Exit(1)
		}
	}

	if f, err := os.Open(flagConfigFile); err == nil {
		dec := json.NewDecoder(f)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&programConfig); err != nil {
			ilog.Errorf("pmfetchd: parsing %s: %v", flagConfigFile, err)
			f.Close()
			os.Exit(1)
		}
		f.Close()
	} else if !os.IsNotExist(err) || flagConfigFile != "./config.json" {
		ilog.Errorf("pmfetchd: opening %s: %v", flagConfigFile, err)
		os.Exit(1)
	}

	reg := newRegistry(programConfig.ArchiveDir, programConfig.CaliperCacheDir, programConfig.CaliperThreshold)
	reg.scan()

	util.AddListener(programConfig.ArchiveDir, &archiveListener{r: reg})
	defer util.FsWatcherShutdown()

	scheduler, err := gocron.NewScheduler()
	if err != nil {
		ilog.Errorf("pmfetchd: gocron.NewScheduler: %v", err)
		os.Exit(1)
	}
	persistInterval, err := time.ParseDuration(programConfig.PersistInterval)
	if err != nil {
		persistInterval = 5 * time.Minute
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(persistInterval),
		gocron.NewTask(func() { reg.persistAll() }),
	); err != nil {
		ilog.Errorf("pmfetchd: scheduling caliper persistence: %v", err)
		os.Exit(1)
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(func() { reg.scan() }),
	); err != nil {
		ilog.Errorf("pmfetchd: scheduling archive rescan: %v", err)
		os.Exit(1)
	}
	scheduler.Start()

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.HandleFunc("/debug/caliper/{indom}", caliperDebugHandler(reg))
	r.HandleFunc("/debug/diskusage", diskUsageHandler(reg))
	r.HandleFunc("/debug/archive/{archive}/size", archiveSizeHandler(reg))

	listener, err := net.Listen("tcp", programConfig.Addr)
	if err != nil {
		ilog.Errorf("pmfetchd: listen on %s: %v", programConfig.Addr, err)
		os.Exit(1)
	}

	if err := runtimeEnv.DropPrivileges(programConfig.User, programConfig.Group); err != nil {
		ilog.Errorf("pmfetchd: dropping privileges: %v", err)
		os.Exit(1)
	}

	server := &http.Server{Handler: r, ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			ilog.Errorf("pmfetchd: server: %v", err)
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	runtimeEnv.SystemdNotifiy(true, "running")
	ilog.Infof("pmfetchd: listening at %s, watching %s", programConfig.Addr, programConfig.ArchiveDir)

	<-sigs
	runtimeEnv.SystemdNotifiy(false, "shutting down")
	_ = scheduler.Shutdown()
	_ = server.Shutdown(context.Background())
	reg.closeAll()
	wg.Wait()
	ilog.Infof("pmfetchd: shutdown complete")
}

// writeSampleArchive produces a tiny two-sample counter archive, enough to
// let an operator point -config at a fresh archive-dir and see a live
// context without hand-building a real PCP archive first.
func writeSampleArchive(path string) error {
	const pmid interp.PMID = 1
	descs := map[interp.PMID]interp.MetricDesc{
		pmid: {PMID: pmid, Type: interp.TypeF64, Indom: 1, Sem: interp.SemCounter},
	}
	indoms := map[interp.IndomID]interp.IndomData{
		1: {Insts: []interp.InstID{0}, Snapshots: []interp.IndomSnapshot{{Insts: []interp.InstID{0}}}},
	}
	records := []interp.Record{
		{Kind: interp.RecordSample, T: interp.Timestamp{Sec: 0}, Sets: []interp.ValueSet{{
			PMID: pmid, Valfmt: interp.ValfmtInsitu,
			Insts: []interp.InstValue{{Inst: 0, Value: interp.Value{F64: 0}}},
		}}},
		{Kind: interp.RecordSample, T: interp.Timestamp{Sec: 60}, Sets: []interp.ValueSet{{
			PMID: pmid, Valfmt: interp.ValfmtInsitu,
			Insts: []interp.InstValue{{Inst: 0, Value: interp.Value{F64: 600}}},
		}}},
	}
	if err := interp.WriteFlatArchive(path, filepath.Base(path), descs, indoms, records); err != nil {
		return err
	}
	fmt.Printf("wrote sample archive to %s\n", path)
	return nil
}
