// Package inspect orchestrates image inspections: reference
// validation, local/remote existence checks, pulls with progress,
// running the dive analyzer, normalizing its report, and relaying
// progress to subscribers.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/nrednav/cuid2"

	"github.com/aurablacklight/docker-dive-web-ui/lib/dive"
	"github.com/aurablacklight/docker-dive-web-ui/lib/docker"
	"github.com/aurablacklight/docker-dive-web-ui/lib/logger"
	"github.com/aurablacklight/docker-dive-web-ui/lib/registry"
)

// Progress bands per pipeline phase. Pull progress is scaled into its
// band so the overall figure never moves backwards between phases.
const (
	progressChecking  = 5
	progressPullStart = 10
	progressPullEnd   = 60
	progressAnalyzing = 65
)

// Engine is the slice of the Docker Engine API the pipeline needs.
type Engine interface {
	ImageExists(ctx context.Context, ref string) (bool, error)
	ImageSize(ctx context.Context, ref string) (int64, error)
	History(ctx context.Context, ref string) ([]docker.HistoryEntry, error)
	Pull(ctx context.Context, ref string, fn docker.PullProgressFunc) error
	Ping(ctx context.Context) error
}

// RemoteChecker answers whether an image exists upstream.
type RemoteChecker interface {
	Head(ctx context.Context, ref string) (*registry.Descriptor, error)
}

// Health reports dependency reachability for the health endpoint.
type Health struct {
	Status string `json:"status"`
	Dive   string `json:"dive"`
	Engine string `json:"engine"`
}

// Manager runs and tracks inspections.
type Manager interface {
	// Inspect runs (or joins) an inspection of name and blocks until it
	// completes or ctx ends. refresh bypasses the result cache.
	Inspect(ctx context.Context, name string, refresh bool) (*Inspection, error)
	// Progress returns the live progress record for name.
	Progress(name string) (*Progress, error)
	// Subscribe registers the (single) progress subscriber for name.
	Subscribe(name string) (<-chan Event, func(), error)
	// Health checks the dive binary and engine reachability.
	Health(ctx context.Context) Health
}

// Options configures NewManager.
type Options struct {
	MaxConcurrent int
	ProgressTTL   time.Duration
	CacheSize     int
	Rules         *RuleSet
}

type inflightRun struct {
	done   chan struct{}
	result *Inspection
	err    error
}

type manager struct {
	analyzer dive.Analyzer
	engine   Engine
	remote   RemoteChecker
	rules    *RuleSet

	tracker *Tracker
	queue   *InspectQueue
	cache   *lru.Cache[string, *Inspection]
	metrics *Metrics

	mu       sync.Mutex
	inflight map[string]*inflightRun
}

// NewManager creates a Manager.
func NewManager(analyzer dive.Analyzer, engine Engine, remote RemoteChecker, opts Options) (Manager, error) {
	if opts.CacheSize < 1 {
		opts.CacheSize = 64
	}
	if opts.ProgressTTL <= 0 {
		opts.ProgressTTL = 5 * time.Minute
	}

	cache, err := lru.New[string, *Inspection](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}

	return &manager{
		analyzer: analyzer,
		engine:   engine,
		remote:   remote,
		rules:    opts.Rules,
		tracker:  NewTracker(opts.ProgressTTL),
		queue:    NewInspectQueue(opts.MaxConcurrent),
		cache:    cache,
		inflight: make(map[string]*inflightRun),
	}, nil
}

func (m *manager) Inspect(ctx context.Context, name string, refresh bool) (*Inspection, error) {
	ref, err := normalizeReference(name)
	if err != nil {
		return nil, err
	}
	log := logger.FromContext(ctx)

	if !refresh {
		if cached, ok := m.cache.Get(ref); ok {
			log.DebugContext(ctx, "returning cached analysis", "ref", ref)
			hit := *cached
			hit.Cached = true
			return &hit, nil
		}
	}

	run := m.joinOrStart(ctx, ref)

	select {
	case <-run.done:
		return run.result, run.err
	case <-ctx.Done():
		// The run keeps going for other waiters and the cache.
		return nil, ctx.Err()
	}
}

// joinOrStart returns the in-flight run for ref, starting one if none
// exists. Concurrent requests for the same reference share one dive
// subprocess.
func (m *manager) joinOrStart(ctx context.Context, ref string) *inflightRun {
	m.mu.Lock()
	defer m.mu.Unlock()

	if run, ok := m.inflight[ref]; ok {
		return run
	}

	run := &inflightRun{done: make(chan struct{})}
	m.inflight[ref] = run

	log := logger.FromContext(ctx)
	m.tracker.Update(ref, StatusQueued, 0, "inspection queued")
	pos := m.queue.Enqueue(ref, func() {
		m.runInspection(logger.AddToContext(context.Background(), log), ref, run)
	})
	if pos > 0 {
		m.tracker.SetQueuePosition(ref, &pos)
	}
	return run
}

// runInspection executes the pipeline for one reference. It runs on
// the queue's goroutine, detached from any single request context.
func (m *manager) runInspection(ctx context.Context, ref string, run *inflightRun) {
	started := time.Now()
	log := logger.FromContext(ctx)

	defer func() {
		m.mu.Lock()
		delete(m.inflight, ref)
		m.mu.Unlock()
		close(run.done)

		status := StatusComplete
		if run.err != nil {
			status = StatusError
		}
		m.recordInspection(ctx, started, status)
	}()

	fail := func(err error) {
		log.ErrorContext(ctx, "inspection failed", "ref", ref, "error", err)
		m.tracker.Fail(ref, err.Error())
		run.err = err
	}

	m.tracker.Update(ref, StatusChecking, progressChecking, "checking local engine")
	exists, err := m.engine.ImageExists(ctx, ref)
	if err != nil {
		fail(fmt.Errorf("check local image: %w", err))
		return
	}

	if !exists {
		m.tracker.Update(ref, StatusChecking, progressPullStart, "checking registry")
		if _, err := m.remote.Head(ctx, ref); err != nil {
			if errors.Is(err, registry.ErrNotFound) {
				fail(fmt.Errorf("%w: %s", ErrImageNotFound, ref))
			} else {
				fail(err)
			}
			return
		}

		m.tracker.Update(ref, StatusPulling, progressPullStart, "pulling image")
		err := m.engine.Pull(ctx, ref, func(p docker.PullProgress) {
			scaled := progressPullStart + p.Percent*(progressPullEnd-progressPullStart)/100
			m.tracker.Update(ref, StatusPulling, scaled, p.Message)
		})
		m.recordPull(ctx, err)
		if err != nil {
			if errors.Is(err, docker.ErrImageNotFound) {
				fail(fmt.Errorf("%w: %s", ErrImageNotFound, ref))
			} else {
				fail(fmt.Errorf("pull image: %w", err))
			}
			return
		}
	}

	m.tracker.Update(ref, StatusAnalyzing, progressAnalyzing, "running dive analysis")
	report, err := m.analyzer.Analyze(ctx, ref)
	if err != nil {
		fail(err)
		return
	}

	analysis := m.normalize(ctx, ref, report)
	analysis.Rules = m.rules.Evaluate(analysis)

	inspection := &Inspection{
		ID:          cuid2.Generate(),
		Image:       ref,
		Analysis:    analysis,
		DurationMS:  time.Since(started).Milliseconds(),
		CompletedAt: time.Now(),
	}
	m.cache.Add(ref, inspection)
	m.tracker.Complete(ref, "analysis complete")
	log.InfoContext(ctx, "inspection complete", "ref", ref,
		"efficiency", analysis.Efficiency, "wasted_bytes", analysis.WastedBytes,
		"layers", len(analysis.Layers), "duration_ms", inspection.DurationMS)
	run.result = inspection
}

// normalize picks the analysis shape for the report source. Text-only
// reports get layer detail backfilled from the engine's image history.
func (m *manager) normalize(ctx context.Context, ref string, report *dive.Report) *Analysis {
	log := logger.FromContext(ctx)

	if report.Source == dive.SourceJSON {
		return buildAnalysis(report)
	}

	log.WarnContext(ctx, "dive JSON artifact unusable, backfilling layers from engine history", "ref", ref)
	size, err := m.engine.ImageSize(ctx, ref)
	if err != nil {
		log.WarnContext(ctx, "image size lookup failed", "ref", ref, "error", err)
	}
	history, err := m.engine.History(ctx, ref)
	if err != nil {
		log.WarnContext(ctx, "image history lookup failed", "ref", ref, "error", err)
	}
	return analysisFromHistory(report, history, size)
}

func (m *manager) Progress(name string) (*Progress, error) {
	ref, err := normalizeReference(name)
	if err != nil {
		return nil, err
	}

	rec, ok := m.tracker.Get(ref)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoProgress, ref)
	}
	if rec.Status == StatusQueued {
		rec.QueuePosition = m.queue.Position(ref)
	}
	return &rec, nil
}

func (m *manager) Subscribe(name string) (<-chan Event, func(), error) {
	ref, err := normalizeReference(name)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := m.tracker.Subscribe(ref)
	return ch, cancel, nil
}

func (m *manager) Health(ctx context.Context) Health {
	h := Health{Status: "ok", Dive: "ok", Engine: "ok"}

	if available, ok := m.analyzer.(interface{ Available() error }); ok {
		if err := available.Available(); err != nil {
			h.Status = "degraded"
			h.Dive = err.Error()
		}
	}
	if err := m.engine.Ping(ctx); err != nil {
		h.Status = "degraded"
		h.Engine = err.Error()
	}
	return h
}
