package engine

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
	"github.com/piwi3910/deepnest/internal/nfp"
)

// bestResultsKept bounds the best-so-far history handed to observers.
const bestResultsKept = 10

// EventKind names the engine's observer events.
type EventKind string

const (
	EventProgress     EventKind = "nest-progress"
	EventComplete     EventKind = "nest-complete"
	EventError        EventKind = "nest-error"
	EventWorkerStatus EventKind = "worker-status"
)

// WorkerStatus describes what the evaluator is currently doing.
type WorkerStatus struct {
	Running   bool
	Operation string
}

// Event is delivered to the progress observer. A Fraction below zero
// on a progress event signals completion of that individual.
type Event struct {
	Kind      EventKind
	NestIndex int
	Fraction  float64
	Err       error
	Status    WorkerStatus
}

// ProgressFunc observes engine events.
type ProgressFunc func(Event)

// ResultFunc receives the best-so-far results, best first.
type ResultFunc func([]model.NestResult)

// Nest is one nesting session. It owns the NFP cache and the worker
// pool; the genetic search runs on a background goroutine until
// stopped.
type Nest struct {
	cfg    model.Config
	logger *slog.Logger

	cache *nfp.Cache
	eng   *nfp.Engine
	pool  *workerPool

	stopFlag atomic.Bool
	running  atomic.Bool
	wg       sync.WaitGroup

	mu   sync.Mutex
	best []model.NestResult
}

// New creates a session for the given configuration.
func New(cfg model.Config, logger *slog.Logger) (*Nest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	cache := nfp.NewCache()
	return &Nest{
		cfg:    cfg,
		logger: logger,
		cache:  cache,
		eng:    nfp.NewEngine(cache, cfg.ClipperScale),
	}, nil
}

// Start validates the inputs, expands quantities, and launches the
// genetic search. It returns immediately; results and progress are
// delivered through the callbacks.
func (n *Nest) Start(parts []model.Part, sheets []model.Sheet, onProgress ProgressFunc, onResult ResultFunc) error {
	if n.running.Load() {
		return fmt.Errorf("nest already running")
	}
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets provided")
	}
	for _, p := range parts {
		if err := model.ValidatePolygon(p.Name, p.Polygon); err != nil {
			return err
		}
	}
	for _, s := range sheets {
		if err := model.ValidatePolygon(s.Name, s.Polygon); err != nil {
			return err
		}
	}

	partPolys, sheetPolys := normalize(parts, sheets)
	if len(partPolys) == 0 {
		return fmt.Errorf("no parts provided")
	}

	n.pool = newWorkerPool(n.cfg.Threads, n.cfg.ClipperScale)
	n.stopFlag.Store(false)
	n.running.Store(true)

	n.logger.Info("starting nest",
		"parts", len(partPolys),
		"sheets", len(sheetPolys),
		"population", n.cfg.PopulationSize,
		"threads", n.cfg.Threads)

	n.wg.Add(1)
	go n.run(partPolys, sheetPolys, onProgress, onResult)
	return nil
}

func (n *Nest) run(parts, sheets []geom.Polygon, onProgress ProgressFunc, onResult ResultFunc) {
	defer n.wg.Done()
	defer n.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("nest aborted", "panic", r)
			if onProgress != nil {
				onProgress(Event{Kind: EventError, Err: fmt.Errorf("nest aborted: %v", r)})
			}
		}
		if onProgress != nil {
			onProgress(Event{Kind: EventWorkerStatus, Status: WorkerStatus{Running: false}})
		}
	}()

	rng := rand.New(rand.NewSource(n.cfg.Seed))
	ga := newGeneticAlgorithm(parts, n.cfg, rng)
	ev := &evaluator{
		cfg:    n.cfg,
		eng:    n.eng,
		pool:   n.pool,
		sheets: sheets,
		parts:  parts,
		emit: func(e Event) {
			if onProgress != nil {
				onProgress(e)
			}
		},
	}

	nestIndex := 0
	for !n.stopFlag.Load() {
		ind := ga.unevaluated()
		if ind == nil {
			ga.generation()
			continue
		}

		result, failed := ev.evaluate(ind, nestIndex)
		ind.evaluated = true
		switch {
		case failed:
			// discarded by the search; see spec for worker failures
			ind.fitness = unplacedPenalty * float64(len(parts))
			n.logger.Warn("individual aborted after worker failure", "nest", nestIndex)
		case result == nil:
			ind.fitness = unplacedPenalty * float64(len(parts))
		default:
			ind.fitness = result.Fitness
			if n.recordResult(*result) && onResult != nil {
				onResult(n.BestResults())
			}
		}

		if onProgress != nil {
			onProgress(Event{Kind: EventProgress, NestIndex: nestIndex, Fraction: -1})
		}
		nestIndex++
	}

	n.logger.Info("nest stopped", "evaluated", nestIndex, "cached_nfps", n.cache.Stats())
}

// recordResult files a result into the best-so-far list and reports
// whether it improved on the previous best.
func (n *Nest) recordResult(r model.NestResult) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	improved := len(n.best) == 0 || r.Fitness < n.best[0].Fitness
	n.best = append(n.best, r)
	sort.SliceStable(n.best, func(i, j int) bool { return n.best[i].Fitness < n.best[j].Fitness })
	if len(n.best) > bestResultsKept {
		n.best = n.best[:bestResultsKept]
	}
	return improved
}

// BestResults returns a copy of the best-so-far results, best first.
func (n *Nest) BestResults() []model.NestResult {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.NestResult, len(n.best))
	copy(out, n.best)
	return out
}

// Stop requests termination. The current individual finishes; workers
// in flight complete their bounded computations. Blocks until the
// search goroutine exits.
func (n *Nest) Stop() {
	if !n.running.Load() {
		return
	}
	n.stopFlag.Store(true)
	n.wg.Wait()
	if n.pool != nil {
		n.pool.shutdown()
		n.pool = nil
	}
}

// Reset clears the NFP cache and the recorded results. The session
// must be stopped first.
func (n *Nest) Reset() {
	n.cache.Clear()
	n.mu.Lock()
	n.best = nil
	n.mu.Unlock()
}

// CacheStats returns the number of cached NFP entries.
func (n *Nest) CacheStats() int { return n.cache.Stats() }

// normalize expands parts and sheets by quantity into engine
// polygons: windings are canonicalized, every distinct ring gets a
// stable source id, and every instance gets a unique id.
func normalize(parts []model.Part, sheets []model.Sheet) (partPolys, sheetPolys []geom.Polygon) {
	nextSource := 0
	nextID := 1

	for _, part := range parts {
		proto := part.Polygon.Clone()
		canonicalizeWinding(&proto)
		assignSources(&proto, &nextSource)
		proto.Filename = part.Name
		for q := 0; q < part.Quantity; q++ {
			inst := proto.Clone()
			inst.ID = nextID
			nextID++
			partPolys = append(partPolys, inst)
		}
	}

	for _, sheet := range sheets {
		proto := sheet.Polygon.Clone()
		canonicalizeWinding(&proto)
		assignSources(&proto, &nextSource)
		proto.Filename = sheet.Name
		proto.Sheet = true
		for q := 0; q < sheet.Quantity; q++ {
			inst := proto.Clone()
			inst.ID = nextID
			nextID++
			sheetPolys = append(sheetPolys, inst)
		}
	}
	return partPolys, sheetPolys
}

// canonicalizeWinding makes outer rings positive and children
// opposite-signed, recursively.
func canonicalizeWinding(p *geom.Polygon) {
	orientRing(p, true)
}

func orientRing(p *geom.Polygon, positive bool) {
	if (geom.RingArea(p.Points) > 0) != positive {
		reverseRing(p.Points)
	}
	for i := range p.Children {
		orientRing(&p.Children[i], !positive)
	}
}

func reverseRing(pts []geom.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

func assignSources(p *geom.Polygon, next *int) {
	p.Source = *next
	*next++
	for i := range p.Children {
		assignSources(&p.Children[i], next)
	}
}
