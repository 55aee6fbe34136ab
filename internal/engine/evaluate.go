package engine

import (
	"fmt"
	"sync"

	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
	"github.com/piwi3910/deepnest/internal/nfp"
)

// taskQueueSize bounds the worker pool's submission queue.
const taskQueueSize = 100000

// pairTask asks a worker for the outer NFP of one rotated pair.
// Tasks carry geometry by value; workers never touch shared state.
type pairTask struct {
	key nfp.Key
	a   geom.Polygon
	b   geom.Polygon
}

type pairResult struct {
	task pairTask
	nfp  geom.Polygon
	ok   bool
	err  error
}

// workerPool runs outer-NFP computations on a fixed set of
// goroutines. Workers only use the Minkowski construction; pairs
// needing the exact routine are handled on the evaluator.
type workerPool struct {
	tasks   chan pairTask
	results chan pairResult
	scale   float64
	wg      sync.WaitGroup
}

func newWorkerPool(workers int, scale float64) *workerPool {
	if workers < 1 {
		workers = 1
	}
	p := &workerPool{
		tasks:   make(chan pairTask, taskQueueSize),
		results: make(chan pairResult, taskQueueSize),
		scale:   scale,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *workerPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.results <- computePair(task, p.scale)
	}
}

// computePair runs one Minkowski NFP, converting panics into errors
// so a bad pair cannot take a worker down.
func computePair(task pairTask, scale float64) (result pairResult) {
	result.task = task
	defer func() {
		if r := recover(); r != nil {
			result.ok = false
			result.err = fmt.Errorf("nfp worker: %v", r)
		}
	}()
	result.nfp, result.ok = nfp.MinkowskiNFP(task.a, task.b, scale)
	return result
}

func (p *workerPool) shutdown() {
	close(p.tasks)
	p.wg.Wait()
}

// evaluator scores one individual at a time: it precomputes the
// missing NFP pairs on the worker pool, fills the cache, and runs the
// placer.
type evaluator struct {
	cfg    model.Config
	eng    *nfp.Engine
	pool   *workerPool
	sheets []geom.Polygon
	parts  []geom.Polygon
	emit   func(Event)
}

// evaluate returns the placement result for the individual, or nil
// with failed=true when a pair could not be computed even after the
// synchronous retry.
func (ev *evaluator) evaluate(ind *individual, nestIndex int) (*model.NestResult, bool) {
	// expand the individual into part copies carrying their rotations
	parts := make([]geom.Polygon, len(ind.order))
	for i, idx := range ind.order {
		p := ev.parts[idx].Clone()
		if ev.cfg.Simplify {
			p.Children = nil
		}
		p.Rotation = ind.rotations[i]
		parts[i] = p
	}

	tasks := ev.enumeratePairs(parts)

	ev.sendEvent(Event{Kind: EventWorkerStatus, NestIndex: nestIndex, Status: WorkerStatus{Running: true, Operation: "computing NFPs"}})

	for _, t := range tasks {
		ev.pool.tasks <- t
	}

	done := 0
	failedPairs := make([]pairTask, 0)
	results := make([]pairResult, 0, len(tasks))
	for done < len(tasks) {
		res := <-ev.pool.results
		done++
		ev.sendEvent(Event{Kind: EventProgress, NestIndex: nestIndex, Fraction: 0.5 * float64(done) / float64(len(tasks))})
		if res.err != nil {
			failedPairs = append(failedPairs, res.task)
			continue
		}
		results = append(results, res)
	}

	// a crashed pair gets one synchronous retry; a second failure
	// aborts the individual so the search discards it
	for _, t := range failedPairs {
		res := computePair(t, ev.cfg.ClipperScale)
		if res.err != nil {
			return nil, true
		}
		results = append(results, res)
	}

	for _, res := range results {
		if !res.ok {
			// pairs with no Minkowski solution stay out of the cache;
			// the placer treats them as infeasible
			continue
		}
		final := res.nfp
		// holes in A carry interior placements for B
		for _, child := range res.task.a.Children {
			cb := geom.RingBounds(child.Points)
			bb := res.task.b.Bounds()
			if bb.W > cb.W || bb.H > cb.H {
				continue
			}
			if holes, ok := ev.eng.InnerNFP(child, res.task.b); ok {
				final.Children = append(final.Children, holes...)
			}
		}
		ev.eng.Cache().Insert(res.task.key, false, []geom.Polygon{final})
	}

	ev.sendEvent(Event{Kind: EventWorkerStatus, NestIndex: nestIndex, Status: WorkerStatus{Running: true, Operation: "placing parts"}})

	progress := func(f float64) {
		ev.sendEvent(Event{Kind: EventProgress, NestIndex: nestIndex, Fraction: f})
	}
	result := PlaceParts(ev.sheets, parts, ev.cfg, ev.eng, nestIndex, progress)
	return result, false
}

// enumeratePairs lists the rotated pairs of the individual that are
// neither cached nor already enumerated in this evaluation.
func (ev *evaluator) enumeratePairs(parts []geom.Polygon) []pairTask {
	seen := make(map[string]bool)
	var tasks []pairTask
	for i := 0; i < len(parts); i++ {
		for j := i + 1; j < len(parts); j++ {
			a := rotatedCopy(parts[i])
			b := rotatedCopy(parts[j])
			key := nfp.KeyFor(a, b)
			ks := key.String()
			if seen[ks] {
				continue
			}
			seen[ks] = true
			if _, ok := ev.eng.Cache().Find(key, false); ok {
				continue
			}
			tasks = append(tasks, pairTask{key: key, a: a, b: b})
		}
	}
	return tasks
}

func (ev *evaluator) sendEvent(e Event) {
	if ev.emit != nil {
		ev.emit(e)
	}
}

// rotatedCopy bakes a part's chosen rotation into its geometry.
func rotatedCopy(p geom.Polygon) geom.Polygon {
	deg := p.Rotation
	p.Rotation = 0
	return p.Rotated(deg)
}
