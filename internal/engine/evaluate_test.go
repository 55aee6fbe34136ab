package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
	"github.com/piwi3910/deepnest/internal/nfp"
)

func newTestEvaluator(t *testing.T, parts []geom.Polygon, sheets []geom.Polygon, cfg model.Config) *evaluator {
	t.Helper()
	pool := newWorkerPool(2, cfg.ClipperScale)
	t.Cleanup(pool.shutdown)
	return &evaluator{
		cfg:    cfg,
		eng:    nfp.NewEngine(nfp.NewCache(), cfg.ClipperScale),
		pool:   pool,
		sheets: sheets,
		parts:  parts,
	}
}

func canonicalIndividual(n int) *individual {
	ind := &individual{order: make([]int, n), rotations: make([]float64, n)}
	for i := range ind.order {
		ind.order[i] = i
	}
	return ind
}

func TestEvaluateFillsCacheAndPlaces(t *testing.T) {
	parts, sheets := expand(
		[]model.Part{
			model.RectPart("a", 10, 10, 2),
			model.RectPart("b", 20, 10, 1),
		},
		[]model.Sheet{model.RectSheet("sheet", 100, 100, 1)},
	)
	cfg := testConfig()
	ev := newTestEvaluator(t, parts, sheets, cfg)

	result, failed := ev.evaluate(canonicalIndividual(3), 0)
	assert.False(t, failed)
	require.NotNil(t, result)
	assert.Equal(t, 3, result.PlacedCount())

	// pair NFPs are in the cache: (a,a), (a,b) plus the sheet inner NFPs
	assert.GreaterOrEqual(t, ev.eng.Cache().Stats(), 2)
}

func TestEvaluateDeduplicatesPairs(t *testing.T) {
	parts, sheets := expand(
		[]model.Part{model.RectPart("a", 10, 10, 3)},
		[]model.Sheet{model.RectSheet("sheet", 100, 100, 1)},
	)
	cfg := testConfig()
	ev := newTestEvaluator(t, parts, sheets, cfg)

	ind := canonicalIndividual(3)
	tasks := ev.enumeratePairs(expandIndividual(ev, ind))
	assert.Len(t, tasks, 1, "three identical instances share one pair key")
}

// expandIndividual mirrors the expansion evaluate performs.
func expandIndividual(ev *evaluator, ind *individual) []geom.Polygon {
	parts := make([]geom.Polygon, len(ind.order))
	for i, idx := range ind.order {
		p := ev.parts[idx].Clone()
		p.Rotation = ind.rotations[i]
		parts[i] = p
	}
	return parts
}

func TestEvaluateCachedSecondRun(t *testing.T) {
	parts, sheets := expand(
		[]model.Part{model.RectPart("a", 10, 10, 2)},
		[]model.Sheet{model.RectSheet("sheet", 100, 100, 1)},
	)
	cfg := testConfig()
	ev := newTestEvaluator(t, parts, sheets, cfg)

	first, failed := ev.evaluate(canonicalIndividual(2), 0)
	require.False(t, failed)
	require.NotNil(t, first)
	stats := ev.eng.Cache().Stats()

	second, failed := ev.evaluate(canonicalIndividual(2), 1)
	require.False(t, failed)
	require.NotNil(t, second)
	assert.Equal(t, stats, ev.eng.Cache().Stats(), "no new entries on a repeat evaluation")
	assert.Equal(t, first.Fitness, second.Fitness, "identical individuals yield identical fitness")
}

func TestEvaluateSimplifyDropsHoles(t *testing.T) {
	holed := model.RectPolygon(20, 20)
	holed.Children = []geom.Polygon{{Points: []geom.Point{
		{X: 5, Y: 5}, {X: 15, Y: 5}, {X: 15, Y: 15}, {X: 5, Y: 15},
	}}}
	parts, sheets := expand(
		[]model.Part{
			model.NewPart("frame", holed, 1),
			model.RectPart("insert", 5, 5, 1),
		},
		[]model.Sheet{model.RectSheet("sheet", 100, 100, 1)},
	)
	cfg := testConfig()
	cfg.Simplify = true
	ev := newTestEvaluator(t, parts, sheets, cfg)

	result, failed := ev.evaluate(canonicalIndividual(2), 0)
	require.False(t, failed)
	require.NotNil(t, result)
	assert.Equal(t, 0, result.PartsInHoles, "simplify strips holes before placement")
}

func TestWorkerPoolComputesPairs(t *testing.T) {
	pool := newWorkerPool(4, 1e7)
	defer pool.shutdown()

	a := model.RectPolygon(10, 10)
	a.Source = 0
	b := model.RectPolygon(6, 4)
	b.Source = 1

	const n = 20
	for i := 0; i < n; i++ {
		pool.tasks <- pairTask{key: nfp.Key{ASource: 0, BSource: 1}, a: a, b: b}
	}
	for i := 0; i < n; i++ {
		res := <-pool.results
		require.NoError(t, res.err)
		require.True(t, res.ok)
		bb := geom.RingBounds(res.nfp.Points)
		assert.InDelta(t, 16.0, bb.W, 1e-6)
		assert.InDelta(t, 14.0, bb.H, 1e-6)
	}
}

func TestComputePairDegenerateInput(t *testing.T) {
	// polygons with nil points give the Minkowski construction nothing
	// to sum; the pair reports no result rather than an error
	res := computePair(pairTask{a: geom.Polygon{}, b: geom.Polygon{}}, 1e7)
	assert.False(t, res.ok)
	assert.NoError(t, res.err)
}
