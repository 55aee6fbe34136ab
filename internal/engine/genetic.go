package engine

import (
	"math"
	"math/rand"
	"sort"

	"github.com/piwi3910/deepnest/internal/geom"
	"github.com/piwi3910/deepnest/internal/model"
)

// individual is one candidate solution: a placement order over the
// part instances plus a parallel vector of rotations.
type individual struct {
	order     []int
	rotations []float64
	fitness   float64
	evaluated bool
}

func (ind *individual) clone() *individual {
	order := make([]int, len(ind.order))
	copy(order, ind.order)
	rotations := make([]float64, len(ind.rotations))
	copy(rotations, ind.rotations)
	return &individual{order: order, rotations: rotations, fitness: ind.fitness, evaluated: ind.evaluated}
}

// geneticAlgorithm evolves placement orders and rotations. The first
// individual is the canonical order with zero rotations; the rest of
// the initial population are mutations of it.
type geneticAlgorithm struct {
	cfg        model.Config
	parts      []geom.Polygon
	angles     []float64
	population []*individual
	rng        *rand.Rand
}

func newGeneticAlgorithm(parts []geom.Polygon, cfg model.Config, rng *rand.Rand) *geneticAlgorithm {
	angles := make([]float64, cfg.Rotations)
	for k := range angles {
		angles[k] = float64(k) * 360.0 / float64(cfg.Rotations)
	}

	ga := &geneticAlgorithm{cfg: cfg, parts: parts, angles: angles, rng: rng}

	n := len(parts)
	adam := &individual{order: make([]int, n), rotations: make([]float64, n)}
	for i := range adam.order {
		adam.order[i] = i
	}
	ga.population = []*individual{adam}
	for len(ga.population) < cfg.PopulationSize {
		ga.population = append(ga.population, ga.mutate(adam))
	}
	return ga
}

func (ga *geneticAlgorithm) randomAngle() float64 {
	return ga.angles[ga.rng.Intn(len(ga.angles))]
}

// mutate returns a mutated copy: each gene has a MutationRate percent
// chance of swapping with its neighbour and the same chance of
// re-sampling its rotation.
func (ga *geneticAlgorithm) mutate(ind *individual) *individual {
	clone := ind.clone()
	clone.evaluated = false
	clone.fitness = 0
	rate := 0.01 * float64(ga.cfg.MutationRate)
	for i := range clone.order {
		if ga.rng.Float64() < rate {
			j := i + 1
			if j < len(clone.order) {
				clone.order[i], clone.order[j] = clone.order[j], clone.order[i]
			}
		}
		if ga.rng.Float64() < rate {
			clone.rotations[i] = ga.randomAngle()
		}
	}
	return clone
}

// mate performs single-cut crossover: each child takes a parent's
// prefix, then the missing parts in the other parent's relative order
// with that parent's rotations.
func (ga *geneticAlgorithm) mate(male, female *individual) (*individual, *individual) {
	n := len(male.order)
	cut := int(math.Round(math.Min(math.Max(ga.rng.Float64(), 0.1), 0.9) * float64(n-1)))

	child1 := &individual{order: append([]int(nil), male.order[:cut]...), rotations: append([]float64(nil), male.rotations[:cut]...)}
	child2 := &individual{order: append([]int(nil), female.order[:cut]...), rotations: append([]float64(nil), female.rotations[:cut]...)}

	appendMissing(child1, female)
	appendMissing(child2, male)
	return child1, child2
}

func appendMissing(child, donor *individual) {
	have := make(map[int]bool, len(child.order))
	for _, idx := range child.order {
		have[idx] = true
	}
	for i, idx := range donor.order {
		if !have[idx] {
			child.order = append(child.order, idx)
			child.rotations = append(child.rotations, donor.rotations[i])
		}
	}
}

// generation breeds the next population. The best individual is
// carried forward unchanged; the rest are mutated offspring of
// fitness-weighted parents.
func (ga *geneticAlgorithm) generation() {
	sort.SliceStable(ga.population, func(i, j int) bool {
		return ga.population[i].fitness < ga.population[j].fitness
	})

	newPop := []*individual{ga.population[0]}
	for len(newPop) < len(ga.population) {
		male := ga.randomWeightedIndividual(nil)
		female := ga.randomWeightedIndividual(male)
		c1, c2 := ga.mate(male, female)
		newPop = append(newPop, ga.mutate(c1))
		if len(newPop) < len(ga.population) {
			newPop = append(newPop, ga.mutate(c2))
		}
	}
	ga.population = newPop
}

// randomWeightedIndividual picks an individual, biased toward the
// front of the fitness-sorted population.
func (ga *geneticAlgorithm) randomWeightedIndividual(exclude *individual) *individual {
	pop := make([]*individual, 0, len(ga.population))
	for _, ind := range ga.population {
		if ind != exclude {
			pop = append(pop, ind)
		}
	}
	if len(pop) == 0 {
		return ga.population[0]
	}

	r := ga.rng.Float64()
	lower := 0.0
	weight := 1.0 / float64(len(pop))
	upper := weight
	for i, ind := range pop {
		if r > lower && r < upper {
			return ind
		}
		lower = upper
		upper += 2 * weight * (float64(len(pop)-i) / float64(len(pop)))
	}
	return pop[0]
}

// unevaluated returns the next individual without a fitness, or nil
// when the whole generation has been evaluated.
func (ga *geneticAlgorithm) unevaluated() *individual {
	for _, ind := range ga.population {
		if !ind.evaluated {
			return ind
		}
	}
	return nil
}

// best returns the lowest-fitness evaluated individual.
func (ga *geneticAlgorithm) best() *individual {
	var best *individual
	for _, ind := range ga.population {
		if !ind.evaluated {
			continue
		}
		if best == nil || ind.fitness < best.fitness {
			best = ind
		}
	}
	return best
}
