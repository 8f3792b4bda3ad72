package scheduler

import (
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/stat/sampleuv"
)

type random struct {
	src rand.Source
}

// NewRandom draws participants uniformly without replacement.
func NewRandom(src rand.Source) Scheduler {
	return &random{src: src}
}

func (r *random) Select(_, nclients int, fraction float64) ([]int, error) {
	k, err := count(nclients, fraction)
	if err != nil {
		return nil, err
	}
	if k == nclients {
		return all(nclients), nil
	}

	idx := make([]int, k)
	sampleuv.WithoutReplacement(idx, nclients, r.src)
	slices.Sort(idx)

	return idx, nil
}

func all(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	return idx
}
