// Package partition assigns sample indices to simulated clients.
package partition

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/absmach/hetfl/pkg/tensor"
	"gonum.org/v1/gonum/stat/distmv"
)

// DefaultAlpha is the usual concentration for label-skewed benchmarks.
const DefaultAlpha = 0.5

var (
	ErrNoClients = errors.New("number of clients must be positive")
	ErrAlpha     = errors.New("dirichlet concentration must be positive")
	ErrLabel     = errors.New("label out of range")
)

// LDA splits every class among the clients following a Dirichlet(alpha) draw of
// per-class client proportions. Small alpha gives strongly skewed clients, large
// alpha approaches a uniform split.
func LDA(y []int, nclients, nclasses int, src rand.Source, alpha float64) ([][]int, error) {
	if nclients <= 0 {
		return nil, ErrNoClients
	}
	if !(alpha > 0) {
		return nil, fmt.Errorf("%w: %v", ErrAlpha, alpha)
	}

	byClass := make([][]int, nclasses)
	for i, c := range y {
		if c < 0 || c >= nclasses {
			return nil, fmt.Errorf("%w: sample %d has label %d, want [0, %d)", ErrLabel, i, c, nclasses)
		}
		byClass[c] = append(byClass[c], i)
	}

	conc := make([]float64, nclients)
	for i := range conc {
		conc[i] = alpha
	}
	dir := distmv.NewDirichlet(conc, src)
	proportions := make([][]float64, nclasses)
	for c := range proportions {
		proportions[c] = dir.Rand(nil)
	}

	rng := rand.New(src)
	distribution := make([][]int, nclients)
	for i := range distribution {
		distribution[i] = []int{}
	}
	for c, idx := range byClass {
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		for i, chunk := range splitAt(idx, boundaries(proportions[c], len(idx))) {
			distribution[i] = append(distribution[i], chunk...)
		}
	}

	return distribution, nil
}

// Dirichlet adapts LDA to the dataset mapping signature.
func Dirichlet(alpha float64) func(x tensor.Tensor, y []int, nclients, nclasses int, src rand.Source) ([][]int, error) {
	return func(_ tensor.Tensor, y []int, nclients, nclasses int, src rand.Source) ([][]int, error) {
		return LDA(y, nclients, nclasses, src, alpha)
	}
}

// boundaries turns proportions into split points: the cumulative share of n,
// rounded half to even, for every chunk but the last.
func boundaries(p []float64, n int) []int {
	out := make([]int, 0, len(p)-1)
	var cum float64
	prev := 0
	for _, v := range p[:len(p)-1] {
		if !math.IsNaN(v) {
			cum += v
		}
		b := int(math.RoundToEven(cum * float64(n)))
		b = min(max(b, prev), n)
		out = append(out, b)
		prev = b
	}

	return out
}

func splitAt(idx, bounds []int) [][]int {
	out := make([][]int, 0, len(bounds)+1)
	start := 0
	for _, b := range bounds {
		out = append(out, slices.Clone(idx[start:b]))
		start = b
	}

	return append(out, slices.Clone(idx[start:]))
}
