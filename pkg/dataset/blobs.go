package dataset

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/absmach/hetfl/pkg/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// blobs generates Gaussian class clusters, one centre per class.
type blobs struct {
	cfg AdapterConfig
}

func (b *blobs) Load(ctx context.Context) (*Dataset, error) {
	cfg := b.cfg
	if cfg.Samples <= 0 || cfg.Features <= 0 || cfg.Classes <= 0 {
		return nil, errors.New("blobs adapter needs positive samples, features and classes")
	}
	if cfg.TestFraction < 0 || cfg.TestFraction >= 1 {
		return nil, fmt.Errorf("blobs test fraction %v outside [0, 1)", cfg.TestFraction)
	}

	src := rand.NewPCG(cfg.Seed, 0xb10b5)
	rng := rand.New(src)
	centre := distuv.Normal{Mu: 0, Sigma: cfg.Spread, Src: src}
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: src}

	centres := make([][]float64, cfg.Classes)
	for c := range centres {
		centres[c] = make([]float64, cfg.Features)
		for f := range centres[c] {
			centres[c][f] = centre.Rand()
		}
	}

	ntest := int(float64(cfg.Samples) * cfg.TestFraction)
	ntrain := cfg.Samples - ntest
	parts := [2]Part{}
	for p, n := range []int{ntrain, ntest} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		x := tensor.Zeros([]int{n, cfg.Features}, tensor.Float64)
		y := make([]int, n)
		var groups []string
		for i := range n {
			c := rng.IntN(cfg.Classes)
			y[i] = c
			for f := range cfg.Features {
				x.Data[i*cfg.Features+f] = centres[c][f] + noise.Rand()
			}
			if cfg.Devices > 0 {
				groups = append(groups, fmt.Sprintf("device-%03d", i%cfg.Devices))
			}
		}
		parts[p] = Part{X: x, Y: y, Groups: groups}
	}

	return FromParts(parts[0], parts[1])
}
