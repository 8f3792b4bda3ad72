package client

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/absmach/hetfl/pkg/fl"
	"github.com/absmach/hetfl/pkg/weights"
)

var _ Participant = (*FedDrop)(nil)

// FedDrop trains a random subnetwork each round. Every element is kept with
// probability p and the keep-mask travels with the update.
type FedDrop struct {
	*Client
	p   float64
	src rand.Source
}

func NewFedDrop(c *Client, p float64, src rand.Source) (*FedDrop, error) {
	if p <= 0 || p > 1 {
		return nil, fmt.Errorf("%w: keep probability %v outside (0, 1]", fl.ErrAllocation, p)
	}

	return &FedDrop{Client: c, p: p, src: src}, nil
}

func (d *FedDrop) Step(ctx context.Context, round int, params weights.Tree) (fl.Update, error) {
	mask := d.Mask(params)
	loss, trained, err := d.train(ctx, params, d.cfg.Epochs, mask)
	if err != nil {
		return fl.Update{}, err
	}
	trained, err = d.postprocess(params, trained)
	if err != nil {
		return fl.Update{}, err
	}
	// Noise must not leak into dropped elements.
	if trained, err = weights.Mul(trained, mask); err != nil {
		return fl.Update{}, err
	}

	return d.update(round, loss, trained, mask), nil
}

// Mask draws a keep-mask shaped like params.
func (d *FedDrop) Mask(params weights.Tree) weights.Tree {
	return weights.Map(weights.Uniform(params, 0, 1, d.src), func(u float64) float64 {
		if u < d.p {
			return 1
		}

		return 0
	})
}
