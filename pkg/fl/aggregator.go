package fl

import (
	"fmt"
	"slices"

	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/absmach/hetfl/pkg/weights"
)

// FedAvgAggregator weights every update by its sample count.
type FedAvgAggregator struct{}

func NewFedAvgAggregator() Aggregator {
	return &FedAvgAggregator{}
}

func (f *FedAvgAggregator) Aggregate(global weights.Tree, skel weights.Skeleton, updates []Update) (weights.Tree, error) {
	return coverageMean(global, skel, updates, func(u Update) float64 {
		return float64(u.NumSamples)
	})
}

// HeteroFLAggregator averages each element over the sub-models that hold it.
type HeteroFLAggregator struct{}

func NewHeteroFLAggregator() Aggregator {
	return &HeteroFLAggregator{}
}

func (h *HeteroFLAggregator) Aggregate(global weights.Tree, skel weights.Skeleton, updates []Update) (weights.Tree, error) {
	return coverageMean(global, skel, updates, unit)
}

// FedDropAggregator averages each element over the clients that kept it.
type FedDropAggregator struct{}

func NewFedDropAggregator() Aggregator {
	return &FedDropAggregator{}
}

func (d *FedDropAggregator) Aggregate(global weights.Tree, skel weights.Skeleton, updates []Update) (weights.Tree, error) {
	for _, u := range updates {
		if u.Mask == nil {
			return nil, fmt.Errorf("%w: client %s", ErrMissingMask, u.ClientID)
		}
	}

	return coverageMean(global, skel, updates, unit)
}

func unit(Update) float64 {
	return 1
}

// coverageMean computes sum(w*x) / sum(w*cover) per element of the global tree.
// Elements no update covers keep their global value.
func coverageMean(global weights.Tree, skel weights.Skeleton, updates []Update, weight func(Update) float64) (weights.Tree, error) {
	if len(updates) == 0 {
		return nil, ErrNoUpdates
	}
	if err := conforms(global, skel); err != nil {
		return nil, err
	}

	num := skel.Zeros(tensor.Float64)
	den := skel.Zeros(tensor.Float64)
	for _, u := range updates {
		w := weight(u)
		if w <= 0 {
			continue
		}
		from := u.Skeleton
		if from.Len() == 0 {
			from = skel
		}
		x, err := weights.Expand(u.Weights, from, skel)
		if err != nil {
			return nil, fmt.Errorf("client %s: %w", u.ClientID, err)
		}
		mask := u.Mask
		if mask == nil {
			mask = weights.OnesLike(u.Weights)
		}
		cover, err := weights.Expand(mask, from, skel)
		if err != nil {
			return nil, fmt.Errorf("client %s mask: %w", u.ClientID, err)
		}
		cover = weights.Counter(cover)
		x, err = weights.Mul(x, cover)
		if err != nil {
			return nil, err
		}
		if num, err = weights.Add(num, weights.Scale(x, w)); err != nil {
			return nil, err
		}
		if den, err = weights.Add(den, weights.Scale(cover, w)); err != nil {
			return nil, err
		}
	}

	out := global.Clone()
	for i := range out {
		for j := range out[i].Data {
			if d := den[i].Data[j]; d > 0 {
				out[i].Data[j] = out[i].DType.Cast(num[i].Data[j] / d)
			}
		}
	}

	return out, nil
}

func conforms(t weights.Tree, skel weights.Skeleton) error {
	entries := skel.Entries()
	if len(t) != len(entries) {
		return fmt.Errorf("%w: %d tensors against a %d entry skeleton", weights.ErrShapeMismatch, len(t), len(entries))
	}
	for _, e := range entries {
		if !slices.Equal(t[e.Index].Shape, e.Shape) {
			return fmt.Errorf("%w: %q has shape %v, skeleton expects %v", weights.ErrShapeMismatch, e.Name, t[e.Index].Shape, e.Shape)
		}
	}

	return nil
}
