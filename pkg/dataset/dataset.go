// Package dataset holds a labelled sample set with its train/test split and
// serves randomized batches to simulated clients.
package dataset

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/absmach/hetfl/pkg/tensor"
)

var (
	ErrMismatch = errors.New("samples, labels and mask lengths differ")
	ErrMapping  = errors.New("client mapping failed")
)

type Split uint8

const (
	Train Split = iota
	Test
)

func (s Split) String() string {
	if s == Test {
		return "test"
	}

	return "train"
}

// Mapping assigns training sample indices to clients.
type Mapping func(x tensor.Tensor, y []int, nclients, nclasses int, src rand.Source) ([][]int, error)

type Dataset struct {
	x          tensor.Tensor
	y          []int
	train      []bool
	groups     []string
	classes    int
	inputShape []int
}

// New builds a dataset from samples x with shape [N, ...], labels y and a mask
// marking training samples. The number of classes and the sample shape are fixed here.
func New(x tensor.Tensor, y []int, train []bool) (*Dataset, error) {
	if x.Rank() == 0 || x.Shape[0] != len(y) || len(y) != len(train) {
		return nil, fmt.Errorf("%w: %v samples, %d labels, %d mask entries", ErrMismatch, x.Shape, len(y), len(train))
	}
	distinct := make(map[int]struct{})
	for _, l := range y {
		distinct[l] = struct{}{}
	}

	return &Dataset{
		x:          x,
		y:          y,
		train:      train,
		classes:    len(distinct),
		inputShape: x.RowShape(),
	}, nil
}

func (d *Dataset) Classes() int {
	return d.classes
}

func (d *Dataset) InputShape() []int {
	return slices.Clone(d.inputShape)
}

func (d *Dataset) Len() int {
	return len(d.y)
}

// TrainIdx lists the positions of training samples. Its complement is the test split.
func (d *Dataset) TrainIdx() []int {
	return d.indices(Train)
}

func (d *Dataset) indices(s Split) []int {
	var idx []int
	for i, tr := range d.train {
		if tr == (s == Train) {
			idx = append(idx, i)
		}
	}

	return idx
}

// Groups returns the per-sample grouping keys of the training split, if known.
func (d *Dataset) Groups() []string {
	return slices.Clone(d.groups)
}

func (d *Dataset) Train() (tensor.Tensor, []int) {
	return d.take(d.indices(Train))
}

func (d *Dataset) Test() (tensor.Tensor, []int) {
	return d.take(d.indices(Test))
}

func (d *Dataset) Split(s Split) (tensor.Tensor, []int) {
	if s == Test {
		return d.Test()
	}

	return d.Train()
}

func (d *Dataset) take(idx []int) (tensor.Tensor, []int) {
	// Positions come from the mask, so they are always in range.
	x, _ := d.x.Rows(idx)
	y := make([]int, len(idx))
	for i, j := range idx {
		y[i] = d.y[j]
	}

	return x, y
}

// IterConfig narrows and transforms a split before it is wrapped in a DataIter.
type IterConfig struct {
	// BatchSize of 0 serves the whole slice every draw.
	BatchSize int
	// Idx restricts the split to these positions within it.
	Idx    []int
	Filter func(y []int) []bool
	Map    func(x tensor.Tensor, y []int) (tensor.Tensor, []int)
}

func (d *Dataset) Iter(s Split, cfg IterConfig, src rand.Source) (*DataIter, error) {
	x, y := d.Split(s)
	if cfg.Idx != nil {
		var err error
		if x, err = x.Rows(cfg.Idx); err != nil {
			return nil, err
		}
		y = gather(y, cfg.Idx)
	}
	if cfg.Filter != nil {
		var err error
		if x, y, err = filter(x, y, cfg.Filter(y)); err != nil {
			return nil, err
		}
	}
	if cfg.Map != nil {
		x, y = cfg.Map(x, y)
	}

	return NewDataIter(x, y, cfg.BatchSize, d.classes, src)
}

// FedSplit builds one iterator per client. With a mapping every client gets the
// training samples it assigns; without one every client shares the whole
// training split.
func (d *Dataset) FedSplit(batchSizes []int, mapping Mapping, src rand.Source) ([]*DataIter, error) {
	iters := make([]*DataIter, len(batchSizes))
	if mapping == nil {
		for i, b := range batchSizes {
			it, err := d.Iter(Train, IterConfig{BatchSize: b}, src)
			if err != nil {
				return nil, err
			}
			iters[i] = it
		}

		return iters, nil
	}

	x, y := d.Train()
	dist, err := mapping(x, y, len(batchSizes), d.classes, src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapping, err)
	}
	if len(dist) != len(batchSizes) {
		return nil, fmt.Errorf("%w: %d index sets for %d clients", ErrMapping, len(dist), len(batchSizes))
	}
	for i, b := range batchSizes {
		it, err := d.Iter(Train, IterConfig{BatchSize: b, Idx: dist[i]}, src)
		if err != nil {
			return nil, err
		}
		iters[i] = it
	}

	return iters, nil
}

func gather(y, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}

	return out
}

func filter(x tensor.Tensor, y []int, keep []bool) (tensor.Tensor, []int, error) {
	if len(keep) != len(y) {
		return tensor.Tensor{}, nil, fmt.Errorf("%w: filter mask has %d entries for %d samples", ErrMismatch, len(keep), len(y))
	}
	var idx []int
	for i, k := range keep {
		if k {
			idx = append(idx, i)
		}
	}
	fx, err := x.Rows(idx)
	if err != nil {
		return tensor.Tensor{}, nil, err
	}

	return fx, gather(y, idx), nil
}
