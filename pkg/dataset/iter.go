package dataset

import (
	"fmt"
	"iter"
	"math/rand/v2"

	"github.com/absmach/hetfl/pkg/tensor"
	"gonum.org/v1/gonum/stat/sampleuv"
)

type Batch struct {
	X tensor.Tensor
	Y []int
}

// DataIter draws random batches from a private copy of a data slice. Every draw
// samples without replacement and is independent of earlier draws, so the
// sequence never ends.
type DataIter struct {
	x         tensor.Tensor
	y         []int
	full      bool
	batchSize int
	classes   int
	src       rand.Source
	err       error
}

func NewDataIter(x tensor.Tensor, y []int, batchSize, classes int, src rand.Source) (*DataIter, error) {
	if x.Rank() == 0 || x.Shape[0] != len(y) {
		return nil, fmt.Errorf("%w: %v samples for %d labels", ErrMismatch, x.Shape, len(y))
	}
	it := &DataIter{
		x:         x.Clone(),
		y:         append([]int(nil), y...),
		full:      batchSize <= 0,
		batchSize: batchSize,
		classes:   classes,
		src:       src,
	}
	it.clamp()

	return it, nil
}

func (it *DataIter) clamp() {
	if it.full {
		it.batchSize = len(it.y)

		return
	}
	it.batchSize = min(it.batchSize, len(it.y))
}

func (it *DataIter) Len() int {
	return len(it.y)
}

func (it *DataIter) BatchSize() int {
	return it.batchSize
}

func (it *DataIter) Classes() int {
	return it.classes
}

// Data returns the held samples and labels.
func (it *DataIter) Data() (tensor.Tensor, []int) {
	return it.x, it.y
}

// Err reports the first failed Map or Filter. The iterator keeps serving the
// data it held before that call.
func (it *DataIter) Err() error {
	return it.err
}

func (it *DataIter) Next() Batch {
	idx := make([]int, it.batchSize)
	if len(idx) > 0 {
		sampleuv.WithoutReplacement(idx, len(it.y), it.src)
	}
	x, err := it.x.Rows(idx)
	if err != nil {
		it.fail(err)

		return Batch{}
	}

	return Batch{X: x, Y: gather(it.y, idx)}
}

func (it *DataIter) fail(err error) {
	if it.err == nil {
		it.err = err
	}
}

// Batches yields an endless sequence of batches; stop by breaking out of the loop.
func (it *DataIter) Batches() iter.Seq[Batch] {
	return func(yield func(Batch) bool) {
		for {
			if !yield(it.Next()) {
				return
			}
		}
	}
}

// Map replaces the held data with f's output. Output with a different number
// of samples and labels is rejected and recorded in Err.
func (it *DataIter) Map(f func(x tensor.Tensor, y []int) (tensor.Tensor, []int)) *DataIter {
	if it.err != nil {
		return it
	}
	x, y := f(it.x, it.y)
	if x.Rank() == 0 || x.Shape[0] != len(y) {
		it.fail(fmt.Errorf("%w: map returned %v samples for %d labels", ErrMismatch, x.Shape, len(y)))

		return it
	}
	it.x, it.y = x, y
	it.clamp()

	return it
}

// Filter keeps the samples whose entry in f's mask is true. The mask must have
// one entry per sample.
func (it *DataIter) Filter(f func(y []int) []bool) *DataIter {
	if it.err != nil {
		return it
	}
	x, y, err := filter(it.x, it.y, f(it.y))
	if err != nil {
		it.fail(err)

		return it
	}
	it.x, it.y = x, y
	it.clamp()

	return it
}
