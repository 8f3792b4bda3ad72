package tensor

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

var ErrShape = errors.New("invalid tensor shape")

type DType uint8

const (
	Float64 DType = iota
	Float32
	Int64
)

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Int64:
		return "int64"
	default:
		return "float64"
	}
}

// Cast rounds v to the precision of the dtype.
func (d DType) Cast(v float64) float64 {
	switch d {
	case Float32:
		return float64(float32(v))
	case Int64:
		return math.Trunc(v)
	default:
		return v
	}
}

// Tensor is a dense row-major array. A tensor with an empty shape is a scalar.
type Tensor struct {
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
	DType DType     `json:"dtype"`
}

func Size(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}

	return n
}

func New(shape []int, data []float64, dtype DType) (Tensor, error) {
	for _, d := range shape {
		if d < 0 {
			return Tensor{}, fmt.Errorf("%w: negative dimension in %v", ErrShape, shape)
		}
	}
	if Size(shape) != len(data) {
		return Tensor{}, fmt.Errorf("%w: shape %v needs %d values, got %d", ErrShape, shape, Size(shape), len(data))
	}

	return Tensor{Shape: slices.Clone(shape), Data: data, DType: dtype}, nil
}

func Zeros(shape []int, dtype DType) Tensor {
	return Tensor{Shape: slices.Clone(shape), Data: make([]float64, Size(shape)), DType: dtype}
}

func Full(shape []int, v float64, dtype DType) Tensor {
	t := Zeros(shape, dtype)
	v = dtype.Cast(v)
	for i := range t.Data {
		t.Data[i] = v
	}

	return t
}

func (t Tensor) Size() int {
	return len(t.Data)
}

func (t Tensor) Rank() int {
	return len(t.Shape)
}

func (t Tensor) Clone() Tensor {
	return Tensor{Shape: slices.Clone(t.Shape), Data: slices.Clone(t.Data), DType: t.DType}
}

func (t Tensor) SameShape(o Tensor) bool {
	return slices.Equal(t.Shape, o.Shape)
}

func (t Tensor) Equal(o Tensor) bool {
	return t.DType == o.DType && t.SameShape(o) && slices.Equal(t.Data, o.Data)
}

func (t Tensor) Reshape(shape []int) (Tensor, error) {
	if Size(shape) != t.Size() {
		return Tensor{}, fmt.Errorf("%w: cannot reshape %v into %v", ErrShape, t.Shape, shape)
	}

	return Tensor{Shape: slices.Clone(shape), Data: t.Data, DType: t.DType}, nil
}

// RowShape is the shape of a single element along axis 0.
func (t Tensor) RowShape() []int {
	if len(t.Shape) == 0 {
		return nil
	}

	return slices.Clone(t.Shape[1:])
}

// Rows gathers the given positions along axis 0 into a new tensor.
func (t Tensor) Rows(idx []int) (Tensor, error) {
	if len(t.Shape) == 0 {
		return Tensor{}, fmt.Errorf("%w: cannot index a scalar", ErrShape)
	}
	stride := Size(t.Shape[1:])
	out := Tensor{
		Shape: append([]int{len(idx)}, t.Shape[1:]...),
		Data:  make([]float64, 0, len(idx)*stride),
		DType: t.DType,
	}
	for _, i := range idx {
		if i < 0 || i >= t.Shape[0] {
			return Tensor{}, fmt.Errorf("%w: row %d out of range [0, %d)", ErrShape, i, t.Shape[0])
		}
		out.Data = append(out.Data, t.Data[i*stride:(i+1)*stride]...)
	}

	return out, nil
}

// Concat joins tensors along axis 0. All row shapes must agree.
func Concat(ts ...Tensor) (Tensor, error) {
	if len(ts) == 0 {
		return Tensor{}, fmt.Errorf("%w: nothing to concatenate", ErrShape)
	}
	row := ts[0].RowShape()
	out := Tensor{Shape: append([]int{0}, row...), DType: ts[0].DType}
	for _, t := range ts {
		if t.Rank() == 0 || !slices.Equal(t.RowShape(), row) {
			return Tensor{}, fmt.Errorf("%w: cannot concatenate %v with rows %v", ErrShape, t.Shape, row)
		}
		out.Shape[0] += t.Shape[0]
		out.Data = append(out.Data, t.Data...)
	}

	return out, nil
}

// Block returns the leading sub-block t[0:shape[0], 0:shape[1], ...].
func (t Tensor) Block(shape []int) (Tensor, error) {
	if err := t.fits(shape); err != nil {
		return Tensor{}, err
	}
	out := Zeros(shape, t.DType)
	copyBlock(out.Data, shape, t.Data, t.Shape, shape)

	return out, nil
}

// Pad grows t to shape by appending zeros at the trailing edge of every axis.
func (t Tensor) Pad(shape []int) (Tensor, error) {
	if len(shape) != t.Rank() {
		return Tensor{}, fmt.Errorf("%w: cannot pad rank %d to rank %d", ErrShape, t.Rank(), len(shape))
	}
	for i, d := range shape {
		if t.Shape[i] > d {
			return Tensor{}, fmt.Errorf("%w: cannot pad %v down to %v", ErrShape, t.Shape, shape)
		}
	}
	out := Zeros(shape, t.DType)
	copyBlock(out.Data, shape, t.Data, t.Shape, t.Shape)

	return out, nil
}

func (t Tensor) fits(shape []int) error {
	if len(shape) != t.Rank() {
		return fmt.Errorf("%w: rank %d does not match rank %d", ErrShape, len(shape), t.Rank())
	}
	for i, d := range shape {
		if d < 0 || d > t.Shape[i] {
			return fmt.Errorf("%w: block %v exceeds %v", ErrShape, shape, t.Shape)
		}
	}

	return nil
}

// copyBlock copies the leading block of size extent from src into dst.
func copyBlock(dst []float64, dstShape []int, src []float64, srcShape []int, extent []int) {
	if Size(extent) == 0 {
		return
	}
	if len(extent) == 0 {
		dst[0] = src[0]

		return
	}
	last := len(extent) - 1
	idx := make([]int, last)
	for {
		var so, do int
		for ax := 0; ax < last; ax++ {
			so = so*srcShape[ax] + idx[ax]
			do = do*dstShape[ax] + idx[ax]
		}
		so *= srcShape[last]
		do *= dstShape[last]
		copy(dst[do:do+extent[last]], src[so:so+extent[last]])

		ax := last - 1
		for ; ax >= 0; ax-- {
			idx[ax]++
			if idx[ax] < extent[ax] {
				break
			}
			idx[ax] = 0
		}
		if ax < 0 {
			return
		}
	}
}
