package weights

import (
	"fmt"
	"slices"

	"github.com/absmach/hetfl/pkg/tensor"
)

// Span records how one tensor of a tree is laid out in a raveled vector.
type Span struct {
	Shape []int        `json:"shape"`
	Len   int          `json:"len"`
	DType tensor.DType `json:"dtype"`
}

// Layout is the ordered list of spans needed to invert Ravel.
type Layout []Span

func (l Layout) Len() int {
	n := 0
	for _, s := range l {
		n += s.Len
	}

	return n
}

// Ravel concatenates every tensor of the tree, in order, into one vector.
func Ravel(t Tree) []float64 {
	out := make([]float64, 0, t.Size())
	for i := range t {
		out = append(out, t[i].Data...)
	}

	return out
}

func Unraveller(t Tree) Layout {
	l := make(Layout, len(t))
	for i := range t {
		l[i] = Span{Shape: slices.Clone(t[i].Shape), Len: t[i].Size(), DType: t[i].DType}
	}

	return l
}

// Unravel splits vec into consecutive spans and reshapes each to its recorded shape.
func Unravel(vec []float64, l Layout) (Tree, error) {
	if l.Len() != len(vec) {
		return nil, fmt.Errorf("%w: layout covers %d values, vector has %d", ErrLength, l.Len(), len(vec))
	}
	for i, s := range l {
		if s.Len < 0 || s.Len != tensor.Size(s.Shape) {
			return nil, fmt.Errorf("%w: span %d has length %d for shape %v", ErrLength, i, s.Len, s.Shape)
		}
	}
	out := make(Tree, len(l))
	off := 0
	for i, s := range l {
		x, err := tensor.New(s.Shape, slices.Clone(vec[off:off+s.Len]), s.DType)
		if err != nil {
			return nil, fmt.Errorf("%w: span %d: %w", ErrLength, i, err)
		}
		out[i] = x
		off += s.Len
	}

	return out, nil
}
