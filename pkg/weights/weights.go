// Package weights implements arithmetic over weight trees: ordered sequences of
// tensors that hold a model's parameters in parameter order.
//
// Every operation returns a new tree and leaves its inputs untouched.
package weights

import (
	"fmt"
	"math/rand/v2"

	"github.com/absmach/hetfl/pkg/tensor"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"
)

type Tree []tensor.Tensor

func (t Tree) Clone() Tree {
	out := make(Tree, len(t))
	for i := range t {
		out[i] = t[i].Clone()
	}

	return out
}

func (t Tree) Shapes() [][]int {
	shapes := make([][]int, len(t))
	for i := range t {
		shapes[i] = t[i].Shape
	}

	return shapes
}

// Size is the total number of elements across all tensors.
func (t Tree) Size() int {
	n := 0
	for i := range t {
		n += t[i].Size()
	}

	return n
}

func (t Tree) Equal(o Tree) bool {
	if len(t) != len(o) {
		return false
	}
	for i := range t {
		if !t[i].Equal(o[i]) {
			return false
		}
	}

	return true
}

func ZerosLike(t Tree) Tree {
	return Map(t, func(float64) float64 { return 0 })
}

func OnesLike(t Tree) Tree {
	return Map(t, func(float64) float64 { return 1 })
}

// Map applies f to every element, casting the result to each tensor's dtype.
func Map(t Tree, f func(float64) float64) Tree {
	out := make(Tree, len(t))
	for i, x := range t {
		y := tensor.Zeros(x.Shape, x.DType)
		for j, v := range x.Data {
			y.Data[j] = x.DType.Cast(f(v))
		}
		out[i] = y
	}

	return out
}

func checkPair(a, b Tree) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d tensors against %d", ErrShapeMismatch, len(a), len(b))
	}
	for i := range a {
		if !a[i].SameShape(b[i]) {
			return fmt.Errorf("%w: position %d has shape %v against %v", ErrShapeMismatch, i, a[i].Shape, b[i].Shape)
		}
	}

	return nil
}

func binary(a, b Tree, op func(dst, s, t []float64) []float64) (Tree, error) {
	if err := checkPair(a, b); err != nil {
		return nil, err
	}
	out := make(Tree, len(a))
	for i := range a {
		y := tensor.Zeros(a[i].Shape, a[i].DType)
		op(y.Data, a[i].Data, b[i].Data)
		for j := range y.Data {
			y.Data[j] = y.DType.Cast(y.Data[j])
		}
		out[i] = y
	}

	return out, nil
}

// Add sums any number of trees element-wise.
func Add(trees ...Tree) (Tree, error) {
	if len(trees) == 0 {
		return nil, ErrEmptyTree
	}
	out := trees[0].Clone()
	for _, t := range trees[1:] {
		if err := checkPair(out, t); err != nil {
			return nil, err
		}
		for i := range out {
			floats.Add(out[i].Data, t[i].Data)
		}
	}
	for i := range out {
		for j := range out[i].Data {
			out[i].Data[j] = out[i].DType.Cast(out[i].Data[j])
		}
	}

	return out, nil
}

func Sub(a, b Tree) (Tree, error) {
	return binary(a, b, floats.SubTo)
}

func Mul(a, b Tree) (Tree, error) {
	return binary(a, b, floats.MulTo)
}

func Div(a, b Tree) (Tree, error) {
	return binary(a, b, floats.DivTo)
}

func Scale(t Tree, s float64) Tree {
	out := t.Clone()
	for i := range out {
		floats.Scale(s, out[i].Data)
		for j := range out[i].Data {
			out[i].Data[j] = out[i].DType.Cast(out[i].Data[j])
		}
	}

	return out
}

// Uniform returns a tree shaped like t with elements drawn from [low, high).
func Uniform(t Tree, low, high float64, src rand.Source) Tree {
	dist := distuv.Uniform{Min: low, Max: high, Src: src}

	return Map(t, func(float64) float64 { return dist.Rand() })
}

// AddNormal adds N(loc, scale) noise to every element.
func AddNormal(t Tree, loc, scale float64, src rand.Source) Tree {
	dist := distuv.Normal{Mu: loc, Sigma: scale, Src: src}

	return Map(t, func(v float64) float64 {
		return v + dist.Rand()
	})
}

// Norm is the vector norm of the raveled tree. ord follows gonum floats.Norm:
// 2 is Euclidean, math.Inf(1) is the maximum absolute value.
func Norm(t Tree, ord float64) float64 {
	return floats.Norm(Ravel(t), ord)
}

func Minimum(t Tree, v float64) Tree {
	return Map(t, func(x float64) float64 { return min(x, v) })
}

func Maximum(t Tree, v float64) Tree {
	return Map(t, func(x float64) float64 { return max(x, v) })
}

// Counter marks non-zero elements with 1 and zero elements with 0.
func Counter(t Tree) Tree {
	return Map(t, func(x float64) float64 {
		if x != 0 {
			return 1
		}

		return 0
	})
}

// Sum adds up every element of the tree.
func Sum(t Tree) float64 {
	var s float64
	for i := range t {
		s += floats.Sum(t[i].Data)
	}

	return s
}
