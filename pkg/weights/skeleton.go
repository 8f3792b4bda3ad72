package weights

import (
	"fmt"
	"slices"

	"github.com/absmach/hetfl/pkg/tensor"
)

// Param is a named parameter of a model, as exposed in parameter order.
type Param struct {
	Name  string `json:"name"`
	Shape []int  `json:"shape"`
}

type Entry struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Shape []int  `json:"shape"`
}

// Skeleton maps tensor names to their position and shape within a weight tree.
type Skeleton struct {
	entries []Entry
	byName  map[string]int
}

func NewSkeleton(params []Param) Skeleton {
	s := Skeleton{
		entries: make([]Entry, len(params)),
		byName:  make(map[string]int, len(params)),
	}
	for i, p := range params {
		s.entries[i] = Entry{Name: p.Name, Index: i, Shape: slices.Clone(p.Shape)}
		s.byName[p.Name] = i
	}

	return s
}

func (s Skeleton) Len() int {
	return len(s.entries)
}

// Entries returns the entries in index order.
func (s Skeleton) Entries() []Entry {
	return slices.Clone(s.entries)
}

func (s Skeleton) Lookup(name string) (Entry, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Entry{}, false
	}

	return s.entries[i], true
}

// Zeros builds an all-zero tree matching the skeleton.
func (s Skeleton) Zeros(dtype tensor.DType) Tree {
	out := make(Tree, len(s.entries))
	for i, e := range s.entries {
		out[i] = tensor.Zeros(e.Shape, dtype)
	}

	return out
}

// fits reports whether local can be cut out of global: same rank and no axis
// larger than the global one.
func fits(local, global []int) bool {
	if len(local) != len(global) {
		return false
	}
	for i := range local {
		if local[i] > global[i] {
			return false
		}
	}

	return true
}

// Partition cuts the global tree down to the local skeleton. Every tensor is the
// leading sub-block of the global tensor with the same name. Local names that the
// global skeleton lacks are dropped.
func Partition(global Tree, from, to Skeleton) (Tree, error) {
	out := make(Tree, 0, to.Len())
	for _, e := range to.entries {
		g, ok := from.Lookup(e.Name)
		if !ok {
			continue
		}
		if g.Index >= len(global) {
			return nil, fmt.Errorf("%w: %q indexes position %d of a %d tensor tree", ErrShapeMismatch, e.Name, g.Index, len(global))
		}
		if !fits(e.Shape, global[g.Index].Shape) {
			return nil, fmt.Errorf("%w: %q local shape %v does not fit global shape %v", ErrShapeMismatch, e.Name, e.Shape, global[g.Index].Shape)
		}
		x, err := global[g.Index].Block(e.Shape)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrShapeMismatch, e.Name, err)
		}
		out = append(out, x)
	}

	return out, nil
}

// Expand grows a local tree to the global skeleton. Tensors the local model has
// are zero padded at the trailing edge; tensors it lacks become zeros.
// The result is a new tree and the local tree is left untouched.
func Expand(local Tree, from, to Skeleton) (Tree, error) {
	out := make(Tree, to.Len())
	for _, g := range to.entries {
		l, ok := from.Lookup(g.Name)
		if !ok {
			dtype := tensor.Float64
			if len(local) > 0 {
				dtype = local[0].DType
			}
			out[g.Index] = tensor.Zeros(g.Shape, dtype)

			continue
		}
		if l.Index >= len(local) {
			return nil, fmt.Errorf("%w: %q indexes position %d of a %d tensor tree", ErrShapeMismatch, g.Name, l.Index, len(local))
		}
		x := local[l.Index]
		if !fits(x.Shape, g.Shape) {
			return nil, fmt.Errorf("%w: %q local shape %v does not fit global shape %v", ErrShapeMismatch, g.Name, x.Shape, g.Shape)
		}
		padded, err := x.Pad(g.Shape)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrShapeMismatch, g.Name, err)
		}
		out[g.Index] = padded
	}

	return out, nil
}
