// Package nn provides the models trained by simulated clients.
package nn

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/absmach/hetfl/pkg/dataset"
	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/absmach/hetfl/pkg/weights"
)

var (
	ErrUnknownModel = errors.New("unknown model kind")
	ErrInput        = errors.New("input does not match model")
)

// Model is a trainable architecture. Parameters live outside the model as a
// weight tree in the order given by Params.
type Model interface {
	Params() []weights.Param
	Init(src rand.Source) weights.Tree
	// Step performs one optimisation step on a batch and returns the batch loss
	// and the updated parameters.
	Step(params weights.Tree, b dataset.Batch) (float64, weights.Tree, error)
	Evaluate(params weights.Tree, x tensor.Tensor, y []int) (Metrics, error)
}

type Metrics struct {
	Loss     float64 `json:"loss"`
	Accuracy float64 `json:"accuracy"`
}

type Kind string

const FCNKind Kind = "fcn"

// Spec describes a model independently of its architecture.
type Spec struct {
	Classes      int
	InputShape   []int
	Width        float64
	Depth        float64
	Scale        float64
	Hidden       int
	Layers       int
	LearningRate float64
}

func New(kind Kind, spec Spec) (Model, error) {
	switch kind {
	case FCNKind:
		return NewFCN(spec)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, kind)
	}
}

// Skeleton builds the named skeleton of a model's parameters.
func Skeleton(m Model) weights.Skeleton {
	return weights.NewSkeleton(m.Params())
}
