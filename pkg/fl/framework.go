package fl

import (
	"fmt"
	"math"
)

type Framework string

const (
	FedAvg   Framework = "fedavg"
	HeteroFL Framework = "heterofl"
	FedDrop  Framework = "feddrop"
	Local    Framework = "local"
)

func ParseFramework(s string) (Framework, error) {
	switch f := Framework(s); f {
	case FedAvg, HeteroFL, FedDrop, Local:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFramework, s)
	}
}

func (f Framework) String() string {
	return string(f)
}

// ModelScale is the activation scale of a sub-model of the given width.
func (f Framework) ModelScale(width float64) float64 {
	if f == HeteroFL {
		return math.Sqrt(width)
	}

	return 1
}

func NewAggregator(f Framework) (Aggregator, error) {
	switch f {
	case FedAvg:
		return NewFedAvgAggregator(), nil
	case HeteroFL:
		return NewHeteroFLAggregator(), nil
	case FedDrop:
		return NewFedDropAggregator(), nil
	case Local:
		return nil, ErrNoAggregation
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFramework, f)
	}
}
