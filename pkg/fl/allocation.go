package fl

import "fmt"

type Scheme string

const (
	Full   Scheme = "full"
	Cyclic Scheme = "cyclic"
	Sim    Scheme = "sim"
)

func ParseScheme(s string) (Scheme, error) {
	switch sc := Scheme(s); sc {
	case Full, Cyclic, Sim:
		return sc, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAllocation, s)
	}
}

// Allocation lists the width and depth proportions handed out to clients in
// turn. FedDrop clients read the widths as keep probabilities.
type Allocation struct {
	Widths []float64 `toml:"widths" json:"widths"`
	Depths []float64 `toml:"depths" json:"depths"`
}

// NewAllocation resolves a scheme. Sim reads the framework's entry from sims.
func NewAllocation(scheme Scheme, f Framework, sims map[Framework]Allocation) (Allocation, error) {
	var a Allocation
	switch scheme {
	case Full:
		a = Allocation{Widths: []float64{1}, Depths: []float64{1}}
	case Cyclic:
		a = Allocation{Widths: []float64{0.3, 0.5, 1}, Depths: []float64{0.3, 0.5, 1}}
	case Sim:
		s, ok := sims[f]
		if !ok {
			return Allocation{}, fmt.Errorf("%w: no sim allocation for %s", ErrAllocation, f)
		}
		a = s
	default:
		return Allocation{}, fmt.Errorf("%w: %q", ErrUnknownAllocation, scheme)
	}
	if err := a.Validate(f); err != nil {
		return Allocation{}, err
	}

	return a, nil
}

// Validate checks every proportion lies in (0, 1]. FedDrop only needs widths.
func (a Allocation) Validate(f Framework) error {
	if len(a.Widths) == 0 {
		return fmt.Errorf("%w: no widths", ErrAllocation)
	}
	if f != FedDrop && len(a.Depths) != len(a.Widths) {
		return fmt.Errorf("%w: %d widths against %d depths", ErrAllocation, len(a.Widths), len(a.Depths))
	}
	for _, v := range append(a.Widths[:len(a.Widths):len(a.Widths)], a.Depths...) {
		if v <= 0 || v > 1 {
			return fmt.Errorf("%w: proportion %v outside (0, 1]", ErrAllocation, v)
		}
	}

	return nil
}

// At returns the proportions of the i-th client, cycling through the lists.
func (a Allocation) At(i int) (width, depth float64) {
	width = a.Widths[i%len(a.Widths)]
	depth = 1
	if len(a.Depths) > 0 {
		depth = a.Depths[i%len(a.Depths)]
	}

	return width, depth
}
