package nn

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/absmach/hetfl/pkg/dataset"
	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/absmach/hetfl/pkg/weights"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	defHidden       = 64
	defLayers       = 2
	defLearningRate = 0.1
)

// FCN is a fully connected ReLU network trained with softmax cross-entropy and
// plain SGD. Width scales the hidden units and Depth the number of hidden
// layers, which yields the sub-models of device-heterogeneous clients.
type FCN struct {
	in      int
	classes int
	hidden  []int
	scale   float64
	lr      float64
}

func NewFCN(spec Spec) (*FCN, error) {
	if spec.Classes <= 0 {
		return nil, fmt.Errorf("%w: %d classes", ErrInput, spec.Classes)
	}
	hidden, layers := spec.Hidden, spec.Layers
	if hidden <= 0 {
		hidden = defHidden
	}
	if layers <= 0 {
		layers = defLayers
	}
	width, depth := orOne(spec.Width), orOne(spec.Depth)
	units := max(1, int(math.Round(width*float64(hidden))))
	n := max(1, int(math.Round(depth*float64(layers))))

	f := &FCN{
		in:      tensor.Size(spec.InputShape),
		classes: spec.Classes,
		hidden:  make([]int, n),
		scale:   orOne(spec.Scale),
		lr:      spec.LearningRate,
	}
	for i := range f.hidden {
		f.hidden[i] = units
	}
	if f.lr <= 0 {
		f.lr = defLearningRate
	}

	return f, nil
}

func orOne(v float64) float64 {
	if v <= 0 {
		return 1
	}

	return v
}

func (f *FCN) Params() []weights.Param {
	params := make([]weights.Param, 0, 2*len(f.hidden)+2)
	in := f.in
	for i, h := range f.hidden {
		params = append(params,
			weights.Param{Name: fmt.Sprintf("dense_%d/kernel", i), Shape: []int{in, h}},
			weights.Param{Name: fmt.Sprintf("dense_%d/bias", i), Shape: []int{h}},
		)
		in = h
	}

	return append(params,
		weights.Param{Name: "output/kernel", Shape: []int{in, f.classes}},
		weights.Param{Name: "output/bias", Shape: []int{f.classes}},
	)
}

// Init draws kernels from a Glorot uniform distribution; biases start at zero.
func (f *FCN) Init(src rand.Source) weights.Tree {
	params := f.Params()
	tree := make(weights.Tree, len(params))
	for i, p := range params {
		t := tensor.Zeros(p.Shape, tensor.Float64)
		if len(p.Shape) == 2 {
			limit := math.Sqrt(6 / float64(p.Shape[0]+p.Shape[1]))
			dist := distuv.Uniform{Min: -limit, Max: limit, Src: src}
			for j := range t.Data {
				t.Data[j] = dist.Rand()
			}
		}
		tree[i] = t
	}

	return tree
}

type layer struct {
	w *mat.Dense
	b []float64
}

func (f *FCN) layers(params weights.Tree) ([]layer, error) {
	want := f.Params()
	if len(params) != len(want) {
		return nil, fmt.Errorf("%w: %d parameter tensors, want %d", ErrInput, len(params), len(want))
	}
	out := make([]layer, len(want)/2)
	for i := range out {
		k, b := params[2*i], params[2*i+1]
		ks, bs := want[2*i].Shape, want[2*i+1].Shape
		if !k.SameShape(tensor.Tensor{Shape: ks}) || !b.SameShape(tensor.Tensor{Shape: bs}) {
			return nil, fmt.Errorf("%w: layer %d has shapes %v, %v, want %v, %v", ErrInput, i, k.Shape, b.Shape, ks, bs)
		}
		out[i] = layer{w: mat.NewDense(ks[0], ks[1], k.Data), b: b.Data}
	}

	return out, nil
}

func (f *FCN) input(x tensor.Tensor) (*mat.Dense, error) {
	if x.Rank() == 0 || x.Shape[0] == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInput)
	}
	if tensor.Size(x.RowShape()) != f.in {
		return nil, fmt.Errorf("%w: sample shape %v, want %d features", ErrInput, x.RowShape(), f.in)
	}

	return mat.NewDense(x.Shape[0], f.in, x.Data), nil
}

// forward returns the activations of every layer; the last entry holds the
// softmax probabilities.
func (f *FCN) forward(ls []layer, x *mat.Dense) []*mat.Dense {
	acts := []*mat.Dense{x}
	a := x
	for i, l := range ls {
		var z mat.Dense
		z.Mul(a, l.w)
		rows, cols := z.Dims()
		last := i == len(ls)-1
		for r := range rows {
			row := z.RawRowView(r)
			floats.Add(row, l.b)
			if last {
				softmax(row)

				continue
			}
			for c := range cols {
				row[c] = max(row[c], 0) / f.scale
			}
		}
		acts = append(acts, &z)
		a = &z
	}

	return acts
}

func softmax(row []float64) {
	m := floats.Max(row)
	var sum float64
	for i, v := range row {
		row[i] = math.Exp(v - m)
		sum += row[i]
	}
	floats.Scale(1/sum, row)
}

func crossEntropy(probs *mat.Dense, y []int) (loss, acc float64) {
	for r, l := range y {
		row := probs.RawRowView(r)
		loss -= math.Log(max(row[l], 1e-12))
		if floats.MaxIdx(row) == l {
			acc++
		}
	}
	n := float64(len(y))

	return loss / n, acc / n
}

func (f *FCN) checkLabels(y []int, rows int) error {
	if len(y) != rows {
		return fmt.Errorf("%w: %d labels for %d samples", ErrInput, len(y), rows)
	}
	for _, l := range y {
		if l < 0 || l >= f.classes {
			return fmt.Errorf("%w: label %d outside [0, %d)", ErrInput, l, f.classes)
		}
	}

	return nil
}

func (f *FCN) Step(params weights.Tree, b dataset.Batch) (float64, weights.Tree, error) {
	ls, err := f.layers(params)
	if err != nil {
		return 0, nil, err
	}
	x, err := f.input(b.X)
	if err != nil {
		return 0, nil, err
	}
	n, _ := x.Dims()
	if err := f.checkLabels(b.Y, n); err != nil {
		return 0, nil, err
	}

	acts := f.forward(ls, x)
	probs := acts[len(acts)-1]
	loss, _ := crossEntropy(probs, b.Y)

	// Gradient of the mean cross-entropy with respect to the logits.
	var delta mat.Dense
	delta.CloneFrom(probs)
	for r, l := range b.Y {
		delta.Set(r, l, delta.At(r, l)-1)
	}
	delta.Scale(1/float64(n), &delta)

	next := params.Clone()
	for i := len(ls) - 1; i >= 0; i-- {
		var gw mat.Dense
		gw.Mul(acts[i].T(), &delta)
		gb := make([]float64, len(ls[i].b))
		for r := range n {
			floats.Add(gb, delta.RawRowView(r))
		}

		if i > 0 {
			var back mat.Dense
			back.Mul(&delta, ls[i].w.T())
			rows, cols := back.Dims()
			for r := range rows {
				for c := range cols {
					if acts[i].At(r, c) <= 0 {
						back.Set(r, c, 0)
					} else {
						back.Set(r, c, back.At(r, c)/f.scale)
					}
				}
			}
			delta = back
		}

		floats.AddScaled(next[2*i].Data, -f.lr, gw.RawMatrix().Data)
		floats.AddScaled(next[2*i+1].Data, -f.lr, gb)
	}

	return loss, next, nil
}

func (f *FCN) Evaluate(params weights.Tree, x tensor.Tensor, y []int) (Metrics, error) {
	ls, err := f.layers(params)
	if err != nil {
		return Metrics{}, err
	}
	in, err := f.input(x)
	if err != nil {
		return Metrics{}, err
	}
	n, _ := in.Dims()
	if err := f.checkLabels(y, n); err != nil {
		return Metrics{}, err
	}
	acts := f.forward(ls, in)
	loss, acc := crossEntropy(acts[len(acts)-1], y)

	return Metrics{Loss: loss, Accuracy: acc}, nil
}
