package tensor_test

import (
	"testing"

	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seq(shape ...int) tensor.Tensor {
	t := tensor.Zeros(shape, tensor.Float64)
	for i := range t.Data {
		t.Data[i] = float64(i)
	}

	return t
}

func TestNew(t *testing.T) {
	cases := []struct {
		desc  string
		shape []int
		data  []float64
		err   error
	}{
		{desc: "matrix", shape: []int{2, 3}, data: make([]float64, 6)},
		{desc: "scalar", shape: []int{}, data: []float64{4}},
		{desc: "empty axis", shape: []int{0, 3}, data: nil},
		{desc: "size mismatch", shape: []int{2, 2}, data: make([]float64, 3), err: tensor.ErrShape},
		{desc: "negative dimension", shape: []int{-1}, data: nil, err: tensor.ErrShape},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			x, err := tensor.New(tc.shape, tc.data, tensor.Float64)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tensor.Size(tc.shape), x.Size())
		})
	}
}

func TestBlock(t *testing.T) {
	x := seq(3, 4)

	b, err := x.Block([]int{2, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, b.Shape)
	assert.Equal(t, []float64{0, 1, 4, 5}, b.Data)

	_, err = x.Block([]int{4, 1})
	assert.ErrorIs(t, err, tensor.ErrShape)

	_, err = x.Block([]int{2})
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestBlockThreeAxes(t *testing.T) {
	x := seq(2, 3, 4)

	b, err := x.Block([]int{2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 4, 5, 12, 13, 16, 17}, b.Data)
}

func TestPad(t *testing.T) {
	x := seq(2, 2)

	p, err := x.Pad([]int{3, 3})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 0, 2, 3, 0, 0, 0, 0}, p.Data)

	_, err = x.Pad([]int{1, 3})
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestRowsAndConcat(t *testing.T) {
	x := seq(4, 2)

	r, err := x.Rows([]int{3, 0})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2}, r.Shape)
	assert.Equal(t, []float64{6, 7, 0, 1}, r.Data)

	_, err = x.Rows([]int{4})
	assert.ErrorIs(t, err, tensor.ErrShape)

	c, err := tensor.Concat(x, r)
	require.NoError(t, err)
	assert.Equal(t, []int{6, 2}, c.Shape)

	_, err = tensor.Concat(x, seq(2, 3))
	assert.ErrorIs(t, err, tensor.ErrShape)
}

func TestCast(t *testing.T) {
	assert.Equal(t, 2.0, tensor.Int64.Cast(2.9))
	assert.Equal(t, float64(float32(0.1)), tensor.Float32.Cast(0.1))
	assert.Equal(t, 0.1, tensor.Float64.Cast(0.1))
}
