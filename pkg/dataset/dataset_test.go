package dataset_test

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/absmach/hetfl/pkg/dataset"
	"github.com/absmach/hetfl/pkg/partition"
	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	x := tensor.Zeros([]int{10, 4}, tensor.Float64)
	for i := range x.Data {
		x.Data[i] = float64(i / 4)
	}
	y := []int{0, 0, 0, 0, 0, 1, 1, 1, 1, 1}
	mask := []bool{true, true, true, true, true, true, true, true, false, false}

	d, err := dataset.New(x, y, mask)
	require.NoError(t, err)

	return d
}

func TestDataset(t *testing.T) {
	d := exampleDataset(t)

	assert.Equal(t, 2, d.Classes())
	assert.Equal(t, []int{4}, d.InputShape())

	x, y := d.Train()
	assert.Equal(t, []int{8, 4}, x.Shape)
	assert.Len(t, y, 8)

	x, y = d.Test()
	assert.Equal(t, []int{2, 4}, x.Shape)
	assert.Equal(t, []int{1, 1}, y)
	assert.Equal(t, []float64{8, 8, 8, 8}, x.Data[:4])

	train := d.TrainIdx()
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, train)
}

func TestNewMismatch(t *testing.T) {
	x := tensor.Zeros([]int{3, 2}, tensor.Float64)

	_, err := dataset.New(x, []int{0, 1}, []bool{true, true, false})
	assert.ErrorIs(t, err, dataset.ErrMismatch)

	_, err = dataset.New(x, []int{0, 1, 1}, []bool{true})
	assert.ErrorIs(t, err, dataset.ErrMismatch)
}

func TestDataIterBatches(t *testing.T) {
	d := exampleDataset(t)

	cases := []struct {
		desc      string
		batchSize int
		want      int
	}{
		{desc: "smaller than split", batchSize: 3, want: 3},
		{desc: "clamped to split", batchSize: 50, want: 8},
		{desc: "whole split", batchSize: 0, want: 8},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			it, err := d.Iter(dataset.Train, dataset.IterConfig{BatchSize: tc.batchSize}, rand.NewPCG(1, 1))
			require.NoError(t, err)
			assert.Equal(t, tc.want, it.BatchSize())

			for range 20 {
				b := it.Next()
				assert.Equal(t, []int{tc.want, 4}, b.X.Shape)
				assert.Len(t, b.Y, tc.want)

				rows := make([]float64, tc.want)
				for i := range rows {
					rows[i] = b.X.Data[i*4]
				}
				slices.Sort(rows)
				assert.Len(t, slices.Compact(rows), tc.want, "rows within a batch must be distinct")
			}
		})
	}
}

func TestDataIterNeverEnds(t *testing.T) {
	d := exampleDataset(t)
	it, err := d.Iter(dataset.Test, dataset.IterConfig{BatchSize: 2}, rand.NewPCG(2, 2))
	require.NoError(t, err)

	n := 0
	for b := range it.Batches() {
		assert.Len(t, b.Y, 2)
		n++
		if n == 100 {
			break
		}
	}
	assert.Equal(t, 100, n)
}

func TestIterConfig(t *testing.T) {
	d := exampleDataset(t)

	it, err := d.Iter(dataset.Train, dataset.IterConfig{
		BatchSize: 4,
		Idx:       []int{0, 5, 6},
	}, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, it.Len())
	assert.Equal(t, 3, it.BatchSize())
	_, y := it.Data()
	assert.Equal(t, []int{0, 1, 1}, y)

	it, err = d.Iter(dataset.Train, dataset.IterConfig{
		Filter: func(y []int) []bool {
			keep := make([]bool, len(y))
			for i, l := range y {
				keep[i] = l == 1
			}

			return keep
		},
	}, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, it.Len())

	it, err = d.Iter(dataset.Train, dataset.IterConfig{
		Map: func(x tensor.Tensor, y []int) (tensor.Tensor, []int) {
			head, _ := x.Rows([]int{0, 1})

			return head, y[:2]
		},
	}, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, it.Len())
}

func TestDataIterMapFilterChain(t *testing.T) {
	d := exampleDataset(t)
	it, err := d.Iter(dataset.Train, dataset.IterConfig{BatchSize: 6}, rand.NewPCG(1, 1))
	require.NoError(t, err)

	it = it.Filter(func(y []int) []bool {
		keep := make([]bool, len(y))
		for i, l := range y {
			keep[i] = l == 0
		}

		return keep
	}).Map(func(x tensor.Tensor, y []int) (tensor.Tensor, []int) {
		out := x.Clone()
		for i := range out.Data {
			out.Data[i] *= 10
		}

		return out, y
	})

	assert.Equal(t, 5, it.Len())
	assert.Equal(t, 5, it.BatchSize())
	b := it.Next()
	for _, l := range b.Y {
		assert.Equal(t, 0, l)
	}
}

func TestDataIterRejectsBadTransforms(t *testing.T) {
	cases := []struct {
		desc  string
		apply func(it *dataset.DataIter) *dataset.DataIter
	}{
		{
			desc: "map drops labels",
			apply: func(it *dataset.DataIter) *dataset.DataIter {
				return it.Map(func(x tensor.Tensor, y []int) (tensor.Tensor, []int) {
					return x, y[:len(y)-1]
				})
			},
		},
		{
			desc: "map returns a scalar",
			apply: func(it *dataset.DataIter) *dataset.DataIter {
				return it.Map(func(_ tensor.Tensor, y []int) (tensor.Tensor, []int) {
					return tensor.Zeros(nil, tensor.Float64), y
				})
			},
		},
		{
			desc: "filter mask too short",
			apply: func(it *dataset.DataIter) *dataset.DataIter {
				return it.Filter(func(y []int) []bool {
					return make([]bool, len(y)-1)
				})
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			d := exampleDataset(t)
			it, err := d.Iter(dataset.Train, dataset.IterConfig{BatchSize: 4}, rand.NewPCG(2, 2))
			require.NoError(t, err)
			n := it.Len()

			it = tc.apply(it)
			assert.ErrorIs(t, it.Err(), dataset.ErrMismatch)
			assert.Equal(t, n, it.Len())

			b := it.Next()
			require.Len(t, b.Y, 4)
			assert.Equal(t, 4, b.X.Shape[0])
		})
	}
}

func TestDataIterCopiesData(t *testing.T) {
	x := tensor.Zeros([]int{2, 1}, tensor.Float64)
	y := []int{0, 1}

	it, err := dataset.NewDataIter(x, y, 1, 2, rand.NewPCG(1, 1))
	require.NoError(t, err)
	x.Data[0] = 99
	y[0] = 7

	held, labels := it.Data()
	assert.Equal(t, 0.0, held.Data[0])
	assert.Equal(t, 0, labels[0])
}

func TestFedSplit(t *testing.T) {
	d := exampleDataset(t)

	iters, err := d.FedSplit([]int{2, 2, 2}, nil, rand.NewPCG(1, 1))
	require.NoError(t, err)
	require.Len(t, iters, 3)
	for _, it := range iters {
		assert.Equal(t, 8, it.Len())
	}

	iters, err = d.FedSplit([]int{2, 2}, partition.Dirichlet(0.5), rand.NewPCG(1, 1))
	require.NoError(t, err)
	require.Len(t, iters, 2)
	assert.Equal(t, 8, iters[0].Len()+iters[1].Len())

	fixed := func(_ tensor.Tensor, _ []int, _, _ int, _ rand.Source) ([][]int, error) {
		return [][]int{{0, 1}, {2}}, nil
	}
	iters, err = d.FedSplit([]int{5, 5}, fixed, rand.NewPCG(1, 1))
	require.NoError(t, err)
	assert.Equal(t, 2, iters[0].Len())
	assert.Equal(t, 1, iters[1].BatchSize())

	_, err = d.FedSplit([]int{5, 5, 5}, fixed, rand.NewPCG(1, 1))
	assert.ErrorIs(t, err, dataset.ErrMapping)
}

func TestBlobsAdapter(t *testing.T) {
	cfg := dataset.AdapterConfig{Seed: 3, Samples: 200, Features: 5, Classes: 4, Devices: 6, Spread: 3, TestFraction: 0.25}
	a, err := dataset.NewAdapter(dataset.Blobs, cfg)
	require.NoError(t, err)

	d, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 200, d.Len())
	assert.Equal(t, []int{5}, d.InputShape())
	assert.Len(t, d.TrainIdx(), 150)
	assert.Len(t, d.Groups(), 150)
	assert.LessOrEqual(t, d.Classes(), 4)

	again, err := a.Load(context.Background())
	require.NoError(t, err)
	x1, _ := d.Train()
	x2, _ := again.Train()
	assert.True(t, x1.Equal(x2))
}

func TestCSVAdapter(t *testing.T) {
	dir := t.TempDir()
	train := filepath.Join(dir, "train.csv")
	test := filepath.Join(dir, "test.csv")
	require.NoError(t, os.WriteFile(train, []byte("f1,f2,label,device\n0.5,1.5,0,a\n2.5,3.5,1,b\n4.5,5.5,1,a\n"), 0o644))
	require.NoError(t, os.WriteFile(test, []byte("f1,f2,label,device\n6.5,7.5,0,c\n"), 0o644))

	a, err := dataset.NewAdapter(dataset.CSV, dataset.AdapterConfig{
		TrainPath:   train,
		TestPath:    test,
		LabelColumn: "label",
		GroupColumn: "device",
	})
	require.NoError(t, err)

	d, err := a.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, d.Classes())
	assert.Equal(t, []int{2}, d.InputShape())
	assert.Equal(t, []string{"a", "b", "a"}, d.Groups())

	x, y := d.Train()
	assert.Equal(t, []float64{0.5, 1.5, 2.5, 3.5, 4.5, 5.5}, x.Data)
	assert.Equal(t, []int{0, 1, 1}, y)
}

func TestParseKind(t *testing.T) {
	k, err := dataset.ParseKind("blobs")
	require.NoError(t, err)
	assert.Equal(t, dataset.Blobs, k)

	_, err = dataset.ParseKind("mnist")
	assert.ErrorIs(t, err, dataset.ErrUnknownAdapter)

	_, err = dataset.NewAdapter(dataset.CSV, dataset.AdapterConfig{})
	assert.Error(t, err)
}
