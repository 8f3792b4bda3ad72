package fl_test

import (
	"testing"

	"github.com/absmach/hetfl/pkg/fl"
	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/absmach/hetfl/pkg/weights"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func full(t *testing.T, shape []int, v float64) tensor.Tensor {
	t.Helper()

	return tensor.Full(shape, v, tensor.Float64)
}

func data(t *testing.T, shape []int, vals ...float64) tensor.Tensor {
	t.Helper()
	x, err := tensor.New(shape, vals, tensor.Float64)
	require.NoError(t, err)

	return x
}

var globalSkel = weights.NewSkeleton([]weights.Param{
	{Name: "w", Shape: []int{2, 2}},
	{Name: "b", Shape: []int{2}},
})

func TestFedAvgWeightsBySamples(t *testing.T) {
	global := weights.Tree{full(t, []int{2, 2}, 0), full(t, []int{2}, 0)}
	updates := []fl.Update{
		{ClientID: "a", NumSamples: 1, Weights: weights.Tree{full(t, []int{2, 2}, 1), full(t, []int{2}, 1)}},
		{ClientID: "b", NumSamples: 3, Weights: weights.Tree{full(t, []int{2, 2}, 5), full(t, []int{2}, 5)}},
	}

	got, err := fl.NewFedAvgAggregator().Aggregate(global, globalSkel, updates)
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 4, 4, 4}, got[0].Data)
	assert.Equal(t, []float64{4, 4}, got[1].Data)
	assert.Equal(t, []float64{0, 0, 0, 0}, global[0].Data, "global tree must not change")
}

func TestHeteroFLAveragesOverCoverage(t *testing.T) {
	small := weights.NewSkeleton([]weights.Param{{Name: "w", Shape: []int{1, 1}}})
	global := weights.Tree{full(t, []int{2, 2}, 9), full(t, []int{2}, 9)}

	cases := []struct {
		desc    string
		updates []fl.Update
		w       []float64
		b       []float64
	}{
		{
			desc: "full and sub-model",
			updates: []fl.Update{
				{ClientID: "a", Weights: weights.Tree{full(t, []int{2, 2}, 2), full(t, []int{2}, 2)}},
				{ClientID: "b", Weights: weights.Tree{full(t, []int{1, 1}, 4)}, Skeleton: small},
			},
			w: []float64{3, 2, 2, 2},
			b: []float64{2, 2},
		},
		{
			desc: "sample counts are ignored",
			updates: []fl.Update{
				{ClientID: "a", NumSamples: 100, Weights: weights.Tree{full(t, []int{2, 2}, 2), full(t, []int{2}, 2)}},
				{ClientID: "b", NumSamples: 1, Weights: weights.Tree{full(t, []int{1, 1}, 4)}, Skeleton: small},
			},
			w: []float64{3, 2, 2, 2},
			b: []float64{2, 2},
		},
		{
			desc: "uncovered elements keep the global value",
			updates: []fl.Update{
				{ClientID: "b", Weights: weights.Tree{full(t, []int{1, 1}, 4)}, Skeleton: small},
			},
			w: []float64{4, 9, 9, 9},
			b: []float64{9, 9},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			got, err := fl.NewHeteroFLAggregator().Aggregate(global, globalSkel, tc.updates)
			require.NoError(t, err)
			assert.Equal(t, tc.w, got[0].Data)
			assert.Equal(t, tc.b, got[1].Data)
		})
	}
}

func TestFedDropUsesMasks(t *testing.T) {
	global := weights.Tree{full(t, []int{2, 2}, 7), full(t, []int{2}, 7)}
	updates := []fl.Update{
		{
			ClientID: "a",
			Weights:  weights.Tree{data(t, []int{2, 2}, 1, 0, 1, 0), full(t, []int{2}, 1)},
			Mask:     weights.Tree{data(t, []int{2, 2}, 1, 0, 1, 0), full(t, []int{2}, 1)},
		},
		{
			ClientID: "b",
			Weights:  weights.Tree{data(t, []int{2, 2}, 3, 0, 0, 0), full(t, []int{2}, 3)},
			Mask:     weights.Tree{data(t, []int{2, 2}, 1, 0, 0, 0), full(t, []int{2}, 1)},
		},
	}

	got, err := fl.NewFedDropAggregator().Aggregate(global, globalSkel, updates)
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 7, 1, 7}, got[0].Data)
	assert.Equal(t, []float64{2, 2}, got[1].Data)

	updates[1].Mask = nil
	_, err = fl.NewFedDropAggregator().Aggregate(global, globalSkel, updates)
	assert.ErrorIs(t, err, fl.ErrMissingMask)
}

func TestAggregateErrors(t *testing.T) {
	global := weights.Tree{full(t, []int{2, 2}, 0), full(t, []int{2}, 0)}

	cases := []struct {
		desc    string
		global  weights.Tree
		updates []fl.Update
		err     error
	}{
		{
			desc:   "no updates",
			global: global,
			err:    fl.ErrNoUpdates,
		},
		{
			desc:    "global does not match skeleton",
			global:  weights.Tree{full(t, []int{3, 2}, 0), full(t, []int{2}, 0)},
			updates: []fl.Update{{ClientID: "a", NumSamples: 1, Weights: global}},
			err:     weights.ErrShapeMismatch,
		},
		{
			desc:   "update larger than global",
			global: global,
			updates: []fl.Update{{
				ClientID:   "a",
				NumSamples: 1,
				Weights:    weights.Tree{full(t, []int{3, 3}, 0)},
				Skeleton:   weights.NewSkeleton([]weights.Param{{Name: "w", Shape: []int{3, 3}}}),
			}},
			err: weights.ErrShapeMismatch,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			_, err := fl.NewFedAvgAggregator().Aggregate(tc.global, globalSkel, tc.updates)
			assert.ErrorIs(t, err, tc.err)
		})
	}
}

func TestNewAggregator(t *testing.T) {
	cases := []struct {
		desc string
		name string
		err  error
	}{
		{desc: "fedavg", name: "fedavg"},
		{desc: "heterofl", name: "heterofl"},
		{desc: "feddrop", name: "feddrop"},
		{desc: "local does not aggregate", name: "local", err: fl.ErrNoAggregation},
		{desc: "unknown", name: "fjord", err: fl.ErrUnknownFramework},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			f, err := fl.ParseFramework(tc.name)
			if err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			agg, err := fl.NewAggregator(f)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.NotNil(t, agg)
		})
	}
}

func TestModelScale(t *testing.T) {
	assert.InDelta(t, 0.5, fl.HeteroFL.ModelScale(0.25), 1e-12)
	assert.Equal(t, 1.0, fl.FedAvg.ModelScale(0.25))
	assert.Equal(t, 1.0, fl.FedDrop.ModelScale(0.25))
}
