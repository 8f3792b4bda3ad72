package hetfl_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/absmach/hetfl"
	"github.com/absmach/hetfl/pkg/fl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	cfg, err := hetfl.LoadConfig("hetfl.toml")
	require.NoError(t, err)

	sims := cfg.Allocations.Sims()
	assert.Len(t, sims, 4)
	assert.Equal(t, []float64{0.25, 0.5, 0.5, 1, 1}, sims[fl.HeteroFL].Widths)
	assert.Empty(t, sims[fl.FedDrop].Depths)

	for f := range sims {
		_, err := fl.NewAllocation(fl.Sim, f, sims)
		assert.NoError(t, err, f)
	}
}

func TestParseConfig(t *testing.T) {
	cases := []struct {
		desc  string
		data  string
		sims  int
		isErr bool
	}{
		{
			desc: "single framework",
			data: "[allocations.heterofl]\nwidths = [0.5]\ndepths = [1.0]\n",
			sims: 1,
		},
		{
			desc: "empty file",
			data: "",
		},
		{
			desc:  "malformed",
			data:  "[allocations\nwidths = ",
			isErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			cfg, err := hetfl.ParseConfig(tc.data)
			if tc.isErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.Len(t, cfg.Allocations.Sims(), tc.sims)
		})
	}
}

func TestLoadConfigMissing(t *testing.T) {
	_, err := hetfl.LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
