package dataset

import (
	"context"
	"fmt"
	"os"

	"github.com/absmach/hetfl/pkg/tensor"
	"github.com/go-gota/gota/dataframe"
)

// csvAdapter reads one CSV file per split. The label column holds integer
// classes, the optional group column a grouping key, and every other column a
// numeric feature.
type csvAdapter struct {
	cfg AdapterConfig
}

func (a *csvAdapter) Load(ctx context.Context) (*Dataset, error) {
	train, err := a.read(a.cfg.TrainPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	test, err := a.read(a.cfg.TestPath)
	if err != nil {
		return nil, err
	}

	return FromParts(train, test)
}

func (a *csvAdapter) read(path string) (Part, error) {
	f, err := os.Open(path)
	if err != nil {
		return Part{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	df := dataframe.ReadCSV(f)
	if df.Err != nil {
		return Part{}, fmt.Errorf("failed to parse %s: %w", path, df.Err)
	}

	y, err := df.Col(a.cfg.LabelColumn).Int()
	if err != nil {
		return Part{}, fmt.Errorf("label column %q of %s: %w", a.cfg.LabelColumn, path, err)
	}
	for i, l := range y {
		if l < 0 {
			return Part{}, fmt.Errorf("%s row %d: negative label %d", path, i, l)
		}
	}

	var groups []string
	var features [][]float64
	for _, name := range df.Names() {
		switch name {
		case a.cfg.LabelColumn:
		case a.cfg.GroupColumn:
			groups = df.Col(name).Records()
		default:
			features = append(features, df.Col(name).Float())
		}
	}

	n, nf := df.Nrow(), len(features)
	x := tensor.Zeros([]int{n, nf}, tensor.Float64)
	for j, col := range features {
		for i, v := range col {
			x.Data[i*nf+j] = v
		}
	}

	return Part{X: x, Y: y, Groups: groups}, nil
}
