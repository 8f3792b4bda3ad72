package dataset

import (
	"context"
	"errors"
	"fmt"

	"github.com/absmach/hetfl/pkg/tensor"
)

var ErrUnknownAdapter = errors.New("unknown dataset adapter")

type Kind string

const (
	Blobs Kind = "blobs"
	CSV   Kind = "csv"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Blobs, CSV:
		return k, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAdapter, s)
	}
}

// Part is one split as produced by a dataset adapter. Groups optionally holds a
// grouping key (device or subject id) per sample.
type Part struct {
	X      tensor.Tensor
	Y      []int
	Groups []string
}

type Adapter interface {
	Load(ctx context.Context) (*Dataset, error)
}

type AdapterConfig struct {
	Seed uint64 `env:"SEED" envDefault:"42"`

	Samples      int     `env:"BLOBS_SAMPLES"       envDefault:"2000"`
	Features     int     `env:"BLOBS_FEATURES"      envDefault:"16"`
	Classes      int     `env:"BLOBS_CLASSES"       envDefault:"10"`
	Devices      int     `env:"BLOBS_DEVICES"       envDefault:"0"`
	Spread       float64 `env:"BLOBS_SPREAD"        envDefault:"3"`
	TestFraction float64 `env:"BLOBS_TEST_FRACTION" envDefault:"0.2"`

	TrainPath   string `env:"CSV_TRAIN_PATH"`
	TestPath    string `env:"CSV_TEST_PATH"`
	LabelColumn string `env:"CSV_LABEL_COLUMN" envDefault:"label"`
	GroupColumn string `env:"CSV_GROUP_COLUMN"`
}

func NewAdapter(kind Kind, cfg AdapterConfig) (Adapter, error) {
	switch kind {
	case Blobs:
		return &blobs{cfg: cfg}, nil
	case CSV:
		if cfg.TrainPath == "" || cfg.TestPath == "" {
			return nil, errors.New("csv adapter needs both a train and a test path")
		}

		return &csvAdapter{cfg: cfg}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, kind)
	}
}

// FromParts concatenates the train and test parts into one dataset whose mask
// marks the train part.
func FromParts(train, test Part) (*Dataset, error) {
	x, err := tensor.Concat(train.X, test.X)
	if err != nil {
		return nil, err
	}
	y := append(append([]int(nil), train.Y...), test.Y...)
	mask := make([]bool, len(y))
	for i := range train.Y {
		mask[i] = true
	}
	d, err := New(x, y, mask)
	if err != nil {
		return nil, err
	}
	if len(train.Groups) > 0 {
		if len(train.Groups) != len(train.Y) {
			return nil, fmt.Errorf("%w: %d group keys for %d samples", ErrMismatch, len(train.Groups), len(train.Y))
		}
		d.groups = append([]string(nil), train.Groups...)
	}

	return d, nil
}
