// Package experiment wires datasets, clients and the server into a complete
// federated learning run.
package experiment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/absmach/hetfl/pkg/dataset"
	"github.com/absmach/hetfl/pkg/storage"
)

const EnvPrefix = "HETFL_"

var (
	ErrRounds   = errors.New("rounds must be positive")
	ErrNoClient = errors.New("no client received training data")
)

type Config struct {
	RunName           string  `env:"RUN_NAME"                                 json:"run_name,omitempty"`
	Dataset           string  `env:"DATASET"            envDefault:"blobs"   json:"dataset"`
	Clients           int     `env:"CLIENTS"            envDefault:"10"      json:"clients"`
	Seed              uint64  `env:"SEED"               envDefault:"42"      json:"seed"`
	Rounds            int     `env:"ROUNDS"             envDefault:"10"      json:"rounds"`
	Epochs            int     `env:"EPOCHS"             envDefault:"1"       json:"epochs"`
	StepsPerEpoch     int     `env:"STEPS_PER_EPOCH"    envDefault:"0"       json:"steps_per_epoch"`
	BatchSize         int     `env:"BATCH_SIZE"         envDefault:"32"      json:"batch_size"`
	Allocation        string  `env:"ALLOCATION"         envDefault:"full"    json:"allocation"`
	Framework         string  `env:"FRAMEWORK"          envDefault:"fedavg"  json:"framework"`
	ProportionClients float64 `env:"PROPORTION_CLIENTS" envDefault:"1"       json:"proportion_clients"`
	Alpha             float64 `env:"ALPHA"              envDefault:"0.5"     json:"alpha"`
	LearningRate      float64 `env:"LEARNING_RATE"      envDefault:"0.1"     json:"learning_rate"`
	Hidden            int     `env:"HIDDEN"             envDefault:"64"      json:"hidden"`
	Depth             int     `env:"DEPTH"              envDefault:"2"       json:"depth"`
	Noise             float64 `env:"NOISE"              envDefault:"0"       json:"noise"`
	Clip              float64 `env:"CLIP"               envDefault:"0"       json:"clip"`
	Scheduler         string  `env:"SCHEDULER"          envDefault:"random"  json:"scheduler"`
	ResultsDir        string  `env:"RESULTS_DIR"        envDefault:"results" json:"-"`
	ConfigFile        string  `env:"CONFIG_FILE"        envDefault:"hetfl.toml" json:"-"`

	Storage storage.Config        `json:"-"`
	Data    dataset.AdapterConfig `envPrefix:"DATA_" json:"-"`
}

// Name spells out the run's configuration as key=value pairs joined by '_'.
func (c Config) Name() string {
	pairs := []string{
		fmt.Sprintf("dataset=%s", c.Dataset),
		fmt.Sprintf("clients=%d", c.Clients),
		fmt.Sprintf("seed=%d", c.Seed),
		fmt.Sprintf("rounds=%d", c.Rounds),
		fmt.Sprintf("epochs=%d", c.Epochs),
		fmt.Sprintf("steps_per_epoch=%d", c.StepsPerEpoch),
		fmt.Sprintf("batch_size=%d", c.BatchSize),
		fmt.Sprintf("allocation=%s", c.Allocation),
		fmt.Sprintf("framework=%s", c.Framework),
		fmt.Sprintf("proportion_clients=%g", c.ProportionClients),
	}

	return strings.Join(pairs, "_")
}
