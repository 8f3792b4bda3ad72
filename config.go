package hetfl

import (
	"fmt"
	"os"

	"github.com/absmach/hetfl/pkg/fl"
	"github.com/pelletier/go-toml"
)

// Config is the optional TOML file of a run. It carries the per-framework
// proportions of the sim allocation scheme.
type Config struct {
	Allocations Allocations `toml:"allocations"`
}

type Allocations struct {
	FedAvg   fl.Allocation `toml:"fedavg"`
	HeteroFL fl.Allocation `toml:"heterofl"`
	FedDrop  fl.Allocation `toml:"feddrop"`
	Local    fl.Allocation `toml:"local"`
}

// Sims returns the allocations that list at least one width.
func (a Allocations) Sims() map[fl.Framework]fl.Allocation {
	sims := make(map[fl.Framework]fl.Allocation)
	for f, alloc := range map[fl.Framework]fl.Allocation{
		fl.FedAvg:   a.FedAvg,
		fl.HeteroFL: a.HeteroFL,
		fl.FedDrop:  a.FedDrop,
		fl.Local:    a.Local,
	} {
		if len(alloc.Widths) > 0 {
			sims[f] = alloc
		}
	}

	return sims
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	return ParseConfig(string(data))
}

func ParseConfig(data string) (*Config, error) {
	tree, err := toml.Load(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	var cfg Config
	if err := tree.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
