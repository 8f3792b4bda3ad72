package cli

import (
	"context"

	"github.com/0x6flab/namegenerator"
	"github.com/absmach/hetfl/experiment"
	"github.com/spf13/cobra"
)

// Runner executes an experiment.
type Runner func(ctx context.Context, cfg experiment.Config) (experiment.Results, error)

var runner Runner

func SetRunner(r Runner) {
	runner = r
}

// NewRunCmd builds the run command. Flags default to the values already in
// cfg, so flags override the environment.
func NewRunCmd(cfg *experiment.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run an experiment",
		Long: `Run a federated learning experiment and write its results.

Examples:
  # HeteroFL with the cyclic allocation on 10 clients
  hetfl run --framework heterofl --allocation cyclic --clients 10

  # FedAvg over half of the clients each round, on a CSV dataset
  HETFL_DATA_CSV_TRAIN_PATH=train.csv HETFL_DATA_CSV_TEST_PATH=test.csv hetfl run -d csv -C 0.5`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			if cfg.RunName == "" {
				cfg.RunName = namegenerator.NewGenerator().Generate()
			}

			res, err := runner(cmd.Context(), *cfg)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, res)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&cfg.Dataset, "dataset", "d", cfg.Dataset, "Dataset adapter (blobs|csv)")
	flags.IntVarP(&cfg.Clients, "clients", "c", cfg.Clients, "Number of clients, 0 or less uses one per class")
	flags.Uint64VarP(&cfg.Seed, "seed", "s", cfg.Seed, "Seed for every random stream")
	flags.IntVarP(&cfg.Rounds, "rounds", "r", cfg.Rounds, "Number of rounds")
	flags.IntVarP(&cfg.Epochs, "epochs", "e", cfg.Epochs, "Local epochs per round")
	flags.IntVar(&cfg.StepsPerEpoch, "steps-per-epoch", cfg.StepsPerEpoch, "Steps per epoch, 0 makes an epoch one pass over the data")
	flags.IntVarP(&cfg.BatchSize, "batch-size", "b", cfg.BatchSize, "Local batch size, 0 uses all samples")
	flags.StringVarP(&cfg.Allocation, "allocation", "a", cfg.Allocation, "Model allocation scheme (full|cyclic|sim)")
	flags.StringVarP(&cfg.Framework, "framework", "f", cfg.Framework, "Framework (fedavg|heterofl|feddrop|local)")
	flags.Float64VarP(&cfg.ProportionClients, "proportion-clients", "C", cfg.ProportionClients, "Fraction of clients taking part in each round")
	flags.Float64Var(&cfg.Alpha, "alpha", cfg.Alpha, "Dirichlet concentration of the label split")
	flags.Float64Var(&cfg.LearningRate, "lr", cfg.LearningRate, "SGD learning rate")
	flags.IntVar(&cfg.Hidden, "hidden", cfg.Hidden, "Hidden units of the full model")
	flags.IntVar(&cfg.Depth, "depth", cfg.Depth, "Hidden layers of the full model")
	flags.Float64Var(&cfg.Noise, "noise", cfg.Noise, "Standard deviation of Gaussian noise added to client updates")
	flags.Float64Var(&cfg.Clip, "clip", cfg.Clip, "Bound on every element of a client update, 0 disables clipping")
	flags.StringVar(&cfg.Scheduler, "scheduler", cfg.Scheduler, "Client selection (random|roundrobin)")
	flags.StringVar(&cfg.ResultsDir, "results", cfg.ResultsDir, "Results directory")
	flags.StringVar(&cfg.ConfigFile, "config", cfg.ConfigFile, "TOML file with sim allocations")
	flags.StringVar(&cfg.Storage.Type, "checkpoints", cfg.Storage.Type, "Checkpoint storage (memory|badger)")
	flags.StringVar(&cfg.Storage.BadgerPath, "badger-path", cfg.Storage.BadgerPath, "Badger data directory")
	flags.StringVar(&cfg.RunName, "name", cfg.RunName, "Run name, generated when empty")

	return cmd
}
