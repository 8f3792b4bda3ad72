package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/absmach/hetfl/pkg/storage"
	"github.com/absmach/hetfl/pkg/weights"
	"github.com/spf13/cobra"
)

var badgerPath = "./data"

type checkpointView struct {
	Version int     `json:"version"`
	Shapes  [][]int `json:"shapes"`
	Size    int     `json:"size"`
	Active  int     `json:"active"`
	Norm    float64 `json:"norm"`
	MaxAbs  float64 `json:"max_abs"`
}

var checkpointsCmd = []cobra.Command{
	{
		Use:   "list",
		Short: "List checkpoint versions",
		Long:  `List the model versions stored in a badger checkpoint directory.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			cp, closer, err := openCheckpoints()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			defer closer()

			versions, err := cp.Versions(cmd.Context())
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, versions)
		},
	},
	{
		Use:   "view <version>",
		Short: "View checkpoint",
		Long:  `View the shapes and norms of a stored model version.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			version, err := strconv.Atoi(args[0])
			if err != nil {
				logErrorCmd(*cmd, fmt.Errorf("invalid version %q: %w", args[0], err))

				return
			}
			cp, closer, err := openCheckpoints()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			defer closer()

			t, err := cp.Load(cmd.Context(), version)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, checkpointView{
				Version: version,
				Shapes:  t.Shapes(),
				Size:    t.Size(),
				Active:  int(weights.Sum(weights.Counter(t))),
				Norm:    weights.Norm(t, 2),
				MaxAbs:  weights.Norm(t, math.Inf(1)),
			})
		},
	},
}

func openCheckpoints() (*storage.Checkpoints, func(), error) {
	store, err := storage.NewBadgerStorage(badgerPath)
	if err != nil {
		return nil, nil, err
	}

	return storage.NewCheckpoints(store), func() { store.Close() }, nil
}

func NewCheckpointsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "checkpoints [list|view]",
		Short: "Checkpoint inspection",
		Long:  `Inspect global model checkpoints written by badger-backed runs. Every run writes under <badger path>/<run id>; point --badger-path at that directory.`,
	}

	for i := range checkpointsCmd {
		cmd.AddCommand(&checkpointsCmd[i])
	}

	cmd.PersistentFlags().StringVarP(&badgerPath, "badger-path", "p", badgerPath, "Badger data directory")

	return &cmd
}
