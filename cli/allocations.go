package cli

import (
	"github.com/absmach/hetfl"
	"github.com/absmach/hetfl/pkg/fl"
	"github.com/spf13/cobra"
)

func NewAllocationsCmd() *cobra.Command {
	var framework, scheme string

	cmd := &cobra.Command{
		Use:   "allocations <config-file>",
		Short: "Show allocations",
		Long:  `Resolve the width and depth proportions a framework hands out under a scheme.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) > 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}
			f, err := fl.ParseFramework(framework)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			s, err := fl.ParseScheme(scheme)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			var sims map[fl.Framework]fl.Allocation
			if s == fl.Sim {
				path := "hetfl.toml"
				if len(args) == 1 {
					path = args[0]
				}
				cfg, err := hetfl.LoadConfig(path)
				if err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				sims = cfg.Allocations.Sims()
			}
			alloc, err := fl.NewAllocation(s, f, sims)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, alloc)
		},
	}

	cmd.Flags().StringVarP(&framework, "framework", "f", string(fl.HeteroFL), "Framework (fedavg|heterofl|feddrop|local)")
	cmd.Flags().StringVarP(&scheme, "allocation", "a", string(fl.Sim), "Allocation scheme (full|cyclic|sim)")

	return cmd
}
