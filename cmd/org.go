package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/isometry/corpdir/internal/directory"
)

var (
	chartDepth   int
	chartSummary bool
)

var chainCmd = &cobra.Command{
	Use:   "chain <person>",
	Short: "Walk the management chain from a person to the top",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return runDirectory(cmd, "find_manager_chain", map[string]any{"person": id}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Org.GetManagerChain(ctx, id)
		})
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports <manager>",
	Short: "List a manager's direct reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return runDirectory(cmd, "find_direct_reports", map[string]any{"manager": id}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Org.FindDirectReports(ctx, id)
		})
	},
}

var chartCmd = &cobra.Command{
	Use:   "chart <manager>",
	Short: "Build the org chart rooted at a manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		fields := map[string]any{"manager": id, "depth": chartDepth}
		return runDirectory(cmd, "get_organization_chart", fields, func(ctx context.Context, dir *directory.Directory) (any, error) {
			if chartSummary {
				node, ok, err := dir.Org.BuildOrgChartSummary(ctx, id, chartDepth)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, errors.Errorf("no person found for %q", id)
				}
				return node, nil
			}
			node, ok, err := dir.Org.BuildOrgChart(ctx, id, chartDepth)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Errorf("no person found for %q", id)
			}
			return node, nil
		})
	},
}

var teamCmd = &cobra.Command{
	Use:   "team <person>",
	Short: "Show a person's manager, peers and direct reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return runDirectory(cmd, "get_team_structure", map[string]any{"person": id}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			team, ok, err := dir.Org.TeamStructure(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Errorf("no person found for %q", id)
			}
			return team, nil
		})
	},
}

var commonManagerCmd = &cobra.Command{
	Use:   "common-manager <person> <person>",
	Short: "Find the nearest manager two people share",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		first, second := args[0], args[1]
		fields := map[string]any{"first": first, "second": second}
		return runDirectory(cmd, "find_common_manager", fields, func(ctx context.Context, dir *directory.Directory) (any, error) {
			manager, ok, err := dir.Org.FindCommonManager(ctx, first, second)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Errorf("no common manager found for %q and %q", first, second)
			}
			return manager, nil
		})
	},
}

func init() {
	chartCmd.Flags().IntVar(&chartDepth, "depth", 3, "maximum depth to traverse")
	chartCmd.Flags().BoolVar(&chartSummary, "summary", false, "return compact summary nodes")

	rootCmd.AddCommand(chainCmd, reportsCmd, chartCmd, teamCmd, commonManagerCmd)
}
