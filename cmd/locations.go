package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/isometry/corpdir/internal/directory"
)

var (
	peopleAtLimit   int
	colleaguesLimit int
)

var locationsCmd = &cobra.Command{
	Use:   "locations [query]",
	Short: "Aggregate office locations and head counts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) > 0 {
			query = args[0]
		}
		return runDirectory(cmd, "find_locations", map[string]any{"query": query}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Locations.FindLocations(ctx, query)
		})
	},
}

var peopleAtCmd = &cobra.Command{
	Use:   "people-at <location>",
	Short: "List people at an office location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		location := args[0]
		fields := map[string]any{"location": location, "limit": peopleAtLimit}
		return runDirectory(cmd, "get_people_at_location", fields, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Locations.PeopleAtLocation(ctx, location, peopleAtLimit)
		})
	},
}

var locationHierarchyCmd = &cobra.Command{
	Use:   "location-hierarchy",
	Short: "Show people counts by country, state, city and office",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDirectory(cmd, "get_location_hierarchy", nil, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Locations.LocationHierarchy(ctx)
		})
	},
}

var colleaguesCmd = &cobra.Command{
	Use:   "colleagues <person>",
	Short: "Find people sharing a person's office location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		fields := map[string]any{"person": id, "limit": colleaguesLimit}
		return runDirectory(cmd, "find_nearest_colleagues", fields, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Locations.NearestColleagues(ctx, id, colleaguesLimit)
		})
	},
}

var locationStatsCmd = &cobra.Command{
	Use:   "location-stats",
	Short: "Summarize location sizes across the directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDirectory(cmd, "get_location_stats", nil, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Locations.Stats(ctx)
		})
	},
}

func init() {
	peopleAtCmd.Flags().IntVar(&peopleAtLimit, "limit", 50, "maximum number of results")
	colleaguesCmd.Flags().IntVar(&colleaguesLimit, "limit", 10, "maximum number of results")

	rootCmd.AddCommand(locationsCmd, peopleAtCmd, locationHierarchyCmd, colleaguesCmd, locationStatsCmd)
}
