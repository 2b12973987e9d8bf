package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/isometry/corpdir/internal/directory"
)

var groupsLimit int

var groupsCmd = &cobra.Command{
	Use:   "groups <query>",
	Short: "Search groups by name or description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		fields := map[string]any{"query": query, "limit": groupsLimit}
		return runDirectory(cmd, "search_groups", fields, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Groups.SearchGroups(ctx, query, groupsLimit)
		})
	},
}

var personGroupsCmd = &cobra.Command{
	Use:   "person-groups <person>",
	Short: "List the groups a person belongs to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return runDirectory(cmd, "get_person_groups", map[string]any{"person": id}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Groups.GetPersonGroups(ctx, id)
		})
	},
}

var membersCmd = &cobra.Command{
	Use:   "members <group>",
	Short: "Resolve the people in a group, by name or DN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		group := args[0]
		return runDirectory(cmd, "get_group_members", map[string]any{"group": group}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			return dir.Groups.GetGroupMembers(ctx, group)
		})
	},
}

var groupCmd = &cobra.Command{
	Use:   "group <name-or-dn>",
	Short: "Show one group's full record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		nameOrDN := args[0]
		return runDirectory(cmd, "get_group_details", map[string]any{"group": nameOrDN}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			group, ok, err := dir.Groups.GroupDetails(ctx, nameOrDN)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Errorf("no group found for %q", nameOrDN)
			}
			return group, nil
		})
	},
}

func init() {
	groupsCmd.Flags().IntVar(&groupsLimit, "limit", 10, "maximum number of results")

	rootCmd.AddCommand(groupsCmd, personGroupsCmd, membersCmd, groupCmd)
}
