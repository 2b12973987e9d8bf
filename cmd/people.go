package cmd

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/isometry/corpdir/internal/directory"
)

var (
	searchLimit   int
	searchSummary bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search people by name, email, uid or free text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		fields := map[string]any{"query": query, "limit": searchLimit}
		return runDirectory(cmd, "search_people", fields, func(ctx context.Context, dir *directory.Directory) (any, error) {
			if searchSummary {
				return dir.People.SearchPeopleSummary(ctx, query, searchLimit)
			}
			return dir.People.SearchPeople(ctx, query, searchLimit)
		})
	},
}

var personCmd = &cobra.Command{
	Use:   "person <identifier>",
	Short: "Look up one person by uid, email or DN",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		return runDirectory(cmd, "get_person", map[string]any{"identifier": id}, func(ctx context.Context, dir *directory.Directory) (any, error) {
			person, ok, err := dir.People.GetPerson(ctx, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errors.Errorf("no person found for %q", id)
			}
			return person, nil
		})
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchSummary, "summary", false, "return compact person summaries")

	rootCmd.AddCommand(searchCmd, personCmd)
}
