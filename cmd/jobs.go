package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/state"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect scraped and matched jobs",
}

var jobsRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recently scraped jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		_, logger, db := bootstrap(ctx)
		defer db.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		jobs, err := db.RecentJobs(ctx, limit)
		if err != nil {
			logger.Fatal("listing recent jobs", zap.Error(err))
		}

		heading.Printf("Recent jobs (%d)\n", len(jobs))
		for _, job := range jobs {
			fmt.Printf("  %d\t%s @ %s\t", job.ID, job.Title, job.Company)
			faint.Printf("%s %s\n", job.Location, job.PostedOn)
		}
	},
}

var jobsTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the stored top matches with their scores",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		_, logger, db := bootstrap(ctx)
		defer db.Close()

		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		matches, err := db.TopMatched(ctx, user, limit)
		if err != nil {
			logger.Fatal("listing top matches", zap.Error(err))
		}

		report(cmd.OutOrStdout(), state.Record{MatchedJobs: matches})
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
	jobsCmd.AddCommand(jobsRecentCmd, jobsTopCmd)

	jobsRecentCmd.Flags().IntP("limit", "l", 20, "number of jobs to show")
	jobsTopCmd.Flags().IntP("limit", "l", 10, "number of matches to show")
	jobsTopCmd.Flags().StringP("user", "u", "", "only matches of this user")
}
