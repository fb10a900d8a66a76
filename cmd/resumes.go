package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var resumesCmd = &cobra.Command{
	Use:   "resumes",
	Short: "Inspect stored resumes",
}

var resumesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored resumes, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := context.Background()
		_, logger, db := bootstrap(ctx)
		defer db.Close()

		user, _ := cmd.Flags().GetString("user")
		resumes, err := db.ListResumes(ctx, user)
		if err != nil {
			logger.Fatal("listing resumes", zap.Error(err))
		}

		heading.Printf("Resumes (%d)\n", len(resumes))
		for _, r := range resumes {
			fmt.Printf("  %s\t%s\t%s\t%d bytes\t", r.ID, r.UserID, r.Type, r.Size)
			faint.Println(r.CreatedAt)
		}
	},
}

var resumesShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Print a stored resume or write it to a file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		_, logger, db := bootstrap(ctx)
		defer db.Close()

		payload, meta, err := db.LoadResume(ctx, args[0])
		if err != nil {
			logger.Fatal("loading the resume", zap.String("resume_id", args[0]), zap.Error(err))
		}

		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			fmt.Print(string(payload))
			return
		}
		if err := os.WriteFile(out, payload, 0o644); err != nil {
			logger.Fatal("writing the resume", zap.String("path", out), zap.Error(err))
		}
		logger.Info("resume written",
			zap.String("path", out),
			zap.String("user_id", meta.UserID),
			zap.String("resume_type", meta.Type),
		)
	},
}

func init() {
	rootCmd.AddCommand(resumesCmd)
	resumesCmd.AddCommand(resumesListCmd, resumesShowCmd)

	resumesListCmd.Flags().StringP("user", "u", "", "only resumes of this user")
	resumesShowCmd.Flags().StringP("out", "o", "", "file to write the resume to")
}
