package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/model"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored profiles",
}

var profileSaveCmd = &cobra.Command{
	Use:   "save FILE",
	Short: "Validate a json profile and store it, replacing any profile of the same user",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		_, logger, db := bootstrap(ctx)
		defer db.Close()

		p, err := readProfile(args[0])
		if err != nil {
			logger.Fatal("reading the profile", zap.String("path", args[0]), zap.Error(err))
		}
		if user, _ := cmd.Flags().GetString("user"); user != "" {
			p.UserID = user
		}
		if err := p.Validate(); err != nil {
			logger.Fatal("validating the profile", zap.Error(err))
		}

		if err := db.SaveProfile(ctx, p); err != nil {
			logger.Fatal("saving the profile", zap.Error(err))
		}
		logger.Info("profile saved", zap.String("user_id", p.UserID), zap.Int("skills", len(p.FlatSkills())))
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles, newest first",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		_, logger, db := bootstrap(ctx)
		defer db.Close()

		profiles, err := db.ListProfiles(ctx)
		if err != nil {
			logger.Fatal("listing profiles", zap.Error(err))
		}

		heading.Printf("Profiles (%d)\n", len(profiles))
		for _, p := range profiles {
			fmt.Printf("  %s\t%s\t%s\t", p.UserID, p.Name, p.Email)
			faint.Println(p.CreatedAt)
		}
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show USER_ID",
	Short: "Print a stored profile as json",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		ctx := context.Background()
		_, logger, db := bootstrap(ctx)
		defer db.Close()

		p, err := db.LoadProfile(ctx, args[0])
		if err != nil {
			logger.Fatal("loading the profile", zap.String("user_id", args[0]), zap.Error(err))
		}

		pretty, _ := json.MarshalIndent(p, "", "  ")
		fmt.Println(string(pretty))
	},
}

func init() {
	rootCmd.AddCommand(profileCmd)
	profileCmd.AddCommand(profileSaveCmd, profileListCmd, profileShowCmd)

	profileSaveCmd.Flags().StringP("user", "u", "", "user id to store the profile under (overrides user_id in the file)")
}

func readProfile(path string) (*model.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile: %w", err)
	}
	return &p, nil
}
