package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/smart-applier/internal/pipeline"
	"github.com/spigell/smart-applier/internal/state"
	"github.com/spigell/smart-applier/internal/storage"
	"github.com/spigell/smart-applier/internal/workflow"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var prompt = promptui.Select{
	Label: "Procced?",
	Items: []string{PromptYes, PromptNo},
}

var runCmd = &cobra.Command{
	Use:   "run [workflow]",
	Short: "Run one of the pre-defined workflows",
	Long:  "Run one of the pre-defined workflows. See `" + app + " workflows` for the list.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		run(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("user", "u", "", "user id of the stored profile")
	runCmd.Flags().String("jd-file", "", "file with a job description for the jd workflows")
	runCmd.Flags().StringP("query", "q", "", "job search query (overrides match.query)")
	runCmd.Flags().Int("pages", 0, "listing pages to scrape (overrides match.pages)")
	runCmd.Flags().Int("top-k", 0, "number of matches to keep, negative keeps all (overrides match.top-k)")
	runCmd.Flags().String("state", "", "json file with the initial state")
	runCmd.Flags().String("dump-state", "", "write the final state as json to this file")
	runCmd.Flags().StringP("out", "o", "", "directory to write the rendered resumes to")
	runCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for workflow, user or confirmation")
}

// run is the main command for the cli.
func run(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	config, logger, db := bootstrap(ctx)
	defer db.Close()

	logger.Info("starting the smart-applier", zap.String("version", resolvedVersion()))

	autoApprove, _ := cmd.Flags().GetBool("auto-approve")

	name, err := selectWorkflow(args, autoApprove)
	if err != nil {
		logger.Fatal("selecting a workflow", zap.Error(err))
	}

	initial, err := initialState(cmd)
	if err != nil {
		logger.Fatal("preparing the initial state", zap.Error(err))
	}

	if initial.UserID == "" {
		initial.UserID, err = selectUser(ctx, db, autoApprove)
		if err != nil {
			logger.Fatal("selecting a user", zap.Error(err), zap.String("hint", "pass --user or save a profile first"))
		}
	}

	deps, err := buildDeps(ctx, config, db, logger)
	if err != nil {
		logger.Fatal("preparing workflow dependencies", zap.Error(err))
	}

	compiled, err := pipeline.Build(name, deps, runOptions(cmd, config))
	if err != nil {
		logger.Fatal("building the workflow", zap.String("workflow", name), zap.Error(err))
	}

	for _, status := range compiled.Describe() {
		logger.Debug("stage",
			zap.Int("position", status.Position),
			zap.String("name", status.Name),
			zap.String("next", status.Next),
			zap.Any("details", status.Details),
		)
	}

	if !autoApprove {
		logger.Info("workflow is ready",
			zap.String("workflow", name),
			zap.Strings("stages", compiled.Stages()),
			zap.String("user_id", initial.UserID),
		)
		if _, action, err := prompt.Run(); err != nil || action != PromptYes {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	final, err := compiled.Invoke(ctx, initial)
	if err != nil {
		var stageErr *workflow.StageExecutionError
		if errors.As(err, &stageErr) {
			logger.Fatal("workflow failed",
				zap.String("workflow", stageErr.Graph),
				zap.String("stage", stageErr.Stage),
				zap.Strings("completed_fields", stageErr.Partial.Fields()),
				zap.Error(stageErr.Err),
			)
		}
		logger.Fatal("workflow failed", zap.String("workflow", name), zap.Error(err))
	}

	report(os.Stdout, final)

	if dir, _ := cmd.Flags().GetString("out"); dir != "" {
		written, err := writeResumes(dir, final)
		if err != nil {
			logger.Fatal("writing resumes", zap.String("dir", dir), zap.Error(err))
		}
		for _, path := range written {
			logger.Info("resume written", zap.String("path", path))
		}
	}

	if path, _ := cmd.Flags().GetString("dump-state"); path != "" {
		if err := dumpState(path, final); err != nil {
			logger.Fatal("dumping state", zap.String("path", path), zap.Error(err))
		}
		logger.Info("state dumped", zap.String("path", path))
	}
}

func runOptions(cmd *cobra.Command, config *Config) pipeline.Options {
	opts := pipeline.Options{
		Query: config.Match.Query,
		Pages: config.Match.Pages,
		TopK:  config.Match.TopK,
	}
	if cmd.Flags().Changed("query") {
		opts.Query, _ = cmd.Flags().GetString("query")
	}
	if cmd.Flags().Changed("pages") {
		opts.Pages, _ = cmd.Flags().GetInt("pages")
	}
	if cmd.Flags().Changed("top-k") {
		opts.TopK, _ = cmd.Flags().GetInt("top-k")
	}
	return opts
}

func selectWorkflow(args []string, autoApprove bool) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if autoApprove {
		return "", errors.New("workflow name is required with --auto-approve")
	}

	names := pipeline.Names()
	items := make([]string, 0, len(names))
	for _, name := range names {
		items = append(items, fmt.Sprintf("%s: %s", name, pipeline.Description(name)))
	}

	selector := promptui.Select{Label: "Choose a workflow", Items: items}
	idx, _, err := selector.Run()
	if err != nil {
		return "", err
	}
	return names[idx], nil
}

func selectUser(ctx context.Context, profiles pipeline.ProfileStore, autoApprove bool) (string, error) {
	if autoApprove {
		return "", errors.New("user id is required with --auto-approve")
	}

	stored, err := profiles.ListProfiles(ctx)
	if err != nil {
		return "", err
	}
	if len(stored) == 0 {
		return "", fmt.Errorf("no stored profiles: %w", storage.ErrNotFound)
	}

	items := make([]string, 0, len(stored))
	for _, p := range stored {
		items = append(items, fmt.Sprintf("%s (%s)", p.UserID, p.Name))
	}

	selector := promptui.Select{Label: "Choose a profile", Items: items}
	idx, _, err := selector.Run()
	if err != nil {
		return "", err
	}
	return stored[idx].UserID, nil
}

// initialState builds the starting record from --state, --user and
// --jd-file, in that order of precedence from lowest to highest.
func initialState(cmd *cobra.Command) (state.Record, error) {
	var initial state.Record

	if path, _ := cmd.Flags().GetString("state"); path != "" {
		loaded, err := loadState(path)
		if err != nil {
			return state.Record{}, err
		}
		initial = loaded
	}

	if user, _ := cmd.Flags().GetString("user"); strings.TrimSpace(user) != "" {
		initial.UserID = strings.TrimSpace(user)
	}

	if path, _ := cmd.Flags().GetString("jd-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return state.Record{}, fmt.Errorf("reading job description: %w", err)
		}
		initial.JDText = state.Text(string(data))
	}

	return initial, nil
}

func loadState(path string) (state.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return state.Record{}, fmt.Errorf("reading state file: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return state.Record{}, fmt.Errorf("parsing state file %s: %w", path, err)
	}
	return state.Decode(raw)
}

func dumpState(path string, record state.Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// writeResumes writes the rendered resumes of record into dir and returns the
// written paths.
func writeResumes(dir string, record state.Record) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	files := []struct {
		name    string
		payload []byte
	}{
		{"resume.md", record.ResumeBytes},
		{"tailored_resume.md", record.TailoredResumeBytes},
	}

	var written []string
	for _, f := range files {
		if f.payload == nil {
			continue
		}
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.payload, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}
