package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spigell/smart-applier/internal/pipeline"
)

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List the pre-defined workflows and their stages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		w := cmd.OutOrStdout()
		for _, name := range pipeline.Names() {
			compiled, err := pipeline.Build(name, pipeline.Deps{}, pipeline.Options{})
			if err != nil {
				return err
			}
			heading.Fprintf(w, "%s\n", name)
			fmt.Fprintf(w, "  %s\n", pipeline.Description(name))
			faint.Fprintf(w, "  %s\n", strings.Join(compiled.Stages(), " -> "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(workflowsCmd)
}
