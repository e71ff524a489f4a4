package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mercury-net/mercury/pkg/output"
)

var patternCmd = &cobra.Command{
	Use:   "pattern",
	Short: "Detection pattern commands",
	Long:  "Manage user-defined detection patterns",
}

var patternListCmd = &cobra.Command{
	Use:   "list",
	Short: "List detection patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		includeDisabled, _ := cmd.Flags().GetBool("all")

		c := newClient(cmd)
		patterns, err := c.ListPatterns(includeDisabled)
		if err != nil {
			return fmt.Errorf("listing failed: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "json" {
			return output.JSON(patterns)
		}

		table := output.NewTable([]string{"ID", "PATTERN", "LABEL", "STATUS"})
		for _, p := range patterns {
			status := "enabled"
			if !p.Enabled() {
				status = "disabled"
			}
			table.AddRow([]string{p.ID, p.Pattern, p.Label, status})
		}
		table.Render()
		return nil
	},
}

var patternAddCmd = &cobra.Command{
	Use:   "add <pattern>",
	Short: "Add a detection pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")

		c := newClient(cmd)
		p, err := c.CreatePattern(args[0], label)
		if err != nil {
			return fmt.Errorf("failed to add pattern: %w", err)
		}

		output.Success("Pattern '%s' added (id %s)", p.Pattern, p.ID)
		return nil
	},
}

func init() {
	patternListCmd.Flags().Bool("all", false, "include disabled patterns")
	patternAddCmd.Flags().String("label", "", "threat label for matches")

	patternCmd.AddCommand(patternListCmd)
	patternCmd.AddCommand(patternAddCmd)
	rootCmd.AddCommand(patternCmd)
}
