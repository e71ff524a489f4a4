package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mercury-net/mercury/pkg/output"
)

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Registry maintenance commands",
	Long:  "Export, import, and inspect the antibody registry",
}

var registryExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the registry as CSV",
	Long: `Export the full antibody registry as CSV. Writes to the given
file, or to stdout when no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)

		if len(args) == 0 {
			return c.Export(os.Stdout)
		}

		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create file: %w", err)
		}
		defer f.Close()

		if err := c.Export(f); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		output.Success("Registry exported to %s", args[0])
		return nil
	},
}

var registryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a registry CSV from another node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open file: %w", err)
		}
		defer f.Close()

		c := newClient(cmd)
		result, err := c.Import(f)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}

		output.Success("Imported %d antibodies (%d skipped)", result.Imported, result.Skipped)
		return nil
	},
}

var registryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registry statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)
		stats, err := c.Stats()
		if err != nil {
			return fmt.Errorf("failed to fetch stats: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "json" {
			return output.JSON(stats)
		}

		output.Info("Antibodies:          %d", stats.TotalAntibodies)
		output.Info("Unique fingerprints: %d", stats.UniqueFingerprints)
		output.Info("Agents:              %d", stats.Agents)
		output.Info("Last 24h:            %d", stats.Last24h)

		if len(stats.ByLabel) > 0 {
			table := output.NewTable([]string{"LABEL", "COUNT"})
			for label, count := range stats.ByLabel {
				table.AddRow([]string{label, fmt.Sprintf("%d", count)})
			}
			table.Render()
		}
		return nil
	},
}

func init() {
	registryCmd.AddCommand(registryExportCmd)
	registryCmd.AddCommand(registryImportCmd)
	registryCmd.AddCommand(registryStatsCmd)
	rootCmd.AddCommand(registryCmd)
}
