package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mercury-net/mercury/internal/seeder"
	"github.com/mercury-net/mercury/pkg/output"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the registry with a generated corpus",
	Long: `Generate a mix of benign and adversarial inputs and feed them
through the registry. Benign inputs are only detected; adversarial ones
are submitted as antibodies. Requires a logged-in profile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		ratio, _ := cmd.Flags().GetFloat64("adversarial-ratio")
		interval, _ := cmd.Flags().GetDuration("interval")

		runner := seeder.NewRunner(newClient(cmd), seeder.Config{
			Count:            count,
			AdversarialRatio: ratio,
			Interval:         interval,
		})

		output.Info("Seeding %d inputs...", count)
		result, err := runner.Run(func(done, total int) {
			if done%25 == 0 || done == total {
				output.Info("  %d/%d", done, total)
			}
		})
		if err != nil {
			return fmt.Errorf("seeding failed: %w", err)
		}

		output.Success("Seeding finished")
		output.Info("Benign (detect only): %d", result.Benign)
		output.Info("Antibodies created:   %d", result.Registered)
		output.Info("Duplicates:           %d", result.Duplicates)
		if result.Failed > 0 {
			output.Warn("Failed requests:      %d", result.Failed)
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().Int("count", 50, "number of inputs to generate")
	seedCmd.Flags().Float64("adversarial-ratio", 0.4, "fraction of adversarial inputs")
	seedCmd.Flags().Duration("interval", 0, "delay between requests (e.g. 100ms)")

	rootCmd.AddCommand(seedCmd)
}
