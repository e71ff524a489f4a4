package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mercury-net/mercury/pkg/output"
)

var detectCmd = &cobra.Command{
	Use:   "detect [text]",
	Short: "Run detection on an input",
	Long: `Run detection on a text without registering anything.

The text is read from the argument, or from stdin when no argument is
given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(args)
		if err != nil {
			return err
		}

		c := newClient(cmd)
		result, err := c.Detect(text)
		if err != nil {
			return fmt.Errorf("detection failed: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "json" {
			return output.JSON(result)
		}

		output.Info("Verdict: %s", output.Verdict(string(result.Verdict)))
		output.Info("Reason:  %s", result.Reason)
		if len(result.Triggers) > 0 {
			output.Warn("Triggers: %s", strings.Join(result.Triggers, ", "))
		}
		return nil
	},
}

// readText takes the input from the argument or stdin.
func readText(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func init() {
	rootCmd.AddCommand(detectCmd)
}
