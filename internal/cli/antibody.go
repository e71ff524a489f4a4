package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mercury-net/mercury/internal/antibody"
	"github.com/mercury-net/mercury/pkg/output"
)

var antibodyCmd = &cobra.Command{
	Use:   "antibody",
	Short: "Antibody registry commands",
	Long:  "Submit, look up, and list antibody fingerprints",
}

var antibodySubmitCmd = &cobra.Command{
	Use:   "submit [text]",
	Short: "Detect an input and register its antibody",
	Long: `Run detection on an input and register its fingerprint in the
registry. Requires a logged-in profile (see 'mercury agent login').`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(args)
		if err != nil {
			return err
		}
		label, _ := cmd.Flags().GetString("label")

		c := newClient(cmd)
		result, err := c.Submit(text, label)
		if err != nil {
			return fmt.Errorf("submission failed: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "json" {
			return output.JSON(result)
		}

		output.Info("Verdict: %s", output.Verdict(result.Verdict))
		output.Info("Reason:  %s", result.Reason)
		if result.Antibody != nil {
			output.Info("Antibody: %s", antibody.Short(result.Antibody.Fingerprint))
		}
		if result.Duplicate {
			output.Warn("Already registered")
		} else {
			output.Success("Antibody registered and shared")
		}
		return nil
	},
}

var antibodyMatchCmd = &cobra.Command{
	Use:   "match [text]",
	Short: "Check whether an input is a known threat",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(args)
		if err != nil {
			return err
		}

		c := newClient(cmd)
		result, err := c.Match(text)
		if err != nil {
			return fmt.Errorf("match failed: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "json" {
			return output.JSON(result)
		}

		if !result.Known {
			output.Info("No matching antibody for %s", antibody.Short(result.Fingerprint))
			return nil
		}

		a := result.Antibody
		output.Warn("Known threat: %s", a.ThreatLabel)
		output.Info("Antibody:   %s", antibody.Short(a.Fingerprint))
		output.Info("First seen: %s by %s", a.CreatedAt.Format("2006-01-02 15:04:05 MST"), a.AgentID)
		return nil
	},
}

var antibodyGetCmd = &cobra.Command{
	Use:   "get <fingerprint>",
	Short: "Look up one antibody by fingerprint",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := newClient(cmd)
		a, err := c.Get(args[0])
		if err != nil {
			return fmt.Errorf("lookup failed: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "json" {
			return output.JSON(a)
		}

		output.Info("Agent:     %s", a.AgentID)
		output.Info("Label:     %s", a.ThreatLabel)
		output.Info("Antibody:  %s", a.Fingerprint)
		output.Info("Origin:    %s", a.Origin)
		output.Info("Created:   %s", a.CreatedAt.Format("2006-01-02 15:04:05 MST"))
		if a.Example != "" {
			output.Info("Example:   %s", a.Example)
		}
		return nil
	},
}

var antibodyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent antibodies",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, _ := cmd.Flags().GetInt("page")
		limit, _ := cmd.Flags().GetInt("limit")
		agentID, _ := cmd.Flags().GetString("agent")
		label, _ := cmd.Flags().GetString("label")

		c := newClient(cmd)
		resp, err := c.List(page, limit, agentID, label)
		if err != nil {
			return fmt.Errorf("listing failed: %w", err)
		}

		format, _ := cmd.Flags().GetString("output")
		if format == "json" {
			return output.JSON(resp)
		}

		table := output.NewTable([]string{"AGENT", "LABEL", "ANTIBODY", "ORIGIN", "CREATED"})
		for _, a := range resp.Antibodies {
			table.AddRow([]string{
				a.AgentID,
				a.ThreatLabel,
				antibody.Short(a.Fingerprint),
				a.Origin,
				a.CreatedAt.Format("2006-01-02 15:04:05"),
			})
		}
		table.Render()

		p := resp.Pagination
		output.Info("Page %d of %d (%s antibodies total)",
			p.Page, p.TotalPages, strconv.Itoa(p.Total))
		return nil
	},
}

func init() {
	antibodySubmitCmd.Flags().String("label", "", "threat label (default: Shared)")

	antibodyListCmd.Flags().Int("page", 1, "page number")
	antibodyListCmd.Flags().Int("limit", 15, "results per page")
	antibodyListCmd.Flags().String("agent", "", "filter by agent ID")
	antibodyListCmd.Flags().String("label", "", "filter by threat label")

	antibodyCmd.AddCommand(antibodySubmitCmd)
	antibodyCmd.AddCommand(antibodyMatchCmd)
	antibodyCmd.AddCommand(antibodyGetCmd)
	antibodyCmd.AddCommand(antibodyListCmd)
	rootCmd.AddCommand(antibodyCmd)
}
