package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mercury-net/mercury/pkg/output"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Agent credential commands",
	Long:  "Register agents and manage access tokens",
}

var agentRegisterCmd = &cobra.Command{
	Use:   "register <agent-id>",
	Short: "Register an agent with the registry",
	Long: `Register an agent and save its API key to the selected profile.
The API key is only shown once; it is stored in ~/.mercury/config.yaml.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		agentID := args[0]
		profile, _ := cmd.Flags().GetString("profile")

		c := newClient(cmd)
		resp, err := c.Register(agentID)
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}

		registryURL := cfg.GetRegistryURL(profile)
		if err := cfg.SaveProfile(profile, registryURL, resp.AgentID, resp.APIKey); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}

		output.Success("Agent '%s' registered", resp.AgentID)
		output.Info("API key saved to profile '%s'", profile)
		return nil
	},
}

var agentLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange the saved API key for an access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		p, err := cfg.GetProfile(profile)
		if err != nil {
			return fmt.Errorf("no saved credentials, run 'mercury agent register' first: %w", err)
		}

		c := newClient(cmd)
		resp, err := c.Login(p.AgentID, p.APIKey)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		if err := cfg.SaveAccessToken(profile, resp.AccessToken); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		output.Success("Logged in as %s", p.AgentID)
		output.Info("Token expires at %s", resp.ExpiresAt.Format("2006-01-02 15:04:05 MST"))
		return nil
	},
}

var agentLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")

		if err := cfg.RemoveProfile(profile); err != nil {
			return err
		}

		output.Success("Removed profile '%s'", profile)
		return nil
	},
}

var agentWhoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the active profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, _ := cmd.Flags().GetString("profile")
		p, err := cfg.GetProfile(profile)
		if err != nil {
			return fmt.Errorf("no saved credentials: %w", err)
		}

		output.Info("Profile:  %s", profile)
		output.Info("Agent:    %s", p.AgentID)
		output.Info("Registry: %s", p.RegistryURL)
		if p.AccessToken != "" {
			output.Info("Token:    saved")
		} else {
			output.Warn("Token:    none (run 'mercury agent login')")
		}
		return nil
	},
}

func init() {
	agentCmd.AddCommand(agentRegisterCmd)
	agentCmd.AddCommand(agentLoginCmd)
	agentCmd.AddCommand(agentLogoutCmd)
	agentCmd.AddCommand(agentWhoamiCmd)
	rootCmd.AddCommand(agentCmd)
}
