// Package cli implements the mercury command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mercury-net/mercury/internal/client"
	"github.com/mercury-net/mercury/internal/config"
)

var (
	cfgFile string
	cfg     *config.CLIConfig
)

var rootCmd = &cobra.Command{
	Use:   "mercury",
	Short: "Mercury antibody registry CLI",
	Long: `mercury is the command-line interface for the Mercury antibody
registry.

Detect adversarial agent inputs, register antibody fingerprints, and
exchange registries with other nodes from your terminal.`,
	Version: "0.1.0",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.mercury/config.yaml)")
	rootCmd.PersistentFlags().String("profile", "default", "profile to use")
	rootCmd.PersistentFlags().String("output", "table", "output format: table, json")
	rootCmd.PersistentFlags().String("registry-url", "", "registry base URL (overrides profile)")
}

func initConfig() {
	var err error
	cfg, err = config.LoadCLI(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.DefaultCLI()
	}
}

// newClient builds a registry client for the selected profile, attaching
// the saved access token when one exists.
func newClient(cmd *cobra.Command) *client.Client {
	profile, _ := cmd.Flags().GetString("profile")

	registryURL, _ := cmd.Flags().GetString("registry-url")
	if registryURL == "" || !cmd.Flags().Changed("registry-url") {
		registryURL = cfg.GetRegistryURL(profile)
	}

	c := client.New(registryURL)
	if p, err := cfg.GetProfile(profile); err == nil && p.AccessToken != "" {
		c.SetAccessToken(p.AccessToken)
	}
	return c
}
