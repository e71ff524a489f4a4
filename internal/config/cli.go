package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CLIConfig holds CLI tool configuration (profiles, tokens, defaults).
// It is persisted as YAML under ~/.mercury/config.yaml.
type CLIConfig struct {
	CurrentProfile string                 `yaml:"current_profile"`
	Profiles       map[string]*CLIProfile `yaml:"profiles"`
	Defaults       *CLIDefaults           `yaml:"defaults"`
	path           string
}

// CLIProfile holds endpoint and credential configuration for a CLI profile
type CLIProfile struct {
	RegistryURL string `yaml:"registry_url"`
	AgentID     string `yaml:"agent_id"`
	APIKey      string `yaml:"api_key"`
	AccessToken string `yaml:"access_token"`
}

// CLIDefaults holds default endpoint URLs for CLI operations
type CLIDefaults struct {
	RegistryURL string `yaml:"registry_url"`
	AgentID     string `yaml:"agent_id"`
}

// DefaultCLI returns a CLIConfig with default values
func DefaultCLI() *CLIConfig {
	return &CLIConfig{
		CurrentProfile: "default",
		Profiles:       make(map[string]*CLIProfile),
		Defaults: &CLIDefaults{
			RegistryURL: "http://localhost:8710",
			AgentID:     "Agent-A",
		},
	}
}

// LoadCLI reads the CLI config from the given path, or from
// ~/.mercury/config.yaml when path is empty. A missing file yields defaults.
func LoadCLI(path string) (*CLIConfig, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".mercury", "config.yaml")
	}

	cfg := DefaultCLI()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse CLI config: %w", err)
	}
	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]*CLIProfile)
	}
	if cfg.Defaults == nil {
		cfg.Defaults = DefaultCLI().Defaults
	}

	return cfg, nil
}

// Save writes the CLI config to disk
func (c *CLIConfig) Save() error {
	if c.path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		c.path = filepath.Join(home, ".mercury", "config.yaml")
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(c.path, data, 0600)
}

// SaveProfile saves credentials to a profile and makes it current.
func (c *CLIConfig) SaveProfile(name, registryURL, agentID, apiKey string) error {
	if c.Profiles == nil {
		c.Profiles = make(map[string]*CLIProfile)
	}

	// Preserve existing access token if profile already exists
	existingToken := ""
	if existing, ok := c.Profiles[name]; ok {
		existingToken = existing.AccessToken
	}

	c.Profiles[name] = &CLIProfile{
		RegistryURL: registryURL,
		AgentID:     agentID,
		APIKey:      apiKey,
		AccessToken: existingToken,
	}

	c.CurrentProfile = name
	return c.Save()
}

// SaveAccessToken records a freshly issued access token on a profile.
func (c *CLIConfig) SaveAccessToken(name, token string) error {
	profile, ok := c.Profiles[name]
	if !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}
	profile.AccessToken = token
	return c.Save()
}

// GetProfile retrieves a profile by name (or current profile if name is empty)
func (c *CLIConfig) GetProfile(name string) (*CLIProfile, error) {
	if name == "" {
		name = c.CurrentProfile
	}

	profile, ok := c.Profiles[name]
	if !ok {
		return nil, fmt.Errorf("profile '%s' not found", name)
	}

	return profile, nil
}

// RemoveProfile removes a profile from the configuration
func (c *CLIConfig) RemoveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return fmt.Errorf("profile '%s' not found", name)
	}

	delete(c.Profiles, name)

	if c.CurrentProfile == name {
		c.CurrentProfile = ""
	}

	return c.Save()
}

// GetRegistryURL returns the registry URL from profile or defaults
func (c *CLIConfig) GetRegistryURL(profile string) string {
	if profile != "" {
		if p, err := c.GetProfile(profile); err == nil && p.RegistryURL != "" {
			return p.RegistryURL
		}
	}
	if p, err := c.GetProfile(""); err == nil && p.RegistryURL != "" {
		return p.RegistryURL
	}
	return c.Defaults.RegistryURL
}

// GetAgentID returns the agent ID from profile or defaults
func (c *CLIConfig) GetAgentID(profile string) string {
	if profile != "" {
		if p, err := c.GetProfile(profile); err == nil && p.AgentID != "" {
			return p.AgentID
		}
	}
	if p, err := c.GetProfile(""); err == nil && p.AgentID != "" {
		return p.AgentID
	}
	return c.Defaults.AgentID
}
