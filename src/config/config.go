// Package config provides configuration management for the pipeline tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"pipeline-agent/src/credential"
)

// EnvPrefix is prepended to every environment variable, so azdo.organization
// is read from PIPELINE_AZDO_ORGANIZATION.
const EnvPrefix = "PIPELINE"

// Config holds the application configuration.
type Config struct {
	Azdo   AzdoConfig  `mapstructure:"azdo"`
	Helix  HelixConfig `mapstructure:"helix"`
	Auth   AuthConfig  `mapstructure:"auth"`
	FanOut int         `mapstructure:"fanout"`
	Log    LogConfig   `mapstructure:"log"`
}

// AzdoConfig locates the build service project.
type AzdoConfig struct {
	URL          string `mapstructure:"url"`
	Organization string `mapstructure:"organization"`
	Project      string `mapstructure:"project"`
}

// HelixConfig locates the work item analytics database.
type HelixConfig struct {
	Cluster  string `mapstructure:"cluster"`
	Database string `mapstructure:"database"`
}

// AuthConfig selects the credential source.
type AuthConfig struct {
	Token        string `mapstructure:"token"`
	Tenant       string `mapstructure:"tenant"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
	Authority    string `mapstructure:"authority"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

var defaults = map[string]interface{}{
	"azdo.url":           "https://dev.azure.com",
	"azdo.organization":  "dnceng-public",
	"azdo.project":       "public",
	"helix.cluster":      "https://engsrvprod.kusto.windows.net",
	"helix.database":     "engineeringdata",
	"auth.token":         "",
	"auth.tenant":        "",
	"auth.client_id":     "",
	"auth.client_secret": "",
	"auth.authority":     credential.DefaultAuthority,
	"fanout":             8,
	"log.level":          "info",
}

// DefaultPath is $XDG_CONFIG_HOME/pipeline/config.yaml, falling back to
// ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "pipeline", "config.yaml")
}

// Load reads defaults, then the YAML file, then PIPELINE_* environment
// variables. An explicit path must exist; the default path is optional.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if explicit || !isNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	return &cfg, nil
}

func isNotExist(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.FanOut < 1 {
		return &ConfigError{Field: "fanout", Message: fmt.Sprintf("must be at least 1, got %d", c.FanOut)}
	}
	if strings.TrimSpace(c.Azdo.Organization) == "" {
		return &ConfigError{Field: "azdo.organization", Message: "must not be empty"}
	}
	if strings.TrimSpace(c.Azdo.Project) == "" {
		return &ConfigError{Field: "azdo.project", Message: "must not be empty"}
	}
	return nil
}

// Credentials assembles the token provider described by the auth section.
func (c *Config) Credentials() credential.TokenProvider {
	return credential.FromOptions(credential.Options{
		Token:        c.Auth.Token,
		TenantID:     c.Auth.Tenant,
		ClientID:     c.Auth.ClientID,
		ClientSecret: c.Auth.ClientSecret,
		Authority:    c.Auth.Authority,
	})
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
