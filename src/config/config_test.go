package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// isolate points the default config path at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Azdo.URL != "https://dev.azure.com" {
		t.Errorf("Azdo.URL = %q, want https://dev.azure.com", cfg.Azdo.URL)
	}
	if cfg.Azdo.Organization != "dnceng-public" || cfg.Azdo.Project != "public" {
		t.Errorf("Azdo = %+v, want dnceng-public/public", cfg.Azdo)
	}
	if cfg.Helix.Cluster != "https://engsrvprod.kusto.windows.net" || cfg.Helix.Database != "engineeringdata" {
		t.Errorf("Helix = %+v, want engsrvprod/engineeringdata", cfg.Helix)
	}
	if cfg.FanOut != 8 {
		t.Errorf("FanOut = %d, want 8", cfg.FanOut)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}
}

func TestLoad_Environment(t *testing.T) {
	isolate(t)
	t.Setenv("PIPELINE_AZDO_ORGANIZATION", "contoso")
	t.Setenv("PIPELINE_FANOUT", "3")
	t.Setenv("PIPELINE_AUTH_TOKEN", "env-token")
	t.Setenv("PIPELINE_AUTH_CLIENT_ID", "app-id")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Azdo.Organization != "contoso" {
		t.Errorf("Azdo.Organization = %q, want contoso", cfg.Azdo.Organization)
	}
	if cfg.FanOut != 3 {
		t.Errorf("FanOut = %d, want 3", cfg.FanOut)
	}
	if cfg.Auth.Token != "env-token" {
		t.Errorf("Auth.Token = %q, want env-token", cfg.Auth.Token)
	}
	if cfg.Auth.ClientID != "app-id" {
		t.Errorf("Auth.ClientID = %q, want app-id", cfg.Auth.ClientID)
	}
}

func TestLoad_File(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	content := []byte("azdo:\n  project: internal\nhelix:\n  database: other\nlog:\n  level: debug\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PIPELINE_HELIX_DATABASE", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}

	if cfg.Azdo.Project != "internal" {
		t.Errorf("Azdo.Project = %q, want internal", cfg.Azdo.Project)
	}
	if cfg.Azdo.Organization != "dnceng-public" {
		t.Errorf("Azdo.Organization = %q, want default", cfg.Azdo.Organization)
	}
	if cfg.Helix.Database != "from-env" {
		t.Errorf("Helix.Database = %q, environment should win over file", cfg.Helix.Database)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestLoad_DefaultPathFile(t *testing.T) {
	dir := isolate(t)
	if err := os.MkdirAll(filepath.Join(dir, "pipeline"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pipeline", "config.yaml"), []byte("fanout: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.FanOut != 2 {
		t.Errorf("FanOut = %d, want 2", cfg.FanOut)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing explicit config file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(*Config)
		field string
	}{
		{name: "zero fanout", mod: func(c *Config) { c.FanOut = 0 }, field: "fanout"},
		{name: "empty organization", mod: func(c *Config) { c.Azdo.Organization = " " }, field: "azdo.organization"},
		{name: "empty project", mod: func(c *Config) { c.Azdo.Project = "" }, field: "azdo.project"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{FanOut: 8, Azdo: AzdoConfig{Organization: "o", Project: "p"}}
			tt.mod(cfg)

			err := cfg.Validate()
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}
