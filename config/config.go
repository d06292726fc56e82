// Package config holds service configuration.
//
// Configuration is layered: defaults first, then an optional YAML file on
// top. Secrets (the LLM API key) are never read from the file; they come
// from the environment at wiring time in cmd/concierge.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything the service needs to run.
type Config struct {
	// HTTP
	ListenAddr string `yaml:"listen_addr"`

	// Storage paths
	VectorstoreDir string `yaml:"vectorstore_dir"`
	ExportDir      string `yaml:"export_dir"`
	PrefsPath      string `yaml:"prefs_path"`

	// Ingestion
	Cities []string `yaml:"cities"` // cities whose guides are fetched on /ingest

	// Timeouts (seconds)
	LookupTimeout int `yaml:"lookup_timeout"` // per external lookup call
	LLMTimeout    int `yaml:"llm_timeout"`

	// LLM
	LLMModel string `yaml:"llm_model"`

	// Observability
	OTLPEndpoint string `yaml:"otlp_endpoint"` // empty disables tracing
	LogLevel     string `yaml:"log_level"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		ListenAddr: ":8000",

		VectorstoreDir: "vectorstore",
		ExportDir:      "exports",
		PrefsPath:      "prefs.json",

		Cities: []string{"Lisbon", "Kyoto", "Mexico City"},

		LookupTimeout: 15,
		LLMTimeout:    45,

		LLMModel: "gpt-4o-mini",

		OTLPEndpoint: "",
		LogLevel:     "INFO",
	}
}

// Load returns defaults overlaid with the YAML file at path.
// An empty path returns plain defaults.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.VectorstoreDir == "" {
		return fmt.Errorf("vectorstore_dir must not be empty")
	}
	if c.ExportDir == "" {
		return fmt.Errorf("export_dir must not be empty")
	}
	if c.PrefsPath == "" {
		return fmt.Errorf("prefs_path must not be empty")
	}
	if len(c.Cities) == 0 {
		return fmt.Errorf("cities must list at least one city")
	}
	if c.LookupTimeout <= 0 {
		return fmt.Errorf("lookup_timeout must be positive, got %d", c.LookupTimeout)
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("llm_timeout must be positive, got %d", c.LLMTimeout)
	}
	return nil
}
