// Package config holds the Aeterna configuration surface: the store
// location, the reports directory, the signing key source, and the
// optional witness endpoint.
package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aeterna/aeterna/internal/safefile"
)

// KeyEnv is the environment variable that overrides the configured
// secret key. Its raw byte value is used as-is.
const KeyEnv = "AETERNA_KEY"

const maxConfigBytes = 256 << 10

// Config is the top-level Aeterna configuration.
type Config struct {
	Version  string         `yaml:"version"`
	Vault    VaultConfig    `yaml:"vault"`
	Security SecurityConfig `yaml:"security"`
	Witness  WitnessConfig  `yaml:"witness,omitempty"`
	LogLevel string         `yaml:"log_level"`

	// secretKey is the resolved signing key. Populated by Load, never
	// marshaled back out.
	secretKey []byte
}

// VaultConfig locates the ledger database and report artifacts.
type VaultConfig struct {
	DBPath     string `yaml:"db_path"`
	ReportsDir string `yaml:"reports_dir"`
}

// SecurityConfig configures the signing key. The key is hex-encoded in
// the file; a malformed encoding fails Load, never degrades silently.
// There is no built-in default key: production and development alike must
// provide one (aeterna init generates a random key).
type SecurityConfig struct {
	SecretKeyHex string `yaml:"secret_key_hex"`
}

// WitnessConfig configures the optional external timestamp authority.
type WitnessConfig struct {
	URL      string `yaml:"url,omitempty"`
	TimeoutS int    `yaml:"timeout_s,omitempty"`
}

// Load reads and parses an Aeterna config file, resolves the secret key
// (environment over file), and validates the result.
func Load(path string) (*Config, error) {
	data, err := safefile.ReadFileMax(path, maxConfigBytes)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.resolveKey(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Defaults returns a config with defaults for everything except the
// secret key, which has no default on purpose.
func Defaults() *Config {
	return &Config{
		Version:  "1",
		Vault:    VaultConfig{DBPath: "vault/aeterna_vault.db", ReportsDir: "vault/reports"},
		Witness:  WitnessConfig{TimeoutS: 10},
		LogLevel: "info",
	}
}

// Save writes the config to a YAML file at the given path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	// The file carries the signing key; keep it private.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SecretKey returns the resolved signing key bytes.
func (c *Config) SecretKey() []byte { return c.secretKey }

// resolveKey picks the signing key: AETERNA_KEY from the environment wins
// over the hex-encoded file value. Malformed hex is fatal here, at
// startup, not at first signing.
func (c *Config) resolveKey() error {
	if env := os.Getenv(KeyEnv); env != "" {
		c.secretKey = []byte(env)
		return nil
	}
	if c.Security.SecretKeyHex == "" {
		return nil
	}
	key, err := hex.DecodeString(c.Security.SecretKeyHex)
	if err != nil {
		return fmt.Errorf("malformed secret_key_hex: %w", err)
	}
	c.secretKey = key
	return nil
}

// Validate checks that the config is usable.
func (c *Config) Validate() error {
	if len(c.secretKey) == 0 {
		return fmt.Errorf("no secret key configured: set security.secret_key_hex or %s", KeyEnv)
	}
	if c.Vault.DBPath == "" {
		return fmt.Errorf("vault.db_path must not be empty")
	}
	if c.Vault.ReportsDir == "" {
		return fmt.Errorf("vault.reports_dir must not be empty")
	}
	if c.Witness.TimeoutS < 0 {
		return fmt.Errorf("witness.timeout_s must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return nil
}
