package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aeterna.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv(KeyEnv, "")
	path := writeConfig(t, `
version: "1"
vault:
  db_path: ./test/vault.db
  reports_dir: ./test/reports
security:
  secret_key_hex: "deadbeefcafe"
witness:
  url: https://tsa.example.com/attest
  timeout_s: 5
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Vault.DBPath != "./test/vault.db" {
		t.Errorf("db_path = %q", cfg.Vault.DBPath)
	}
	if cfg.Vault.ReportsDir != "./test/reports" {
		t.Errorf("reports_dir = %q", cfg.Vault.ReportsDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Witness.URL != "https://tsa.example.com/attest" {
		t.Errorf("witness url = %q", cfg.Witness.URL)
	}
	if got := cfg.SecretKey(); string(got) != "\xde\xad\xbe\xef\xca\xfe" {
		t.Errorf("secret key = %x", got)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv(KeyEnv, "")
	path := writeConfig(t, `
security:
  secret_key_hex: "00ff"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Vault.DBPath != "vault/aeterna_vault.db" {
		t.Errorf("default db_path = %q", cfg.Vault.DBPath)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default log_level = %q", cfg.LogLevel)
	}
	if cfg.Witness.TimeoutS != 10 {
		t.Errorf("default witness timeout = %d", cfg.Witness.TimeoutS)
	}
}

func TestLoadNoKeyFails(t *testing.T) {
	t.Setenv(KeyEnv, "")
	path := writeConfig(t, `version: "1"`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error without a secret key")
	}
	if !strings.Contains(err.Error(), "secret key") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadMalformedKeyFails(t *testing.T) {
	t.Setenv(KeyEnv, "")
	path := writeConfig(t, `
security:
  secret_key_hex: "not hex at all"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for malformed key")
	}
	if !strings.Contains(err.Error(), "malformed secret_key_hex") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEnvKeyOverridesFile(t *testing.T) {
	t.Setenv(KeyEnv, "env-key-bytes")
	path := writeConfig(t, `
security:
  secret_key_hex: "deadbeef"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(cfg.SecretKey()) != "env-key-bytes" {
		t.Errorf("secret key = %q, want env value", cfg.SecretKey())
	}
}

func TestEnvKeyAloneSuffices(t *testing.T) {
	t.Setenv(KeyEnv, "env-key-bytes")
	path := writeConfig(t, `version: "1"`)

	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}
}

func TestValidateLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.secretKey = []byte("k")
	cfg.LogLevel = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("invalid log_level should fail validation")
	}
}

func TestSaveDoesNotLeakResolvedKey(t *testing.T) {
	cfg := Defaults()
	cfg.Security.SecretKeyHex = "00ff"
	cfg.secretKey = []byte("resolved-raw-key")

	path := filepath.Join(t.TempDir(), "aeterna.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "resolved-raw-key") {
		t.Error("resolved key bytes leaked into the config file")
	}
	if !strings.Contains(string(data), "00ff") {
		t.Error("configured hex key missing from saved file")
	}
}

func TestLoadRejectsSymlink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real.yaml")
	link := filepath.Join(dir, "link.yaml")
	if err := os.WriteFile(target, []byte(`version: "1"`), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, link); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(link); err == nil {
		t.Error("symlinked config should be rejected")
	}
}
