package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	deperrors "github.com/matzehuels/deptree/pkg/errors"
)

// isolateEnv clears every variable the config layer reads and runs the
// test from an empty directory so no stray .env is picked up.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DEPTREE_REGISTRY_URL", "DEPTREE_ADDR", "DEPTREE_CACHE", "DEPTREE_CACHE_DIR",
		"DEPTREE_REDIS_URL", "DEPTREE_MONGO_URI", "DEPTREE_MAX_DEPTH", "DEPTREE_CONCURRENCY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v", err)
	}
}

func TestLoadConfig_File(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[registry]
url = "https://npm.example.com"
timeout = "5s"

[resolve]
max_depth = 2
concurrency = 4

[cache]
backend = "memory"
ttl = "1h"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Registry.URL != "https://npm.example.com" {
		t.Errorf("Registry.URL = %q", cfg.Registry.URL)
	}
	if cfg.Registry.Timeout != 5*time.Second {
		t.Errorf("Registry.Timeout = %v", cfg.Registry.Timeout)
	}
	if cfg.Resolve.MaxDepth != 2 || cfg.Resolve.Concurrency != 4 {
		t.Errorf("Resolve = %+v", cfg.Resolve)
	}
	if cfg.Cache.Backend != BackendMemory || cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Registry.Retries != 3 {
		t.Errorf("unset fields keep defaults: Retries = %d", cfg.Registry.Retries)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	isolateEnv(t)
	missing := filepath.Join(t.TempDir(), "nope.toml")

	if _, err := LoadConfig(missing, false); err != nil {
		t.Errorf("optional missing file: %v", err)
	}
	if _, err := LoadConfig(missing, true); !deperrors.Is(err, deperrors.ErrCodeInvalidConfig) {
		t.Errorf("required missing file error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadConfig_BadTOML(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[registry\nurl="), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path, false); !deperrors.Is(err, deperrors.ErrCodeInvalidConfig) {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9000\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DEPTREE_ADDR", ":9100")
	t.Setenv("DEPTREE_MAX_DEPTH", "5")
	t.Setenv("DEPTREE_CACHE", "none")

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Server.Addr != ":9100" {
		t.Errorf("Server.Addr = %q, want env value", cfg.Server.Addr)
	}
	if cfg.Resolve.MaxDepth != 5 {
		t.Errorf("Resolve.MaxDepth = %d", cfg.Resolve.MaxDepth)
	}
	if cfg.Cache.Backend != BackendNone {
		t.Errorf("Cache.Backend = %q", cfg.Cache.Backend)
	}
}

func TestLoadConfig_DotEnv(t *testing.T) {
	isolateEnv(t)
	if err := os.WriteFile(".env", []byte("DEPTREE_REGISTRY_URL=https://mirror.example.com\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set, even to "".
	os.Unsetenv("DEPTREE_REGISTRY_URL")

	cfg, err := LoadConfig("", false)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.Registry.URL != "https://mirror.example.com" {
		t.Errorf("Registry.URL = %q, want value from .env", cfg.Registry.URL)
	}
}

func TestLoadConfig_BadEnvInt(t *testing.T) {
	isolateEnv(t)
	t.Setenv("DEPTREE_CONCURRENCY", "many")
	if _, err := LoadConfig("", false); !deperrors.Is(err, deperrors.ErrCodeInvalidConfig) {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad registry url", func(c *Config) { c.Registry.URL = "ftp://x" }},
		{"zero depth", func(c *Config) { c.Resolve.MaxDepth = 0 }},
		{"huge concurrency", func(c *Config) { c.Resolve.Concurrency = 1000 }},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "s3" }},
		{"redis without url", func(c *Config) { c.Cache.Backend = BackendRedis }},
		{"mongo without uri", func(c *Config) { c.Cache.Backend = BackendMongo }},
		{"bad addr", func(c *Config) { c.Server.Addr = "localhost" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if !deperrors.Is(err, deperrors.ErrCodeInvalidConfig) {
				t.Errorf("Validate() = %v, want INVALID_CONFIG", err)
			}
		})
	}
}
