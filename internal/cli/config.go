package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/matzehuels/deptree/internal/server"
	"github.com/matzehuels/deptree/pkg/deptree"
	deperrors "github.com/matzehuels/deptree/pkg/errors"
	"github.com/matzehuels/deptree/pkg/integrations"
	"github.com/matzehuels/deptree/pkg/integrations/npm"
)

// Cache backends selectable with [cache] backend or DEPTREE_CACHE.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendNone   = "none"
)

// Config is the merged configuration. Sources apply in order: defaults,
// config file, environment, command-line flags.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Resolve  ResolveConfig  `toml:"resolve"`
	Cache    CacheConfig    `toml:"cache"`
	Server   ServerConfig   `toml:"server"`
}

type RegistryConfig struct {
	URL     string        `toml:"url" validate:"required,http_url"`
	Timeout time.Duration `toml:"timeout" validate:"gte=0"`
	Retries int           `toml:"retries" validate:"gte=1,lte=10"`
}

type ResolveConfig struct {
	MaxDepth    int `toml:"max_depth" validate:"gte=1,lte=10"`
	Concurrency int `toml:"concurrency" validate:"gte=1,lte=64"`
}

type CacheConfig struct {
	Backend         string        `toml:"backend" validate:"oneof=file memory redis mongo none"`
	Dir             string        `toml:"dir"`
	TTL             time.Duration `toml:"ttl" validate:"gte=0"`
	MaxEntries      int           `toml:"max_entries" validate:"gte=0"`
	RedisURL        string        `toml:"redis_url" validate:"required_if=Backend redis"`
	MongoURI        string        `toml:"mongo_uri" validate:"required_if=Backend mongo"`
	MongoDatabase   string        `toml:"mongo_database" validate:"required_if=Backend mongo"`
	MongoCollection string        `toml:"mongo_collection" validate:"required_if=Backend mongo"`
}

type ServerConfig struct {
	Addr           string        `toml:"addr" validate:"required,hostname_port"`
	RequestTimeout time.Duration `toml:"request_timeout" validate:"gte=0"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			URL:     npm.DefaultBaseURL,
			Timeout: integrations.DefaultTimeout,
			Retries: 3,
		},
		Resolve: ResolveConfig{
			MaxDepth:    deptree.DefaultMaxDepth,
			Concurrency: 8,
		},
		Cache: CacheConfig{
			Backend:         BackendFile,
			TTL:             24 * time.Hour,
			MongoDatabase:   appName,
			MongoCollection: "metadata",
		},
		Server: ServerConfig{
			Addr:           server.DefaultAddr,
			RequestTimeout: 60 * time.Second,
		},
	}
}

// LoadConfig builds a Config from defaults, the TOML file at path and the
// environment. A missing file is only an error when required is set.
// The result is not validated: callers apply flags first, then Validate.
func LoadConfig(path string, required bool) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !errors.Is(err, fs.ErrNotExist) || required {
				return nil, deperrors.Wrap(deperrors.ErrCodeInvalidConfig, err, "load config %s", path)
			}
		}
	}

	// A missing .env is normal.
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return deperrors.Wrap(deperrors.ErrCodeInvalidConfig, err, "%s must be an integer", key)
		}
		*dst = n
		return nil
	}

	setString("DEPTREE_REGISTRY_URL", &c.Registry.URL)
	setString("DEPTREE_ADDR", &c.Server.Addr)
	setString("DEPTREE_CACHE", &c.Cache.Backend)
	setString("DEPTREE_CACHE_DIR", &c.Cache.Dir)
	setString("DEPTREE_REDIS_URL", &c.Cache.RedisURL)
	setString("DEPTREE_MONGO_URI", &c.Cache.MongoURI)
	if err := setInt("DEPTREE_MAX_DEPTH", &c.Resolve.MaxDepth); err != nil {
		return err
	}
	return setInt("DEPTREE_CONCURRENCY", &c.Resolve.Concurrency)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return deperrors.Wrap(deperrors.ErrCodeInvalidConfig, err, "invalid %s: failed %q", f.Namespace(), f.Tag())
		}
		return deperrors.Wrap(deperrors.ErrCodeInvalidConfig, err, "invalid configuration")
	}
	return nil
}

// configPath returns the default config file location using the XDG
// standard (~/.config/deptree/config.toml).
func configPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}
