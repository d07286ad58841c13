// Package cli implements the deptree command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/deptree/pkg/buildinfo"
	"github.com/matzehuels/deptree/pkg/cache"
	"github.com/matzehuels/deptree/pkg/deptree"
	deperrors "github.com/matzehuels/deptree/pkg/errors"
	"github.com/matzehuels/deptree/pkg/integrations"
	"github.com/matzehuels/deptree/pkg/integrations/npm"
	"github.com/matzehuels/deptree/pkg/registry"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "deptree"

	// memoryCacheEntries bounds the memory backend when [cache] max_entries is unset.
	memoryCacheEntries = 50_000
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFile string
	cfg        *Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// Config returns the loaded configuration, falling back to defaults before
// the root command has run.
func (c *CLI) Config() *Config {
	if c.cfg == nil {
		c.cfg = DefaultConfig()
	}
	return c.cfg
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "deptree resolves npm dependency trees",
		Long:          `deptree reconstructs the dependency tree of npm packages by querying the registry, with bounded depth, per-path cycle detection and cached lookups.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "config file (default $XDG_CONFIG_HOME/deptree/config.toml)")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.browseCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

func (c *CLI) loadConfig() error {
	path, required := c.configFile, c.configFile != ""
	if path == "" {
		if p, err := configPath(); err == nil {
			path = p
		}
	}
	cfg, err := LoadConfig(path, required)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.Logger.Debug("config loaded", "file", path, "registry", cfg.Registry.URL, "cache", cfg.Cache.Backend)
	return nil
}

// =============================================================================
// Engine Factory
// =============================================================================

// newCache opens the metadata store selected by the configuration.
func (c *CLI) newCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	cfg := c.Config().Cache
	backend := cfg.Backend
	if noCache {
		backend = BackendNone
	}

	switch backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendMemory:
		entries := cfg.MaxEntries
		if entries == 0 {
			entries = memoryCacheEntries
		}
		return cache.NewMemoryCache(entries, cfg.TTL), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, deperrors.Wrap(deperrors.ErrCodeInvalidConfig, err, "connect to redis")
		}
		return rc, nil
	case BackendMongo:
		mc, err := cache.NewMongoCache(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
		if err != nil {
			return nil, deperrors.Wrap(deperrors.ErrCodeInvalidConfig, err, "connect to mongo")
		}
		return mc, nil
	default:
		dir := cfg.Dir
		if dir == "" {
			d, err := cacheDir()
			if err != nil {
				c.Logger.Warn("no cache directory, caching disabled", "err", err)
				return cache.NewNullCache(), nil
			}
			dir = d
		}
		return cache.NewFileCache(dir)
	}
}

// newRegistry wires the npm source, cache and logger into a registry client.
func (c *CLI) newRegistry(ctx context.Context, noCache bool) (*registry.Client, error) {
	cfg := c.Config()
	store, err := c.newCache(ctx, noCache)
	if err != nil {
		return nil, err
	}
	src := npm.NewClient(
		npm.WithBaseURL(cfg.Registry.URL),
		npm.WithTimeout(cfg.Registry.Timeout),
		npm.WithHTTPOptions(integrations.WithRetry(cfg.Registry.Retries, integrations.DefaultRetryDelay)),
	)
	return registry.NewClient(src, registry.NewMetadataCache(store, cfg.Cache.TTL), c.Logger), nil
}

func (c *CLI) newBuilder(client *registry.Client) *deptree.Builder {
	cfg := c.Config().Resolve
	return deptree.NewBuilder(client, deptree.Options{
		MaxDepth:    cfg.MaxDepth,
		Concurrency: cfg.Concurrency,
		Logger:      c.Logger,
	})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/deptree/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
