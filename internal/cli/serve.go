package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/deptree/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dependency tree API over HTTP",
		Long: `Start an HTTP server exposing:

  POST /api/dependency-tree   {"packages":[{"name","version"}]} -> {"dependencyTrees":[...]}
  GET  /healthz
  GET  /metrics               Prometheus metrics

The metadata cache is shared by all requests for the life of the process.
Use the redis or mongo cache backend to share it between replicas.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.Config()
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			metrics := server.NewMetrics()
			metrics.Register()

			client, err := c.newRegistry(cmd.Context(), noCache)
			if err != nil {
				return err
			}
			defer client.Cache().Close()

			srv := server.New(c.newBuilder(client), server.Options{
				Logger:         c.Logger,
				Metrics:        metrics,
				RequestTimeout: cfg.Server.RequestTimeout,
			})

			printInfo("Serving on %s", StyleLink.Render("http://"+displayAddr(cfg.Server.Addr)))
			printKeyValue("Registry", cfg.Registry.URL)
			printKeyValue("Cache", cfg.Cache.Backend)
			return srv.ListenAndServe(cmd.Context(), cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the metadata cache")
	return cmd
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
