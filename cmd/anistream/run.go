package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cd-Crypton/anistream/pkg/cli"
	"github.com/cd-Crypton/anistream/pkg/config"
	"github.com/cd-Crypton/anistream/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddr string
	logLevel   string
	dryRun     bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the edge server",
	Long: `Start the anistream edge server.

The server loads configuration, resolves the secret store, opens the edge
cache and the static asset provider, and serves until it receives SIGINT or
SIGTERM. On shutdown it stops accepting requests, waits for in-flight
requests and pending cache writes, then closes the cache.

SIGHUP reloads the configuration file. Logging settings apply at once and
cached secrets are dropped so the credential is resolved afresh.

Examples:
  # Start with the default config file
  anistream run

  # Start with a custom config and listen address
  anistream run --config /etc/anistream/config.yaml --listen 0.0.0.0:8080

  # Check that every component can be built, then exit
  anistream run --dry-run`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.listenAddr, "listen", "", "override listen address (e.g., 0.0.0.0:8080)")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "build every component, then exit without serving")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	applyRunOverrides(cfg)

	logger, err := logging.Setup(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

	e, err := buildEdge(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	printBanner(cmd, cfg)

	if runFlags.dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Dry run complete, all components initialized")
		return e.close(context.Background())
	}

	if err := e.start(ctx); err != nil {
		_ = e.close(context.Background())
		return cli.NewCommandError("run", err)
	}

	cli.NotifyReload(ctx, func(ctx context.Context) {
		if err := e.reload(ctx, cfgFile); err != nil {
			slog.Error("configuration reload failed, keeping current settings", "error", err)
		}
	})

	srv := e.newServer()
	logger.Info("edge starting",
		"version", Version,
		"address", cfg.Server.ListenAddress,
		"api_prefix", cfg.Routing.APIPrefix,
		"upstream", cfg.Upstream.BaseURL,
		"assets_backend", cfg.Assets.Backend,
		"cache_enabled", cfg.Cache.Enabled,
	)

	go func() {
		<-srv.Ready()
		scheme := "http"
		if cfg.Server.TLS.Enabled {
			scheme = "https"
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ Server listening on %s://%s\n", scheme, srv.Addr())
		fmt.Fprintf(out, "✓ Health endpoint: %s://%s/health\n", scheme, srv.Addr())
		if path := e.metricsPath(); path != "" {
			fmt.Fprintf(out, "✓ Metrics endpoint: %s://%s%s\n", scheme, srv.Addr(), path)
		}
		fmt.Fprintln(out, "\nPress Ctrl+C to stop")
	}()

	// Start blocks until the signal context is cancelled, then shuts down.
	if err := srv.Start(ctx); err != nil {
		slog.Error("edge stopped with errors", "error", err)
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Server stopped")
	return nil
}

// applyRunOverrides applies the run command's flags on top of cfg.
func applyRunOverrides(cfg *config.Config) {
	if runFlags.listenAddr != "" {
		cfg.Server.ListenAddress = runFlags.listenAddr
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
}

func printBanner(cmd *cobra.Command, cfg *config.Config) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "anistream edge v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)
	fmt.Fprintln(out, "✓ Configuration loaded")

	slog.Debug("routing", "api_prefix", cfg.Routing.APIPrefix)
	slog.Debug("upstream", "base_url", cfg.Upstream.BaseURL, "secret", cfg.Upstream.SecretName)
	if cfg.Cache.Enabled {
		slog.Debug("cache enabled", "backend", cfg.Cache.Backend, "prune_schedule", cfg.Cache.PruneSchedule)
	}
	if cfg.Server.TLS.Enabled {
		slog.Debug("tls enabled", "cert_file", cfg.Server.TLS.CertFile, "min_version", cfg.Server.TLS.MinVersion)
	}
}
