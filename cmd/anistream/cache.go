package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cd-Crypton/anistream/pkg/cache"
	"github.com/cd-Crypton/anistream/pkg/cli"
	"github.com/cd-Crypton/anistream/pkg/config"
	"github.com/cd-Crypton/anistream/pkg/telemetry/metrics"
)

var cacheFlags struct {
	output string
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the edge cache",
	Long: `Inspect and maintain the persistent edge cache.

Only the sqlite backend outlives the server process; the memory backend
has nothing to inspect from the command line.

Examples:
  # Show how many fresh entries the cache holds
  anistream cache stats

  # Purge entries that have already expired
  anistream cache prune --output json`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE:  cacheStats,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Purge expired cache entries now",
	Args:  cobra.NoArgs,
	RunE:  cachePrune,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd, cachePruneCmd)

	cacheCmd.PersistentFlags().StringVarP(&cacheFlags.output, "output", "o", "text", "output format: text, json")
}

type cacheStatsResult struct {
	Backend string `json:"backend"`
	Path    string `json:"path,omitempty"`
	Entries int    `json:"entries"`
}

func (r cacheStatsResult) Fields() []cli.Field {
	fields := []cli.Field{{Name: "Backend", Value: r.Backend}}
	if r.Path != "" {
		fields = append(fields, cli.Field{Name: "Path", Value: r.Path})
	}
	return append(fields, cli.Field{Name: "Fresh entries", Value: r.Entries})
}

type cachePruneResult struct {
	Backend string `json:"backend"`
	Removed int64  `json:"removed"`
}

func (r cachePruneResult) Fields() []cli.Field {
	return []cli.Field{
		{Name: "Backend", Value: r.Backend},
		{Name: "Removed", Value: r.Removed},
	}
}

// openPersistentCache opens the configured store for offline maintenance.
func openPersistentCache(cfg *config.Config) (*edge, error) {
	if !cfg.Cache.Enabled {
		return nil, cli.NewConfigError("cache.enabled", "the edge cache is disabled")
	}
	if cfg.Cache.Backend != "sqlite" {
		return nil, cli.NewConfigError("cache.backend",
			fmt.Sprintf("backend %q is per-process, only sqlite can be maintained offline", cfg.Cache.Backend))
	}

	e := &edge{
		cfg:     cfg,
		metrics: metrics.NewCollector(cfg.Telemetry.Metrics, prometheus.NewRegistry()),
	}
	if err := e.openCache(); err != nil {
		return nil, err
	}
	return e, nil
}

func cacheStats(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(cacheFlags.output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	e, err := openPersistentCache(cfg)
	if err != nil {
		return err
	}
	defer e.close(context.Background())

	n, err := e.store.Len(cmd.Context())
	if err != nil {
		return cli.NewCommandError("cache stats", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cacheStatsResult{
		Backend: cfg.Cache.Backend,
		Path:    cfg.Cache.SQLite.Path,
		Entries: n,
	})
}

func cachePrune(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(cacheFlags.output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	e, err := openPersistentCache(cfg)
	if err != nil {
		return err
	}
	defer e.close(context.Background())

	var removed int64
	switch {
	case e.pruner != nil:
		removed, err = e.pruner.PruneNow(cmd.Context())
	default:
		purger, ok := e.store.(cache.Purger)
		if !ok {
			return cli.NewCommandError("cache prune", errors.New("store does not support purging"))
		}
		removed, err = purger.PurgeExpired(cmd.Context())
	}
	if err != nil {
		return cli.NewCommandError("cache prune", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), cachePruneResult{
		Backend: cfg.Cache.Backend,
		Removed: removed,
	})
}
