package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cd-Crypton/anistream/pkg/cli"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "anistream",
	Short: "anistream edge - API proxy, cache and static site server",
	Long: `anistream is the edge service in front of the anistream web app.

It answers every request that reaches the site:
  - /api/* is forwarded to the TMDB API with the bearer token attached,
    and successful responses are cached for an hour
  - everything else is served from the static site build, with the
    Content-Type set from the file extension

Configuration is read from a YAML file (see --config) and ANISTREAM_*
environment variables. The upstream token is resolved from the secret
store, by default the TMDB_API_KEY environment variable.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the matching status.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
