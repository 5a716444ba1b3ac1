package main

import (
	"github.com/spf13/cobra"

	"github.com/cd-Crypton/anistream/pkg/cli"
	"github.com/cd-Crypton/anistream/pkg/security/secrets"
)

var secretsFlags struct {
	output string
}

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Inspect the secret store",
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the secret names the configured providers expose",
	Long: `List the secret names the configured providers expose.

Only names are printed, never values. The secret bound as the upstream
credential is marked. An env provider without a prefix lists nothing.

Examples:
  anistream secrets list
  anistream secrets list --output json`,
	Args: cobra.NoArgs,
	RunE: secretsList,
}

func init() {
	rootCmd.AddCommand(secretsCmd)
	secretsCmd.AddCommand(secretsListCmd)

	secretsListCmd.Flags().StringVarP(&secretsFlags.output, "output", "o", "text", "output format: text, json")
}

type secretsListResult struct {
	Bound   string   `json:"bound"`
	Secrets []string `json:"secrets"`
}

func (r secretsListResult) Fields() []cli.Field {
	fields := []cli.Field{{Name: "Upstream credential", Value: r.Bound}}
	for _, name := range r.Secrets {
		status := "available"
		if name == r.Bound {
			status = "available (bound)"
		}
		fields = append(fields, cli.Field{Name: name, Value: status})
	}
	return fields
}

func secretsList(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(secretsFlags.output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	manager, err := secrets.NewManagerFromConfig(cfg.Secrets)
	if err != nil {
		return cli.NewCommandError("secrets list", err)
	}
	defer manager.Close()

	names, err := manager.ListSecrets(cmd.Context())
	if err != nil {
		return cli.NewCommandError("secrets list", err)
	}

	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), secretsListResult{
		Bound:   secrets.Bind(manager, cfg.Upstream.SecretName).Name(),
		Secrets: names,
	})
}
