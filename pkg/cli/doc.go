/*
Package cli provides helpers shared by the anistream subcommands.

Output Formatting:

Results are printed as aligned text or JSON, selected with --output:

	format, err := cli.ParseOutputFormat(output)
	if err != nil {
		return err
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), stats)

Errors and Exit Codes:

Configuration problems are reported as ConfigError and exit with code 2;
any other failure exits with 1.

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()
*/
package cli
