// Command tapcardctl is the operator CLI for the lead pipeline. It talks to
// the configured store directly, using the same services as the server.
package main

import (
	"fmt"
	"os"

	"github.com/boddenberg/tapcard-bfa-go/internal/config"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to read .env: %v\n", err)
	}

	rootCmd := &cobra.Command{
		Use:           "tapcardctl",
		Short:         "tapcardctl - operator tooling for the TapCard lead pipeline",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(dispatchCmd())
	rootCmd.AddCommand(testWebhookCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tapcardctl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tapcardctl %s\n", Version)
		},
	}
}
