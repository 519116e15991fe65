// Command pingmedaddyctl is a CLI front-end that re-exposes the same
// service operations as the HTTP API — it never talks to the database or
// scheduler directly, only to the running pingmedaddyd instance over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cli := &client{}

	root := &cobra.Command{
		Use:   "pingmedaddyctl",
		Short: "Command-line front-end for a running pingmedaddyd instance",
	}
	root.PersistentFlags().StringVar(&cli.baseURL, "server", envOr("PINGMEDADDY_URL", "http://localhost:8080"), "pingmedaddyd base URL")
	root.PersistentFlags().StringVar(&cli.tokenPath, "token-file", envOr("PINGMEDADDY_TOKEN_FILE", defaultTokenPath()), "path to the cached bearer token")

	root.AddCommand(
		newLoginCmd(cli),
		newTargetsCmd(cli),
		newInsightsCmd(cli),
		newExportCmd(cli),
	)
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pingmedaddyctl-token"
	}
	return home + "/.pingmedaddyctl-token"
}
