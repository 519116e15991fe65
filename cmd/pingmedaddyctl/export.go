package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd(c *client) *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Stream a target's raw sample history to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return c.stream(fmt.Sprintf("/targets/%s/logs/export", args[0]), out)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output file (defaults to stdout)")
	return cmd
}
