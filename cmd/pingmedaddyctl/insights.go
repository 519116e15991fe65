package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInsightsCmd(c *client) *cobra.Command {
	var windowMinutes, bucketSeconds int

	cmd := &cobra.Command{
		Use:   "insights <id>",
		Short: "Print the aggregated insights payload for a target window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := fmt.Sprintf("/targets/%s/insights?window_minutes=%d&bucket_seconds=%d", args[0], windowMinutes, bucketSeconds)
			var resp map[string]any
			if err := c.do("GET", path, nil, &resp); err != nil {
				return err
			}
			return prettyJSON(resp)
		},
	}
	cmd.Flags().IntVar(&windowMinutes, "window-minutes", 60, "rolling window size in minutes")
	cmd.Flags().IntVar(&bucketSeconds, "bucket-seconds", 60, "requested timeline bucket width in seconds")
	return cmd
}
