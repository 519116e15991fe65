package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// target mirrors the JSON shape of internal/registry.Target as seen over
// the wire; the CLI never imports the server packages directly.
type target struct {
	ID               int64   `json:"id"`
	IP               string  `json:"ip"`
	FrequencySeconds int     `json:"frequency_seconds"`
	IsActive         bool    `json:"is_active"`
	Deleted          bool    `json:"deleted"`
	URL              *string `json:"url"`
	Notes            *string `json:"notes"`
}

func newTargetsCmd(c *client) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Manage monitor targets",
	}
	cmd.AddCommand(
		newTargetsListCmd(c),
		newTargetsCreateCmd(c),
		newTargetsPauseCmd(c),
		newTargetsResumeCmd(c),
		newTargetsDeleteCmd(c),
	)
	return cmd
}

func newTargetsListCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every target, including paused and deleted ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			var targets []target
			if err := c.do("GET", "/targets/", nil, &targets); err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 2, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tIP\tFREQ(s)\tACTIVE\tDELETED")
			for _, t := range targets {
				fmt.Fprintf(w, "%d\t%s\t%d\t%t\t%t\n", t.ID, t.IP, t.FrequencySeconds, t.IsActive, t.Deleted)
			}
			return w.Flush()
		},
	}
}

func newTargetsCreateCmd(c *client) *cobra.Command {
	var frequency int
	var url, notes string

	cmd := &cobra.Command{
		Use:   "create <ip>",
		Short: "Start tracking a new target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"ip": args[0], "frequency_seconds": frequency}
			if url != "" {
				req["url"] = url
			}
			if notes != "" {
				req["notes"] = notes
			}
			var resp map[string]any
			if err := c.do("POST", "/targets/", req, &resp); err != nil {
				return err
			}
			fmt.Printf("created target %v\n", resp["id"])
			return nil
		},
	}
	cmd.Flags().IntVar(&frequency, "frequency", 60, "probe cadence in seconds")
	cmd.Flags().StringVar(&url, "url", "", "optional URL metadata")
	cmd.Flags().StringVar(&notes, "notes", "", "optional free-form notes")
	return cmd
}

func newTargetsPauseCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "pause <id>",
		Short: "Pause a target's probe loop",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			return c.do("POST", fmt.Sprintf("/targets/%d/pause", id), nil, nil)
		},
	}
}

func newTargetsResumeCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "resume <id>",
		Short: "Resume a paused target",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			return c.do("POST", fmt.Sprintf("/targets/%d/resume", id), nil, nil)
		},
	}
}

func newTargetsDeleteCmd(c *client) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Soft-delete a target, preserving its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return err
			}
			return c.do("DELETE", fmt.Sprintf("/targets/%d", id), nil, nil)
		},
	}
}

// prettyJSON is used by insights/export-adjacent commands that just want to
// pretty-print whatever the server returned.
func prettyJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
