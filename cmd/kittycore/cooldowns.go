package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCooldownsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cooldowns",
		Short: "Print the configured breeding cooldown table",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "INDEX\tDURATION\tSECONDS")
			for i, d := range a.cfg.Core().Cooldowns {
				fmt.Fprintf(tw, "%d\t%s\t%d\n", i, d, int64(d.Seconds()))
			}
			return tw.Flush()
		},
	}
}
