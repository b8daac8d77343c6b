package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kitbuilder587/negotiation-bridge/internal/negotiator"
	"github.com/kitbuilder587/negotiation-bridge/internal/party"
)

var agentsAll bool

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List GeniusWeb parties and native negotiators",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := party.Default()
		infos := reg.Working()
		if agentsAll {
			infos = reg.All()
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "NAME\tKIND\tGROUP\tDESCRIPTION")
		for _, info := range infos {
			desc := info.Description
			if info.Broken {
				desc += " [broken]"
			}
			fmt.Fprintf(tw, "%s\tparty\t%s\t%s\n", info.Name, info.Group, desc)
		}
		for _, name := range negotiator.Names() {
			fmt.Fprintf(tw, "%s\tnative\t-\t-\n", name)
		}
		return tw.Flush()
	},
}

func init() {
	agentsCmd.Flags().BoolVar(&agentsAll, "all", false, "include parties marked broken")
}
