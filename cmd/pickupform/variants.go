package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	pickupform "github.com/goliatone/go-pickupform"
)

func newVariantsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "variants",
		Short: "List the rule variants of the rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := pickupform.LoadRules(opts.cfg.RulesFile)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range table.Names() {
				variant, _ := table.Variant(name)
				mark := " "
				if name == table.DefaultName() {
					mark = "*"
				}
				services := make([]string, 0, len(variant.Services))
				for _, s := range variant.Services {
					services = append(services, string(s))
				}
				fmt.Fprintf(w, "%s %s\t%s\t%s\n", mark, name, variant.Description, strings.Join(services, "/"))
			}
			return w.Flush()
		},
	}
}
