package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pickupform "github.com/goliatone/go-pickupform"
	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/postal"
)

func newLookupCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <postal-code>",
		Short: "Resolve a postal code to prefecture and city",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			zipcode := model.Digits(args[0])
			if !postal.IsZipcode(zipcode) {
				return fmt.Errorf("lookup: %q is not a seven digit postal code", args[0])
			}
			lookuper, closeLookup, err := pickupform.NewLookuper(ctx, opts.lookupConfig())
			if err != nil {
				return err
			}
			defer func() { _ = closeLookup() }()

			res := postal.Resolve(ctx, lookuper, zipcode)
			switch res.Outcome {
			case postal.Resolved:
				fmt.Fprintf(cmd.OutOrStdout(), "〒%s %s%s\n", zipcode, res.Address.Prefecture, res.Address.City)
				return nil
			case postal.NotFound:
				fmt.Fprintln(cmd.OutOrStdout(), res.Status())
				return nil
			default:
				fmt.Fprintln(cmd.OutOrStdout(), res.Status())
				return errors.Join(errors.New("lookup: failed"), res.Err)
			}
		},
	}
}
