package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	pickupform "github.com/goliatone/go-pickupform"
	"github.com/goliatone/go-pickupform/pkg/compose"
	"github.com/goliatone/go-pickupform/pkg/form"
	"github.com/goliatone/go-pickupform/pkg/host"
	"github.com/goliatone/go-pickupform/pkg/model"
	"github.com/goliatone/go-pickupform/pkg/renderers/tui"
	"github.com/goliatone/go-pickupform/pkg/submission"
)

const msgAborted = "送信を中止しました。入力内容は破棄されます。"

func newFillCmd(opts *options) *cobra.Command {
	var printSummary bool
	cmd := &cobra.Command{
		Use:   "fill",
		Short: "Fill in the contact form interactively and send it",
		Long: `Prompts every field of the selected variant, looks up the address for
seven digit postal codes and submits the request. Without a LINE channel
token the summary is composed but not sent.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg

			variant, err := pickupform.SelectVariant(cfg.RulesFile, cfg.Variant)
			if err != nil {
				return err
			}
			lookuper, closeLookup, err := pickupform.NewLookuper(ctx, opts.lookupConfig())
			if err != nil {
				return err
			}
			defer func() { _ = closeLookup() }()

			sessionOpts := []form.Option{
				form.WithLogger(opts.logger),
				form.WithDebounce(cfg.LookupDebounce),
				form.WithLookupTimeout(cfg.LookupTimeout),
			}
			if cfg.MergePolicy != "" {
				sessionOpts = append(sessionOpts, form.WithMergePolicy(model.MergePolicy(cfg.MergePolicy)))
			}
			session := pickupform.NewSession(variant, lookuper, sessionOpts...)
			defer session.Close()

			var client host.Client = host.Detached{}
			if cfg.HostEnabled() {
				client = host.NewMessaging(cfg.Messaging(), host.WithLogger(opts.logger))
			}
			composer, err := compose.New(cfg.ComposeOptions()...)
			if err != nil {
				return err
			}
			o, err := pickupform.NewOrchestrator(session, client,
				submission.WithComposer(composer),
				submission.WithLogger(opts.logger),
				submission.WithSendTimeout(cfg.SendTimeout),
			)
			if err != nil {
				return err
			}
			if err := pickupform.Connect(ctx, o); err != nil {
				opts.logger.Warn("host unavailable, continuing without sending", zap.Error(err))
			}

			runnerOpts := []tui.Option{tui.WithLogger(opts.logger)}
			if opts.driver != nil {
				runnerOpts = append(runnerOpts, tui.WithPromptDriver(opts.driver))
			}
			runner, err := tui.New(runnerOpts...)
			if err != nil {
				return err
			}

			result, err := runner.Run(ctx, o)
			if errors.Is(err, tui.ErrAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), msgAborted)
				return nil
			}
			if err != nil {
				return err
			}
			if printSummary || !result.Dispatched {
				fmt.Fprintln(cmd.OutOrStdout(), result.Summary)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printSummary, "print-summary", false, "print the composed summary even after it was sent")
	return cmd
}
