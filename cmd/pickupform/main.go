package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	pickupform "github.com/goliatone/go-pickupform"
	"github.com/goliatone/go-pickupform/internal/config"
	"github.com/goliatone/go-pickupform/internal/logging"
	"github.com/goliatone/go-pickupform/pkg/renderers/tui"
)

// options carries the resolved settings shared by every subcommand.
type options struct {
	variant  string
	rules    string
	logLevel string

	cfg    *config.Config
	logger *zap.Logger
	driver tui.PromptDriver
}

func (o *options) lookupConfig() pickupform.LookupConfig {
	return pickupform.LookupConfig{
		ClientOptions: o.cfg.PostalOptions(),
		RedisAddr:     o.cfg.RedisAddr,
		CacheTTL:      o.cfg.CacheTTL,
		Logger:        o.logger,
	}
}

func newRootCmd(opts *options) *cobra.Command {
	if opts == nil {
		opts = &options{}
	}
	root := &cobra.Command{
		Use:   "pickupform",
		Short: "Pickup and moving contact form for the LINE chat thread",
		Long: `pickupform collects a junk removal or moving request in the terminal,
fills the address from the postal code, checks the request against the
selected rule variant and posts the summary to the customer's LINE chat.

Settings come from PICKUPFORM_* environment variables; flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("variant") {
				cfg.Variant = opts.variant
			}
			if flags.Changed("rules") {
				cfg.RulesFile = opts.rules
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = opts.logLevel
			}
			logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.variant, "variant", "", "rule variant to apply (default from the rule table)")
	flags.StringVar(&opts.rules, "rules", "", "YAML rule file or directory (embedded table when empty)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")

	root.AddCommand(
		newFillCmd(opts),
		newLookupCmd(opts),
		newValidateCmd(opts),
		newVariantsCmd(opts),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(nil).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
