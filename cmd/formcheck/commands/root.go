package commands

import (
	"log/slog"

	"github.com/spf13/cobra"

	"formcheck/internal/platform/config"
	"formcheck/internal/platform/logger"
)

type rootOptions struct {
	envFile   string
	logLevel  string
	logFormat string

	cfg config.Config
	log *slog.Logger
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "formcheck",
		Short:         "Debounced, race-safe availability checks for form fields",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.envFile)
			if err != nil {
				return err
			}
			if opts.logLevel != "" {
				cfg.Log.Level = opts.logLevel
			}
			if opts.logFormat != "" {
				cfg.Log.Format = opts.logFormat
			}
			log, err := logger.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.log = log
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "load FORMCHECK_* variables from this file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides FORMCHECK_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "text or json (overrides FORMCHECK_LOG_FORMAT)")

	root.AddCommand(classifyCmd(opts), watchCmd(opts))
	return root
}
