package main

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pure-golang/mailer/env"
	"github.com/pure-golang/mailer/logger"
	"github.com/pure-golang/mailer/tracing"
	"github.com/pure-golang/mailer/tracing/otlp"
)

func newRootCmd() *cobra.Command {
	var tracer io.Closer

	root := &cobra.Command{
		Use:           "mailer",
		Short:         "Send mail and inspect collected messages",
		SilenceUsage:  true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			var logCfg logger.Config
			if err := env.InitConfig(&logCfg); err != nil {
				return errors.Wrap(err, "failed to init logger config")
			}
			logger.InitDefault(logCfg)

			closer, err := initTracing()
			tracer = closer
			return err
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if tracer == nil {
				return nil
			}
			return tracer.Close()
		},
	}

	root.AddCommand(newSendCmd(), newServeCmd())
	return root
}

// initTracing exports spans only when TRACING_ENDPOINT is set.
func initTracing() (io.Closer, error) {
	if os.Getenv("TRACING_ENDPOINT") == "" {
		return nil, nil
	}
	var cfg otlp.Config
	if err := env.InitConfig(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to init tracing config")
	}
	return tracing.Init(otlp.NewProviderBuilder(cfg))
}
