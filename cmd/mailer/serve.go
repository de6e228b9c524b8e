package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pure-golang/mailer/env"
	"github.com/pure-golang/mailer/httpserver"
	"github.com/pure-golang/mailer/mail/collector"
	"github.com/pure-golang/mailer/mailer"
	"github.com/pure-golang/mailer/metrics"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve collected messages (MAIL_PANEL_*) and metrics (METRICS_*)",
		Long: `Serves the messages collected by MAIL_COLLECTOR over HTTP. Use a shared
collector (redis or postgres) so that messages sent by other processes show up.
Prometheus metrics are served as well when METRICS_PORT is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd)
		},
	}
}

func serve(ctx context.Context, cmd *cobra.Command) error {
	var mailCfg mailer.Config
	if err := env.InitConfig(&mailCfg); err != nil {
		return errors.Wrap(err, "failed to init mail config")
	}
	if mailCfg.Collector == mailer.CollectorNone {
		mailCfg.Collector = mailer.CollectorMemory
	}

	c, closer, err := mailer.NewCollector(mailCfg.Collector, nil)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	if os.Getenv("METRICS_PORT") != "" {
		var metricsCfg metrics.Config
		if err := env.InitConfig(&metricsCfg); err != nil {
			return errors.Wrap(err, "failed to init metrics config")
		}
		m, err := metrics.InitDefault(metricsCfg)
		if err != nil {
			return err
		}
		defer m.Close()
	}

	var panelCfg httpserver.Config
	if err := env.InitConfig(&panelCfg); err != nil {
		return errors.Wrap(err, "failed to init panel config")
	}
	server := httpserver.New(panelCfg, collector.NewHandler(c, &collector.HandlerOptions{
		AllowedOrigins: panelCfg.AllowedOrigins,
	}))
	if err := server.Run(); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "serving %s collector on http://%s\n", mailCfg.Collector, server.Addr())

	<-ctx.Done()
	return server.Close()
}
