package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/eringen/medlog"
	"github.com/eringen/medlog/views"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web application",
		Long: `Run the web application.

Settings come from the config file and MEDLOG_* environment variables.
MEDLOG_SESSION_SECRET (or session_secret) is required.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := medlog.LoadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			app := medlog.New(cfg, views.Funcs(), medlog.WithClock(opts.now))
			defer app.Close()

			log.Printf("medlog %s listening on %s (%s)", version, cfg.Addr, cfg.Driver)
			return app.Start()
		},
	}
}
