package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/medlog"
	"github.com/eringen/medlog/visits"
)

// validFormats are the output formats accepted by --format.
var validFormats = []string{"text", "json"}

// rootOptions holds global flags and the hooks tests replace.
type rootOptions struct {
	ConfigPath string
	Format     string

	now func() time.Time
}

func newRootOptions() *rootOptions {
	return &rootOptions{now: time.Now}
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "medlog",
		Short:         "medlog - a personal medical visit log",
		Long:          "Track doctor visits, symptoms and follow-ups, and analyze them over time.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(validFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "medlog.yaml", "config file (YAML, optional)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newImportCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// openRepository loads the config and opens the configured store.
func (o *rootOptions) openRepository() (medlog.SiteConfig, visits.Repository, func() error, error) {
	cfg, err := medlog.LoadConfig(o.ConfigPath)
	if err != nil {
		return cfg, nil, nil, err
	}
	repo, closeRepo, err := medlog.OpenRepository(cfg)
	return cfg, repo, closeRepo, err
}

// userFlag resolves the --user email to its opaque user id. It accepts the
// same input as the sign-in form.
func userFlag(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("--user is required")
	}
	email, err := visits.ParseEmail(raw)
	if err != nil {
		return "", fmt.Errorf("--user %q: %w", raw, err)
	}
	return visits.UserIDFromEmail(email), nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the medlog version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "medlog %s\n", version)
		},
	}
}
