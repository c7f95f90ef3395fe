package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eringen/medlog/visits"
)

func newImportCommand(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Import visits from a YAML file",
		Long: `Import visits from a YAML file into a user's log.

Every visit is validated before anything is written. Visits without an id
get a new one; visits whose id already exists for the user are replaced.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(user)
			if err != nil {
				return err
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			vs, err := visits.ReadYAML(f)
			if err != nil {
				return err
			}

			now := opts.now().UTC()
			for i := range vs {
				v := vs[i]
				v.UserID = userID
				if v.ID == "" {
					v.ID = visits.NewID()
				}
				if v.CreatedAt.IsZero() {
					v.CreatedAt = now
				}
				v = visits.Normalize(v)
				if err := visits.Validate(v); err != nil {
					return fmt.Errorf("visit %d (%s): %w", i+1, v.Date, err)
				}
				vs[i] = v
			}

			_, repo, closeRepo, err := opts.openRepository()
			if err != nil {
				return err
			}
			defer closeRepo()

			for _, v := range vs {
				if err := repo.SaveVisit(cmd.Context(), v); err != nil {
					if errors.Is(err, visits.ErrNotFound) {
						return fmt.Errorf("visit %s belongs to another user", v.ID)
					}
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d visit(s)\n", len(vs))
			return nil
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "email of the user to import into")
	return cmd
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a user's visits to stdout as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := userFlag(user)
			if err != nil {
				return err
			}
			_, repo, closeRepo, err := opts.openRepository()
			if err != nil {
				return err
			}
			defer closeRepo()

			vs, err := repo.ListVisits(cmd.Context(), userID)
			if err != nil {
				return err
			}
			return visits.WriteYAML(cmd.OutOrStdout(), vs)
		},
	}
	cmd.Flags().StringVarP(&user, "user", "u", "", "email of the user to export")
	return cmd
}
