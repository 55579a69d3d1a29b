package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/edp1096/toy-qpm/internal/store"
	"github.com/edp1096/toy-qpm/pkg/util"
)

var errNoArchive = errors.New("no archive configured, set --archive or QPM_ARCHIVE")

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List archived sweeps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				runs, err := s.ListRuns(cmd.Context())
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				fmt.Fprintln(w, "ID                                    Created              Points  Gaps  Period      Title")
				for _, r := range runs {
					fmt.Fprintf(w, "%s  %s  %6d  %4d  %-10s  %s\n",
						r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Points, r.Failures,
						util.FormatPeriod(r.Period, 4), r.Title)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print an archived tuning curve",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid run id: %w", err)
				}
				return a.withStore(func(s *store.Store) error {
					run, err := s.LoadRun(cmd.Context(), id)
					if err != nil {
						return err
					}
					if run.Title != "" {
						fmt.Fprintln(cmd.OutOrStdout(), run.Title)
					}
					printCurve(cmd.OutOrStdout(), run.Curve, run.Period, a.cfg.Display.Decimals, a.cfg.Display.Nanometers)
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Remove an archived run",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid run id: %w", err)
				}
				return a.withStore(func(s *store.Store) error {
					return s.DeleteRun(cmd.Context(), id)
				})
			},
		},
	)
	return cmd
}

func (a *app) withStore(fn func(*store.Store) error) error {
	if a.cfg.Archive == "" {
		return errNoArchive
	}
	s, err := store.New(a.cfg.Archive)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

func archive(ctx context.Context, path string, run *store.Run) (uuid.UUID, error) {
	s, err := store.New(path)
	if err != nil {
		return uuid.Nil, err
	}
	defer s.Close()
	return s.SaveRun(ctx, run)
}
