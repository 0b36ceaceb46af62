package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/domain/project"
	"github.com/spf13/cobra"
)

func newProjectsCmd() *cobra.Command {
	var (
		opts   project.ListOptions
		stage  string
		query  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "projects",
		Short: "List or search local projects",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()
			l, err := rt.buildLocal()
			if err != nil {
				return err
			}

			if stage != "" {
				s, err := project.ParseStage(stage)
				if err != nil {
					return fmt.Errorf("%w: %s", err, stage)
				}
				opts.Stage = s
			}

			var summaries []project.Summary
			if query != "" {
				summaries, err = l.projects.Search(cmd.Context(), query, opts)
			} else {
				summaries, err = l.projects.List(cmd.Context(), opts)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd.OutOrStdout(), summaries)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tSTAGE\tREVISION\tUPDATED")
			for _, s := range summaries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", s.ID, s.Title, s.CurrentStage, s.Revision, s.UpdatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&query, "search", "", "full-text query")
	cmd.Flags().StringVar(&stage, "stage", "", "only projects currently on this stage")
	cmd.Flags().BoolVar(&opts.IncludeProvisional, "include-provisional", false, "include projects without content")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "results to skip")
	return cmd
}
