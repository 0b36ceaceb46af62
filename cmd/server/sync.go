package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/kjbranchesi/ALF-Coach-sub002/internal/cloudsync"
	"github.com/spf13/cobra"
)

var errSyncDisabled = errors.New("sync is not configured: set ALF_SYNC_REMOTE_URL")

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Inspect and repair delivery to the remote store",
	}
	cmd.AddCommand(newSyncStatusCmd(), newSyncRetryCmd())
	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <project-id>",
		Short: "Show the sync state and dead-letter jobs of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()
			l, err := rt.buildLocal()
			if err != nil {
				return err
			}
			if l.sync == nil {
				return errSyncDisabled
			}

			ctx := cmd.Context()
			st, err := l.sync.Status(ctx, args[0])
			if err != nil {
				return err
			}
			dead, err := l.sync.DeadLetters(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				cloudsync.Status
				DeadLetterJobs []cloudsync.Job `json:"dead_letter_jobs,omitempty"`
			}{st, dead})
		},
	}
}

func newSyncRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <project-id>",
		Short: "Requeue dead-letter jobs of a project and deliver them now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(true)
			if err != nil {
				return err
			}
			defer rt.Close()
			l, err := rt.buildLocal()
			if err != nil {
				return err
			}
			if l.sync == nil {
				return errSyncDisabled
			}

			ctx := cmd.Context()
			id := args[0]
			n, err := l.sync.RetryDeadLetters(ctx, id)
			if err != nil {
				return err
			}
			if l.sync.Online() {
				if err := l.sync.Drain(ctx, id); err != nil {
					return fmt.Errorf("delivering %s: %w", id, err)
				}
			}
			st, err := l.sync.Status(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "requeued %d job(s)\n", n)
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
